// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"time"

	"github.com/jllopis/agentdeck/pkg/errors"
)

// PollConfig bounds a polling loop.
type PollConfig struct {
	// Interval between checks. Default 5s.
	Interval time.Duration
	// Timeout bounds the whole loop. Zero means no time bound.
	Timeout time.Duration
	// MaxPolls bounds the number of checks. Zero means unlimited.
	MaxPolls int
}

// Poll calls check until it reports done, returns an error, the context ends
// or a bound is exceeded. It returns the number of checks performed.
// Exceeding a bound yields a CodeTimeout error.
func Poll(ctx context.Context, cfg PollConfig, check func(ctx context.Context) (bool, error)) (int, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	polls := 0
	for {
		polls++
		done, err := check(ctx)
		if err != nil {
			return polls, err
		}
		if done {
			return polls, nil
		}
		if cfg.MaxPolls > 0 && polls >= cfg.MaxPolls {
			return polls, errors.New(errors.CodeTimeout, "polling exceeded maximum attempts", nil).
				WithContext("polls", polls).
				WithRecoverable(true)
		}

		select {
		case <-ctx.Done():
			return polls, errors.New(errors.CodeTimeout, "polling did not complete in time", ctx.Err()).
				WithContext("polls", polls).
				WithContext("timeout", cfg.Timeout.String()).
				WithRecoverable(true)
		case <-ticker.C:
		}
	}
}
