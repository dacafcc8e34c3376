// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/resilience"
	"github.com/jllopis/agentdeck/pkg/telemetry"
)

// Poller waits for uploaded files to finish processing.
type Poller struct {
	// Interval between state checks. Default 5s.
	Interval time.Duration
	// Timeout bounds the wait. Default 10m.
	Timeout time.Duration
	// MaxPolls bounds the number of state checks. Zero means unlimited.
	MaxPolls int
	// Retry is applied to each state lookup.
	Retry resilience.RetryConfig
}

// NewPoller returns a poller with the default interval and timeout.
func NewPoller() *Poller {
	return &Poller{
		Interval: 5 * time.Second,
		Timeout:  10 * time.Minute,
		Retry:    resilience.DefaultRetryConfig(),
	}
}

// WaitActive polls client until file leaves the PROCESSING state and returns
// the final file. A FAILED file or an exceeded bound is an error.
func (p *Poller) WaitActive(ctx context.Context, client Client, file *File) (*File, error) {
	ctx, span := otel.Tracer("agentdeck/media").Start(ctx, "Media.Wait")
	defer span.End()

	current := file
	polls, err := resilience.Poll(ctx, resilience.PollConfig{
		Interval: p.Interval,
		Timeout:  p.Timeout,
		MaxPolls: p.MaxPolls,
	}, func(ctx context.Context) (bool, error) {
		if current.State != StateProcessing {
			return true, nil
		}
		err := p.Retry.Do(ctx, func(ctx context.Context) error {
			f, err := client.Get(ctx, file.Name)
			if err != nil {
				return err
			}
			current = f
			return nil
		})
		if err != nil {
			return false, errors.New(errors.CodeMediaError, "failed to check file state", err).
				WithContext("file", file.Name)
		}
		slog.DebugContext(ctx, "media.poll", slog.String("file", file.Name), slog.String("state", string(current.State)))
		return current.State != StateProcessing, nil
	})

	span.SetAttributes(telemetry.MediaAttributes(file.Name, string(current.State), polls)...)
	if err == nil && current.State == StateFailed {
		err = errors.New(errors.CodeMediaError, "file processing failed", nil).
			WithContext("file", file.Name).
			WithContext("reason", current.Error)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	slog.InfoContext(ctx, "media.ready", slog.String("file", current.Name), slog.Int("polls", polls))
	return current, nil
}
