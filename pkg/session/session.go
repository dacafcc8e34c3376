// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package session persists runs per user and decides whether a request
// resumes the most recent run or starts a new one.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
)

// Run is a persisted conversational context for a user.
type Run struct {
	RunID     string    `json:"run_id"`
	UserID    string    `json:"user_id"`
	AgentName string    `json:"agent_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists runs.
type Store interface {
	// CreateRun persists a new run. Creating an existing run id fails.
	CreateRun(ctx context.Context, run Run) error
	// GetRun returns a run or a NOT_FOUND error.
	GetRun(ctx context.Context, runID string) (*Run, error)
	// ListRunIDs returns a user's run ids, most recently created first.
	ListRunIDs(ctx context.Context, userID string) ([]string, error)
	// TouchRun marks a run as used now.
	TouchRun(ctx context.Context, runID string) error
	// Close releases the store's resources.
	Close() error
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	RunID   string
	Resumed bool
}

// Resolve returns the user's most recent run unless startNew is set or the
// user has none, in which case a new run is allocated and persisted.
// Concurrent calls for the same user are not coordinated.
func Resolve(ctx context.Context, store Store, userID, agentName string, startNew bool) (Resolution, error) {
	if userID == "" {
		return Resolution{}, errors.New(errors.CodeInvalidInput, "user id is required", nil)
	}

	if !startNew {
		ids, err := store.ListRunIDs(ctx, userID)
		if err != nil {
			return Resolution{}, errors.New(errors.CodeMemoryError, "failed to list runs", err).
				WithContext("user_id", userID)
		}
		if len(ids) > 0 {
			if err := store.TouchRun(ctx, ids[0]); err != nil {
				return Resolution{}, errors.New(errors.CodeMemoryError, "failed to resume run", err).
					WithContext("run_id", ids[0])
			}
			slog.Info("session.resume", slog.String("user_id", userID), slog.String("run_id", ids[0]))
			return Resolution{RunID: ids[0], Resumed: true}, nil
		}
	}

	now := time.Now().UTC()
	run := Run{
		RunID:     core.NewRunID(),
		UserID:    userID,
		AgentName: agentName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return Resolution{}, errors.New(errors.CodeMemoryError, "failed to create run", err).
			WithContext("user_id", userID)
	}
	slog.Info("session.create", slog.String("user_id", userID), slog.String("run_id", run.RunID))
	return Resolution{RunID: run.RunID}, nil
}

func notFound(runID string) error {
	return errors.New(errors.CodeNotFound, "run not found", nil).WithContext("run_id", runID)
}
