// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]Run
	byUser map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:   make(map[string]Run),
		byUser: make(map[string][]string),
	}
}

// CreateRun implements Store.
func (s *MemoryStore) CreateRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.RunID]; exists {
		return fmt.Errorf("run %s already exists", run.RunID)
	}
	s.runs[run.RunID] = run
	s.byUser[run.UserID] = append(s.byUser[run.UserID], run.RunID)
	return nil
}

// GetRun implements Store.
func (s *MemoryStore) GetRun(_ context.Context, runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, notFound(runID)
	}
	return &run, nil
}

// ListRunIDs implements Store.
func (s *MemoryStore) ListRunIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out, nil
}

// TouchRun implements Store.
func (s *MemoryStore) TouchRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return notFound(runID)
	}
	run.UpdatedAt = time.Now().UTC()
	s.runs[runID] = run
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
