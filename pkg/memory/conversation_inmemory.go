// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryConversation keeps chat history in process memory.
// Data is lost on restart.
type InMemoryConversation struct {
	mu     sync.RWMutex
	runs   map[string][]ConversationMessage
	config ConversationConfig
}

// NewInMemoryConversation creates a new in-memory conversation store.
func NewInMemoryConversation(config ConversationConfig) *InMemoryConversation {
	return &InMemoryConversation{
		runs:   make(map[string][]ConversationMessage),
		config: config,
	}
}

// AppendMessage implements ConversationMemory.
func (m *InMemoryConversation) AppendMessage(_ context.Context, runID string, msg ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID] = append(m.runs[runID], prepare(runID, msg))
	return nil
}

// GetMessages implements ConversationMemory.
func (m *InMemoryConversation) GetMessages(ctx context.Context, runID string) ([]ConversationMessage, error) {
	m.mu.RLock()
	messages := make([]ConversationMessage, len(m.runs[runID]))
	copy(messages, m.runs[runID])
	m.mu.RUnlock()
	return m.config.apply(ctx, messages)
}

// GetRecentMessages implements ConversationMemory.
func (m *InMemoryConversation) GetRecentMessages(_ context.Context, runID string, limit int) ([]ConversationMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.runs[runID]
	if limit <= 0 || len(all) < limit {
		limit = len(all)
	}
	result := make([]ConversationMessage, limit)
	copy(result, all[len(all)-limit:])
	return result, nil
}

// Clear implements ConversationMemory.
func (m *InMemoryConversation) Clear(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}

// MessageCount returns the number of messages stored for a run.
func (m *InMemoryConversation) MessageCount(runID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs[runID])
}

// prepare fills in id, run id and timestamp.
func prepare(runID string, msg ConversationMessage) ConversationMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.RunID = runID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return msg
}
