// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides chat history stores and the vector store and
// embedder abstractions backing knowledge bases.
package memory

import (
	"context"
	"time"
)

// ConversationMessage is a single message in a run's chat history.
type ConversationMessage struct {
	ID         string            `json:"id"`
	RunID      string            `json:"run_id"`
	Role       string            `json:"role"` // system, user, assistant, tool
	Content    string            `json:"content"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ConversationMemory stores ordered chat history keyed by run id.
type ConversationMemory interface {
	// AppendMessage adds a message to the run's history.
	AppendMessage(ctx context.Context, runID string, msg ConversationMessage) error

	// GetMessages returns all messages for a run, oldest first.
	GetMessages(ctx context.Context, runID string) ([]ConversationMessage, error)

	// GetRecentMessages returns the last limit messages for a run, oldest first.
	GetRecentMessages(ctx context.Context, runID string, limit int) ([]ConversationMessage, error)

	// Clear removes all messages for a run.
	Clear(ctx context.Context, runID string) error
}

// TruncationStrategy trims history before it is returned by GetMessages.
type TruncationStrategy interface {
	Truncate(ctx context.Context, messages []ConversationMessage) ([]ConversationMessage, error)
}

// ConversationConfig configures conversation memory behavior.
type ConversationConfig struct {
	// TruncationStrategy is applied by GetMessages. Optional.
	TruncationStrategy TruncationStrategy
}

func (c ConversationConfig) apply(ctx context.Context, messages []ConversationMessage) ([]ConversationMessage, error) {
	if c.TruncationStrategy == nil || len(messages) == 0 {
		return messages, nil
	}
	return c.TruncationStrategy.Truncate(ctx, messages)
}

// WindowStrategy keeps only the last MaxMessages messages.
type WindowStrategy struct {
	MaxMessages int
	// KeepSystemMessages preserves system messages regardless of window.
	KeepSystemMessages bool
}

// NewWindowStrategy creates a window-based truncation strategy.
func NewWindowStrategy(maxMessages int, keepSystem bool) *WindowStrategy {
	return &WindowStrategy{MaxMessages: maxMessages, KeepSystemMessages: keepSystem}
}

// Truncate implements TruncationStrategy.
func (w *WindowStrategy) Truncate(_ context.Context, messages []ConversationMessage) ([]ConversationMessage, error) {
	if len(messages) <= w.MaxMessages {
		return messages, nil
	}
	if !w.KeepSystemMessages {
		return messages[len(messages)-w.MaxMessages:], nil
	}

	system, other := splitSystem(messages)
	available := max(w.MaxMessages-len(system), 0)
	if len(other) > available {
		other = other[len(other)-available:]
	}
	return append(system, other...), nil
}

// TokenStrategy keeps the most recent messages that fit within MaxTokens.
type TokenStrategy struct {
	MaxTokens int
	// TokenCounter counts tokens in a message. Nil uses len(content)/4.
	TokenCounter func(msg ConversationMessage) int
	// KeepSystemMessages preserves system messages regardless of budget.
	KeepSystemMessages bool
}

// NewTokenStrategy creates a token-budget truncation strategy.
func NewTokenStrategy(maxTokens int, keepSystem bool) *TokenStrategy {
	return &TokenStrategy{MaxTokens: maxTokens, KeepSystemMessages: keepSystem}
}

// Truncate implements TruncationStrategy.
func (t *TokenStrategy) Truncate(_ context.Context, messages []ConversationMessage) ([]ConversationMessage, error) {
	counter := t.TokenCounter
	if counter == nil {
		counter = func(msg ConversationMessage) int { return len(msg.Content) / 4 }
	}

	total := 0
	for _, msg := range messages {
		total += counter(msg)
	}
	if total <= t.MaxTokens {
		return messages, nil
	}

	var system, other []ConversationMessage
	if t.KeepSystemMessages {
		system, other = splitSystem(messages)
	} else {
		other = messages
	}
	budget := t.MaxTokens
	for _, msg := range system {
		budget -= counter(msg)
	}

	start := len(other)
	used := 0
	for i := len(other) - 1; i >= 0; i-- {
		n := counter(other[i])
		if used+n > budget {
			break
		}
		used += n
		start = i
	}
	return append(system, other[start:]...), nil
}

func splitSystem(messages []ConversationMessage) (system, other []ConversationMessage) {
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg)
		} else {
			other = append(other, msg)
		}
	}
	return system, other
}
