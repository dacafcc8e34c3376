// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"log/slog"
	"time"
)

// EventType identifies a semantic event emitted by agents.
type EventType string

const (
	EventAgentTaskStarted   EventType = "agent.task.started"
	EventAgentTaskCompleted EventType = "agent.task.completed"
	EventAgentToolCall      EventType = "agent.tool.call"
	EventAgentDelegation    EventType = "agent.delegation"
	EventAgentError         EventType = "agent.error"
)

// Event captures a semantic logging event.
type Event struct {
	Type      EventType
	Agent     string
	RunID     string
	Timestamp time.Time
	Payload   map[string]any
}

// EventEmitter receives semantic events.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// LogEventEmitter writes events to a slog logger at debug level.
type LogEventEmitter struct {
	Logger *slog.Logger
}

// Emit implements EventEmitter.
func (e LogEventEmitter) Emit(ctx context.Context, event Event) {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	attrs := []any{
		slog.String("agent", event.Agent),
		slog.String("run_id", event.RunID),
	}
	for k, v := range event.Payload {
		attrs = append(attrs, slog.Any(k, v))
	}
	log.DebugContext(ctx, string(event.Type), attrs...)
}

// NewEvent builds a default event with timestamp.
func NewEvent(eventType EventType, agent string, runID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Agent:     agent,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
