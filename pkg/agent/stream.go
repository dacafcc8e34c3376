// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"strings"

	"github.com/jllopis/agentdeck/pkg/errors"
)

// EventType identifies an item on a run stream.
type EventType string

const (
	EventContent    EventType = "content"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one item of a streamed run. The stream always ends with exactly
// one EventDone or EventError.
type Event struct {
	Type     EventType `json:"type"`
	Agent    string    `json:"agent,omitempty"`
	Content  string    `json:"content,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
	Err      error     `json:"-"`
}

// RunStream runs the agent in the background and streams content deltas and
// tool activity. The channel is closed after the terminal event.
func (a *Agent) RunStream(ctx context.Context, input string, opts ...RunOption) (<-chan Event, error) {
	cfg := newRunConfig(opts)
	if strings.TrimSpace(input) == "" && len(cfg.media) == 0 {
		return nil, NewInvalidInputError("input is required")
	}
	events := make(chan Event, 32)
	go func() {
		defer close(events)
		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		resp, err := a.run(ctx, input, cfg, func(ev Event) { send(ev) })
		if err != nil {
			send(Event{Type: EventError, Agent: a.name, Error: errors.UserMessage(err), Err: err})
			return
		}
		send(Event{Type: EventDone, Agent: a.name, Content: resp.Content, Response: resp})
	}()
	return events, nil
}
