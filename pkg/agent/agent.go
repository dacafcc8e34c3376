// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the LLM-driven agent loop, team delegation and
// the functional options used to configure agents.
package agent

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/knowledge"
	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/jllopis/agentdeck/pkg/memory"
)

// DefaultMaxIterations bounds the tool-calling loop when no limit is configured.
const DefaultMaxIterations = 10

// Knowledge is the retrieval surface an agent needs from a knowledge base.
type Knowledge interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Document, error)
	SearchTool() core.Tool
}

// Agent wraps a hosted language model with instructions, tools and peer agents.
type Agent struct {
	name          string
	role          string
	instructions  []string
	model         string
	provider      llm.Provider
	tools         []core.Tool
	team          []*Agent
	markdown      bool
	showToolCalls bool

	knowledge       Knowledge
	searchKnowledge bool

	history         memory.ConversationMemory
	readChatHistory bool
	historyMessages int

	maxIterations int
	userID        string
	runID         string
	emitter       core.EventEmitter
	tracer        trace.Tracer
}

// Option configures an Agent instance.
type Option func(*Agent) error

// New creates an agent backed by provider.
func New(name string, provider llm.Provider, opts ...Option) (*Agent, error) {
	a := &Agent{
		name:          name,
		provider:      provider,
		maxIterations: DefaultMaxIterations,
		emitter:       core.NoopEventEmitter{},
		tracer:        otel.Tracer("agentdeck/agent"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(a.name) == "" {
		return nil, NewInvalidInputError("agent name is required")
	}
	if a.provider == nil {
		return nil, NewInvalidInputError("agent provider is required")
	}
	seen := make(map[string]bool, len(a.tools)+len(a.team))
	for _, t := range a.toolset() {
		if seen[t.Name()] {
			return nil, NewInvalidInputError("duplicate tool name " + t.Name())
		}
		seen[t.Name()] = true
	}
	return a, nil
}

// WithRole sets the one-line description shown to the model and to team leaders.
func WithRole(role string) Option {
	return func(a *Agent) error {
		a.role = role
		return nil
	}
}

// WithInstructions appends behavioural instructions to the system prompt.
func WithInstructions(instructions ...string) Option {
	return func(a *Agent) error {
		a.instructions = append(a.instructions, instructions...)
		return nil
	}
}

// WithModel sets the model id sent with every request.
func WithModel(model string) Option {
	return func(a *Agent) error {
		a.model = model
		return nil
	}
}

// WithTools attaches tools the model may call.
func WithTools(tools ...core.Tool) Option {
	return func(a *Agent) error {
		for _, t := range tools {
			if t == nil {
				return NewInvalidInputError("nil tool")
			}
		}
		a.tools = append(a.tools, tools...)
		return nil
	}
}

// WithTeam adds member agents the model can delegate tasks to.
func WithTeam(members ...*Agent) Option {
	return func(a *Agent) error {
		for _, m := range members {
			if m == nil {
				return NewInvalidInputError("nil team member")
			}
			if m == a {
				return NewInvalidInputError("agent cannot be a member of its own team")
			}
		}
		a.team = append(a.team, members...)
		return nil
	}
}

// WithMarkdown asks the model to format answers as markdown.
func WithMarkdown(enabled bool) Option {
	return func(a *Agent) error {
		a.markdown = enabled
		return nil
	}
}

// WithShowToolCalls makes PrintResponse list each tool invocation.
func WithShowToolCalls(enabled bool) Option {
	return func(a *Agent) error {
		a.showToolCalls = enabled
		return nil
	}
}

// WithKnowledge attaches a knowledge base. Unless WithSearchKnowledge is set,
// matching documents are added to the prompt as references.
func WithKnowledge(kb Knowledge) Option {
	return func(a *Agent) error {
		a.knowledge = kb
		return nil
	}
}

// WithSearchKnowledge exposes the knowledge base as a search tool instead of
// injecting references into the prompt.
func WithSearchKnowledge(enabled bool) Option {
	return func(a *Agent) error {
		a.searchKnowledge = enabled
		return nil
	}
}

// WithConversationMemory persists each exchange under the run id.
func WithConversationMemory(mem memory.ConversationMemory) Option {
	return func(a *Agent) error {
		a.history = mem
		return nil
	}
}

// WithReadChatHistory exposes a get_chat_history tool backed by conversation memory.
func WithReadChatHistory(enabled bool) Option {
	return func(a *Agent) error {
		a.readChatHistory = enabled
		return nil
	}
}

// WithHistoryMessages adds the last n stored messages of the run to every request.
func WithHistoryMessages(n int) Option {
	return func(a *Agent) error {
		if n < 0 {
			return NewInvalidInputError("history messages must be >= 0")
		}
		a.historyMessages = n
		return nil
	}
}

// WithMaxIterations bounds the number of model calls per run.
func WithMaxIterations(n int) Option {
	return func(a *Agent) error {
		if n <= 0 {
			return NewInvalidInputError("max iterations must be > 0")
		}
		a.maxIterations = n
		return nil
	}
}

// WithUserID sets the default user id for runs without one in the context.
func WithUserID(userID string) Option {
	return func(a *Agent) error {
		a.userID = userID
		return nil
	}
}

// WithRunID sets the default run id for runs without one in the context.
func WithRunID(runID string) Option {
	return func(a *Agent) error {
		a.runID = runID
		return nil
	}
}

// WithEventEmitter receives semantic run events.
func WithEventEmitter(emitter core.EventEmitter) Option {
	return func(a *Agent) error {
		if emitter == nil {
			emitter = core.NoopEventEmitter{}
		}
		a.emitter = emitter
		return nil
	}
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Role returns the agent role.
func (a *Agent) Role() string { return a.role }

// Model returns the configured model id.
func (a *Agent) Model() string { return a.model }

// Team returns the member agents.
func (a *Agent) Team() []*Agent { return append([]*Agent(nil), a.team...) }

// ShowToolCalls reports whether tool invocations are printed.
func (a *Agent) ShowToolCalls() bool { return a.showToolCalls }

// Tools returns the agent's own tools, without team or knowledge tools.
func (a *Agent) Tools() []core.Tool { return append([]core.Tool(nil), a.tools...) }

// toolset returns every tool offered to the model on a run.
func (a *Agent) toolset() []core.Tool {
	set := make([]core.Tool, 0, len(a.tools)+len(a.team)+2)
	set = append(set, a.tools...)
	for _, m := range a.team {
		set = append(set, newTransferTool(m))
	}
	if a.knowledge != nil && a.searchKnowledge {
		set = append(set, a.knowledge.SearchTool())
	}
	if a.history != nil && a.readChatHistory {
		set = append(set, a.chatHistoryTool())
	}
	return set
}

func (a *Agent) emitEvent(ctx context.Context, eventType core.EventType, runID string, payload map[string]any) {
	a.emitter.Emit(ctx, core.NewEvent(eventType, a.name, runID, payload))
}
