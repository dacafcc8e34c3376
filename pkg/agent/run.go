// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/jllopis/agentdeck/pkg/telemetry"
	"github.com/jllopis/agentdeck/pkg/tools"
)

// Response is the outcome of a run.
type Response struct {
	Content    string     `json:"content"`
	RunID      string     `json:"run_id"`
	Agent      string     `json:"agent"`
	Model      string     `json:"model,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Usage      llm.Usage  `json:"usage"`
	Iterations int        `json:"iterations"`
}

// ToolCall records one tool invocation made during a run, including those
// made by team members.
type ToolCall struct {
	ID         string  `json:"id"`
	Agent      string  `json:"agent"`
	Name       string  `json:"name"`
	Arguments  string  `json:"arguments"`
	Result     string  `json:"result,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	media []llm.Media
}

// WithMedia attaches remote media (such as a processed video) to the user message.
func WithMedia(media ...llm.Media) RunOption {
	return func(c *runConfig) {
		c.media = append(c.media, media...)
	}
}

func newRunConfig(opts []RunOption) runConfig {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

var (
	metricsOnce sync.Once
	metrics     *telemetry.AgentMetrics
)

func agentMetrics() *telemetry.AgentMetrics {
	metricsOnce.Do(func() {
		m, err := telemetry.NewAgentMetrics()
		if err != nil {
			slog.Warn("agent.metrics.init_error", slog.String("error", err.Error()))
			return
		}
		metrics = m
		InitErrorMetrics()
	})
	return metrics
}

// Run sends input to the model and executes tool calls until the model
// answers without calling tools or MaxIterations is reached.
func (a *Agent) Run(ctx context.Context, input string, opts ...RunOption) (*Response, error) {
	return a.run(ctx, input, newRunConfig(opts), nil)
}

// run is shared by Run and RunStream. emit is nil for non-streaming runs.
func (a *Agent) run(ctx context.Context, input string, cfg runConfig, emit func(Event)) (*Response, error) {
	if strings.TrimSpace(input) == "" && len(cfg.media) == 0 {
		return nil, NewInvalidInputError("input is required")
	}
	runID := a.runID
	if id, ok := core.RunID(ctx); ok {
		runID = id
	}
	if runID == "" {
		runID = core.NewRunID()
	}
	ctx = core.WithRunID(ctx, runID)
	userID := a.userID
	if id, ok := core.UserID(ctx); ok {
		userID = id
	}
	if userID != "" {
		ctx = core.WithUserID(ctx, userID)
	}

	ctx, span := a.tracer.Start(ctx, "Agent.Run")
	defer span.End()
	span.SetAttributes(telemetry.AgentAttributes(a.name, a.role, a.model, runID, userID, a.maxIterations)...)

	m := agentMetrics()
	agentAttr := metric.WithAttributes(attribute.String("agent", a.name))
	if m != nil {
		m.Runs.Add(ctx, 1, agentAttr)
	}
	start := time.Now()

	slog.InfoContext(ctx, "agent.run.start",
		slog.String("agent", a.name),
		slog.String("run_id", runID),
		slog.String("user_id", userID),
		slog.Int("media", len(cfg.media)),
	)
	a.emitEvent(ctx, core.EventAgentTaskStarted, runID, map[string]any{"input": telemetry.Truncate(input, 200)})

	resp, err := a.loop(ctx, span, runID, input, cfg, emit)
	if err != nil {
		if m != nil {
			m.RunErrors.Add(ctx, 1, agentAttr)
		}
		GetErrorMetrics().RecordError(ctx, err, "agent")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "agent.run.error",
			slog.String("agent", a.name),
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
			slog.String("error_code", string(errors.As(err).Code)),
		)
		a.emitEvent(ctx, core.EventAgentError, runID, map[string]any{"error": err.Error()})
		return nil, err
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if m != nil {
		m.RunLatencyMs.Record(ctx, elapsed, agentAttr)
	}
	span.SetStatus(codes.Ok, "")
	slog.InfoContext(ctx, "agent.run.complete",
		slog.String("agent", a.name),
		slog.String("run_id", runID),
		slog.Int("iterations", resp.Iterations),
		slog.Int("tool_calls", len(resp.ToolCalls)),
		slog.Float64("duration_ms", elapsed),
	)
	a.emitEvent(ctx, core.EventAgentTaskCompleted, runID, map[string]any{
		"iterations": resp.Iterations,
		"tool_calls": len(resp.ToolCalls),
	})
	return resp, nil
}

func (a *Agent) loop(ctx context.Context, span trace.Span, runID, input string, cfg runConfig, emit func(Event)) (*Response, error) {
	messages, historyCount, err := a.buildMessages(ctx, runID, input, cfg)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.HistoryAttributes(a.history != nil && a.historyMessages > 0, historyCount)...)

	toolset := a.toolset()
	byName := make(map[string]core.Tool, len(toolset))
	for _, t := range toolset {
		byName[t.Name()] = t
	}
	span.SetAttributes(telemetry.ToolsetAttributes(toolNames(toolset), len(a.team))...)
	defs := toolDefinitions(toolset)

	resp := &Response{RunID: runID, Agent: a.name, Model: a.model}
	for iter := 1; iter <= a.maxIterations; iter++ {
		out, err := a.chat(ctx, llm.ChatRequest{Model: a.model, Messages: messages, Tools: defs}, iter, emit)
		if err != nil {
			return nil, err
		}
		resp.Usage.Add(out.Usage)
		resp.Iterations = iter

		if len(out.ToolCalls) == 0 {
			resp.Content = out.Content
			// Only completed exchanges are stored.
			a.remember(ctx, runID, llm.RoleUser, input)
			a.remember(ctx, runID, llm.RoleAssistant, out.Content)
			return resp, nil
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: out.Content, ToolCalls: out.ToolCalls})
		for _, tc := range out.ToolCalls {
			if emit != nil {
				emit(Event{Type: EventToolCall, Agent: a.name, ToolCall: &ToolCall{
					ID: tc.ID, Agent: a.name, Name: tc.Function.Name, Arguments: tc.Function.Arguments,
				}})
			}
			record, nested, err := a.callTool(ctx, byName, tc)
			if err != nil {
				return nil, err
			}
			resp.ToolCalls = append(resp.ToolCalls, nested...)
			resp.ToolCalls = append(resp.ToolCalls, record)
			if emit != nil {
				rec := record
				emit(Event{Type: EventToolResult, Agent: a.name, ToolCall: &rec})
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    record.Result,
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
			})
		}
	}
	return nil, WrapTimeoutError(
		fmt.Errorf("no final answer after %d model calls", a.maxIterations),
		"agent.run", a.maxIterations)
}

// chat performs one model call, streaming content through emit when possible.
func (a *Agent) chat(ctx context.Context, req llm.ChatRequest, iteration int, emit func(Event)) (*llm.ChatResponse, error) {
	ctx, span := a.tracer.Start(ctx, "Agent.LLM.Chat")
	defer span.End()
	span.SetAttributes(telemetry.LLMAttributes(a.model, len(req.Messages), iteration)...)

	start := time.Now()
	var (
		out *llm.ChatResponse
		err error
	)
	if sp, ok := a.provider.(llm.StreamingProvider); ok && emit != nil {
		out, err = a.chatStream(ctx, sp, req, emit)
	} else {
		out, err = a.provider.Chat(ctx, req)
		if err == nil && out != nil && out.Content != "" && emit != nil {
			emit(Event{Type: EventContent, Agent: a.name, Content: out.Content})
		}
	}
	if err == nil && out == nil {
		err = fmt.Errorf("provider returned no response")
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		werr := WrapLLMError(err, a.model)
		span.RecordError(werr)
		span.SetStatus(codes.Error, werr.Error())
		return nil, werr
	}

	span.SetAttributes(telemetry.LLMUsageAttributes(out.Usage.PromptTokens, out.Usage.CompletionTokens, len(out.ToolCalls), elapsed)...)
	if m := agentMetrics(); m != nil {
		attrs := metric.WithAttributes(attribute.String("model", a.model))
		m.LLMLatencyMs.Record(ctx, elapsed, attrs)
		if out.Usage.TotalTokens > 0 {
			m.Tokens.Add(ctx, int64(out.Usage.TotalTokens), attrs)
		}
	}
	slog.DebugContext(ctx, "agent.llm.response",
		slog.String("agent", a.name),
		slog.Int("iteration", iteration),
		slog.Int("tool_calls", len(out.ToolCalls)),
		slog.Float64("duration_ms", elapsed),
	)
	return out, nil
}

func (a *Agent) chatStream(ctx context.Context, sp llm.StreamingProvider, req llm.ChatRequest, emit func(Event)) (*llm.ChatResponse, error) {
	chunks, err := sp.ChatStream(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &llm.ChatResponse{}
	var content strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			go func() {
				for range chunks {
				}
			}()
			return nil, chunk.Error
		}
		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			emit(Event{Type: EventContent, Agent: a.name, Content: chunk.Content})
		}
		if len(chunk.ToolCalls) > 0 {
			out.ToolCalls = append(out.ToolCalls, chunk.ToolCalls...)
		}
		if chunk.Usage != nil {
			out.Usage = *chunk.Usage
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out.Content = content.String()
	return out, nil
}

// callTool executes one tool call. Delegations return the member's tool calls
// as nested records.
func (a *Agent) callTool(ctx context.Context, byName map[string]core.Tool, tc llm.ToolCall) (ToolCall, []ToolCall, error) {
	name := tc.Function.Name
	record := ToolCall{ID: tc.ID, Agent: a.name, Name: name, Arguments: tc.Function.Arguments}

	tool, ok := byName[name]
	if !ok {
		return record, nil, WrapToolError(NewNotFoundError("tool", name), name, tc.ID)
	}

	ctx, span := a.tracer.Start(ctx, "Agent.Tool.Call")
	defer span.End()

	runID, _ := core.RunID(ctx)
	if strings.HasPrefix(name, transferToolPrefix) {
		a.emitEvent(ctx, core.EventAgentDelegation, runID, map[string]any{"tool": name})
	} else {
		a.emitEvent(ctx, core.EventAgentToolCall, runID, map[string]any{"tool": name})
	}

	start := time.Now()
	result, err := tool.Call(ctx, tc.Function.Arguments)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	record.DurationMs = elapsed

	span.SetAttributes(telemetry.ToolCallAttributes(name, tc.ID, elapsed, err == nil)...)
	if m := agentMetrics(); m != nil {
		attrs := metric.WithAttributes(
			attribute.String("tool", name),
			attribute.Bool("success", err == nil),
		)
		m.ToolCalls.Add(ctx, 1, attrs)
		m.ToolLatencyMs.Record(ctx, elapsed, attrs)
	}
	if err != nil {
		werr := WrapToolError(err, name, tc.ID)
		span.RecordError(werr)
		span.SetStatus(codes.Error, werr.Error())
		slog.WarnContext(ctx, "agent.tool.error",
			slog.String("agent", a.name),
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		return record, nil, werr
	}

	var nested []ToolCall
	if member, ok := result.(*Response); ok {
		record.Result = member.Content
		nested = member.ToolCalls
	} else {
		record.Result = tools.Render(result)
	}
	span.SetAttributes(telemetry.ToolCallArgsResult(record.Arguments, record.Result, 500)...)
	slog.InfoContext(ctx, "agent.tool.call",
		slog.String("agent", a.name),
		slog.String("tool", name),
		slog.Float64("duration_ms", elapsed),
	)
	return record, nested, nil
}
