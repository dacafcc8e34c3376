// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires OpenTelemetry tracing and metrics, the trace-aware
// slog handler and the span attributes shared by agents, knowledge loading and
// media polling.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrAgentName      = "agentdeck.agent.name"
	AttrAgentRole      = "agentdeck.agent.role"
	AttrAgentModel     = "agentdeck.agent.model"
	AttrAgentRunID     = "agentdeck.agent.run_id"
	AttrAgentUserID    = "agentdeck.agent.user_id"
	AttrAgentIteration = "agentdeck.agent.iteration"
	AttrAgentMaxIter   = "agentdeck.agent.max_iterations"
	AttrAgentStream    = "agentdeck.agent.stream"

	AttrToolName       = "agentdeck.tool.name"
	AttrToolCallID     = "agentdeck.tool.call_id"
	AttrToolArgs       = "agentdeck.tool.arguments"
	AttrToolResult     = "agentdeck.tool.result"
	AttrToolDurationMs = "agentdeck.tool.duration_ms"
	AttrToolSuccess    = "agentdeck.tool.success"

	AttrToolsCount = "agentdeck.tools.count"
	AttrToolsNames = "agentdeck.tools.names"
	AttrTeamSize   = "agentdeck.team.size"

	AttrHistoryEnabled  = "agentdeck.history.enabled"
	AttrHistoryMessages = "agentdeck.history.message_count"

	AttrKnowledgeCollection = "agentdeck.knowledge.collection"
	AttrKnowledgeDocuments  = "agentdeck.knowledge.documents"
	AttrKnowledgeChunks     = "agentdeck.knowledge.chunks"
	AttrKnowledgeRecreate   = "agentdeck.knowledge.recreate"

	AttrMediaFile  = "agentdeck.media.file"
	AttrMediaState = "agentdeck.media.state"
	AttrMediaPolls = "agentdeck.media.polls"

	// LLM attributes follow the gen_ai semantic conventions.
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
	AttrLLMToolCalls    = "gen_ai.tool_calls"
)

// AgentAttributes returns common attributes for agent spans.
func AgentAttributes(name, role, model, runID, userID string, maxIter int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrAgentName, name),
		attribute.String(AttrAgentRunID, runID),
	}
	if role != "" {
		attrs = append(attrs, attribute.String(AttrAgentRole, role))
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrAgentModel, model))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String(AttrAgentUserID, userID))
	}
	if maxIter > 0 {
		attrs = append(attrs, attribute.Int(AttrAgentMaxIter, maxIter))
	}
	return attrs
}

// HistoryAttributes describes the chat history loaded into a run.
func HistoryAttributes(enabled bool, msgCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Bool(AttrHistoryEnabled, enabled)}
	if enabled {
		attrs = append(attrs, attribute.Int(AttrHistoryMessages, msgCount))
	}
	return attrs
}

// ToolCallAttributes returns attributes for a tool call span.
func ToolCallAttributes(name, callID string, durationMs float64, success bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.String(AttrToolCallID, callID),
		attribute.Float64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
}

// ToolCallArgsResult returns tool arguments and result truncated to maxLen.
func ToolCallArgsResult(args, result string, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = 500
	}
	var attrs []attribute.KeyValue
	if args != "" {
		attrs = append(attrs, attribute.String(AttrToolArgs, Truncate(args, maxLen)))
	}
	if result != "" {
		attrs = append(attrs, attribute.String(AttrToolResult, Truncate(result, maxLen)))
	}
	return attrs
}

// ToolsetAttributes describes the tools and team members available to a run.
func ToolsetAttributes(names []string, teamSize int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrToolsCount, len(names)),
	}
	if len(names) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrToolsNames, names))
	}
	if teamSize > 0 {
		attrs = append(attrs, attribute.Int(AttrTeamSize, teamSize))
	}
	return attrs
}

// LLMAttributes returns attributes for LLM call spans.
func LLMAttributes(model string, msgCount, iteration int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if iteration > 0 {
		attrs = append(attrs, attribute.Int(AttrAgentIteration, iteration))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens, toolCalls int, durationMs float64) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	if toolCalls > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMToolCalls, toolCalls))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrLLMDurationMs, durationMs))
	}
	return attrs
}

// KnowledgeAttributes describes a knowledge base load.
func KnowledgeAttributes(collection string, documents, chunks int, recreate bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrKnowledgeCollection, collection),
		attribute.Int(AttrKnowledgeDocuments, documents),
		attribute.Int(AttrKnowledgeChunks, chunks),
		attribute.Bool(AttrKnowledgeRecreate, recreate),
	}
}

// MediaAttributes describes a remote media file being polled.
func MediaAttributes(name, state string, polls int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(AttrMediaFile, name)}
	if state != "" {
		attrs = append(attrs, attribute.String(AttrMediaState, state))
	}
	if polls > 0 {
		attrs = append(attrs, attribute.Int(AttrMediaPolls, polls))
	}
	return attrs
}

// Truncate shortens s to maxLen bytes, appending an ellipsis when cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
