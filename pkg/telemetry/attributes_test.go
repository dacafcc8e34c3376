// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestAgentAttributes(t *testing.T) {
	attrs := AgentAttributes("financial_agent", "Get financial information", "llama3-groq", "run-123", "ana", 10)

	assertAttributes(t, attrs, map[string]any{
		AttrAgentName:    "financial_agent",
		AttrAgentRunID:   "run-123",
		AttrAgentRole:    "Get financial information",
		AttrAgentModel:   "llama3-groq",
		AttrAgentUserID:  "ana",
		AttrAgentMaxIter: 10,
	})
}

func TestAgentAttributesOmitsEmpty(t *testing.T) {
	attrs := AgentAttributes("a", "", "", "r", "", 0)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

func TestHistoryAttributes(t *testing.T) {
	assertAttributes(t, HistoryAttributes(true, 4), map[string]any{
		AttrHistoryEnabled:  true,
		AttrHistoryMessages: 4,
	})
	if got := HistoryAttributes(false, 4); len(got) != 1 {
		t.Fatalf("expected only the enabled flag, got %d attrs", len(got))
	}
}

func TestToolCallAttributes(t *testing.T) {
	assertAttributes(t, ToolCallAttributes("duckduckgo_search", "call-1", 150.5, true), map[string]any{
		AttrToolName:       "duckduckgo_search",
		AttrToolCallID:     "call-1",
		AttrToolDurationMs: 150.5,
		AttrToolSuccess:    true,
	})
}

func TestToolCallArgsResultTruncation(t *testing.T) {
	long := strings.Repeat("x", 100)
	attrs := ToolCallArgsResult(long, "ok", 10)
	assertAttributes(t, attrs, map[string]any{
		AttrToolArgs:   strings.Repeat("x", 10) + "...",
		AttrToolResult: "ok",
	})
}

func TestToolsetAttributes(t *testing.T) {
	attrs := ToolsetAttributes([]string{"a", "b"}, 2)
	assertAttributes(t, attrs, map[string]any{
		AttrToolsCount: 2,
		AttrTeamSize:   2,
	})
}

func TestLLMUsageAttributes(t *testing.T) {
	assertAttributes(t, LLMUsageAttributes(100, 50, 2, 1234.5), map[string]any{
		AttrLLMTokensInput:  100,
		AttrLLMTokensOutput: 50,
		AttrLLMTokensTotal:  150,
		AttrLLMToolCalls:    2,
		AttrLLMDurationMs:   1234.5,
	})
}

func TestKnowledgeAndMediaAttributes(t *testing.T) {
	assertAttributes(t, KnowledgeAttributes("recipes", 1, 12, false), map[string]any{
		AttrKnowledgeCollection: "recipes",
		AttrKnowledgeDocuments:  1,
		AttrKnowledgeChunks:     12,
		AttrKnowledgeRecreate:   false,
	})
	assertAttributes(t, MediaAttributes("files/abc", "ACTIVE", 3), map[string]any{
		AttrMediaFile:  "files/abc",
		AttrMediaState: "ACTIVE",
		AttrMediaPolls: 3,
	})
}

func assertAttributes(t *testing.T, attrs []attribute.KeyValue, expected map[string]any) {
	t.Helper()

	found := make(map[string]attribute.KeyValue)
	for _, attr := range attrs {
		found[string(attr.Key)] = attr
	}

	for key, want := range expected {
		attr, ok := found[key]
		if !ok {
			t.Errorf("missing attribute %s", key)
			continue
		}
		var got any
		switch attr.Value.Type() {
		case attribute.STRING:
			got = attr.Value.AsString()
		case attribute.INT64:
			got = int(attr.Value.AsInt64())
		case attribute.FLOAT64:
			got = attr.Value.AsFloat64()
		case attribute.BOOL:
			got = attr.Value.AsBool()
		default:
			got = attr.Value.AsInterface()
		}
		if got != want {
			t.Errorf("attribute %s: got %v, want %v", key, got, want)
		}
	}
}
