// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionToolCall(t *testing.T) {
	tool := NewFunctionTool("echo", "Echo the query",
		Object(map[string]any{"query": String("text")}, "query"),
		func(_ context.Context, args map[string]any) (any, error) {
			return StringArg(args, "query") + "!", nil
		})

	def := tool.ToolDefinition()
	assert.Equal(t, llm.ToolTypeFunction, def.Type)
	assert.Equal(t, "echo", def.Function.Name)
	assert.Equal(t, []string{"query"}, def.Function.Parameters.(map[string]any)["required"])

	out, err := tool.Call(context.Background(), `{"query":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
}

func TestNormalizeArgs(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  map[string]any
	}{
		{"nil", nil, map[string]any{}},
		{"empty string", "  ", map[string]any{}},
		{"json string", `{"a":1}`, map[string]any{"a": float64(1)}},
		{"plain string", "NVDA", map[string]any{"input": "NVDA"}},
		{"raw", json.RawMessage(`{"b":"x"}`), map[string]any{"b": "x"}},
		{"struct", struct {
			Symbol string `json:"symbol"`
		}{"AAPL"}, map[string]any{"symbol": "AAPL"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeArgs(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := NormalizeArgs([]byte("{bad"))
	assert.Error(t, err)
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{"n": float64(3), "s": " x ", "bad": "abc", "str": "7"}
	assert.Equal(t, 3, IntArg(args, "n", 5))
	assert.Equal(t, 5, IntArg(args, "missing", 5))
	assert.Equal(t, 5, IntArg(args, "bad", 5))
	assert.Equal(t, 7, IntArg(args, "str", 5))
	assert.Equal(t, "x", StringArg(args, "s"))
}

func TestRender(t *testing.T) {
	assert.Equal(t, "text", Render("text"))
	assert.Equal(t, `{"price":1.5}`, Render(map[string]any{"price": 1.5}))
	assert.Equal(t, "", Render(nil))
}
