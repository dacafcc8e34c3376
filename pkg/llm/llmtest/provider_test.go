// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package llmtest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioProviderScript(t *testing.T) {
	p := NewScenarioProvider().
		AddToolCallResponse(NewToolCall("get_current_stock_price").WithArg("symbol", "NVDA").Build()).
		AddResponse("done").
		AddErrorResponse(errors.New("boom"))

	ctx := context.Background()
	first, err := p.Chat(ctx, llm.ChatRequest{Model: "m"})
	require.NoError(t, err)
	require.Len(t, first.ToolCalls, 1)
	assert.Equal(t, `{"symbol":"NVDA"}`, first.ToolCalls[0].Function.Arguments)

	second, err := p.Chat(ctx, llm.ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "done", second.Content)

	_, err = p.Chat(ctx, llm.ChatRequest{Model: "m"})
	assert.EqualError(t, err, "boom")

	_, err = p.Chat(ctx, llm.ChatRequest{Model: "m"})
	assert.Error(t, err)
	assert.Equal(t, 4, p.CallCount())
}

func TestScenarioProviderStream(t *testing.T) {
	p := NewScenarioProvider().AddResponse("hello streaming world")
	chunks, err := p.ChatStream(context.Background(), llm.ChatRequest{})
	require.NoError(t, err)

	var b strings.Builder
	done := false
	for c := range chunks {
		b.WriteString(c.Content)
		if c.Done {
			done = true
		}
	}
	assert.True(t, done)
	assert.Equal(t, "hello streaming world", b.String())
}
