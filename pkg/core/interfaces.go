// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package core holds the small set of interfaces and context helpers shared by
// agents, tools and front-ends.
package core

import (
	"context"

	"github.com/jllopis/agentdeck/pkg/llm"
)

// Tool is an opaque callable capability (web search, stock lookup, knowledge search).
type Tool interface {
	Name() string
	Call(ctx context.Context, input any) (any, error)
}

// ToolDefiner is implemented by tools that can describe themselves to an LLM.
type ToolDefiner interface {
	ToolDefinition() llm.Tool
}
