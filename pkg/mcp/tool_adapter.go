// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/jllopis/agentdeck/pkg/tools"
)

// ToolCaller abstracts MCP tool execution for adapters.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ToolAdapter wraps a remote MCP tool so agents can call it like a local one.
type ToolAdapter struct {
	tool   mcp.Tool
	caller ToolCaller
}

// NewToolAdapter builds a core.Tool backed by an MCP tool definition and caller.
func NewToolAdapter(tool mcp.Tool, caller ToolCaller) (*ToolAdapter, error) {
	if tool.Name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool name is required", nil)
	}
	if caller == nil {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool caller is required", nil)
	}
	return &ToolAdapter{
		tool:   tool,
		caller: caller,
	}, nil
}

// Name returns the MCP tool name.
func (t *ToolAdapter) Name() string {
	return t.tool.Name
}

// ToolDefinition returns an LLM function definition for this tool.
func (t *ToolAdapter) ToolDefinition() llm.Tool {
	return ToolDefinition(t.tool)
}

// Call invokes the MCP tool with normalized arguments.
func (t *ToolAdapter) Call(ctx context.Context, input any) (any, error) {
	args, err := tools.NormalizeArgs(input)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "mcp tool args", err).
			WithContext("tool_name", t.tool.Name)
	}

	// A bare string goes to the single required field when there is one.
	if raw, ok := input.(string); ok {
		if _, plain := args["input"]; plain && len(t.tool.InputSchema.Required) == 1 {
			field := t.tool.InputSchema.Required[0]
			args = map[string]any{field: strings.TrimSpace(raw)}
		}
	}

	if err := validateRequiredArgs(t.tool, args); err != nil {
		return nil, err
	}

	result, err := t.caller.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool call failed", err).
			WithContext("tool_name", t.tool.Name)
	}

	return toolResultToOutput(t.tool.Name, result)
}

// ToolDefinition converts an MCP tool into an LLM function tool definition.
func ToolDefinition(tool mcp.Tool) llm.Tool {
	var params any = tool.InputSchema
	if tool.RawInputSchema != nil {
		params = tool.RawInputSchema
	}
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		},
	}
}

func validateRequiredArgs(tool mcp.Tool, args map[string]any) error {
	schema := tool.InputSchema
	if schema.Type != "" && schema.Type != "object" {
		return nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return errors.New(errors.CodeInvalidInput, "mcp tool args: missing required field "+key, nil).
				WithContext("tool_name", tool.Name)
		}
	}
	return nil
}

func toolResultToOutput(name string, result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool result is nil", nil).
			WithContext("tool_name", name)
	}

	if result.IsError {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool returned error: "+extractTextContent(result.Content), nil).
			WithContext("tool_name", name)
	}

	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}

	if text := extractTextContent(result.Content); text != "" {
		return text, nil
	}

	return result, nil
}

func extractTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ core.Tool = (*ToolAdapter)(nil)
