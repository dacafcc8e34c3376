// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools provides the function-tool adapter used by the built-in
// toolkits (web search, stock data, knowledge search).
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/llm"
)

// Handler executes a tool with decoded JSON arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Toolkit groups related tools.
type Toolkit interface {
	Tools() []core.Tool
}

// FunctionTool adapts a Handler to core.Tool and core.ToolDefiner.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	handler     Handler
}

// NewFunctionTool creates a tool. parameters is a JSON schema object; nil means
// a tool without arguments.
func NewFunctionTool(name, description string, parameters map[string]any, handler Handler) *FunctionTool {
	if parameters == nil {
		parameters = Object(nil)
	}
	return &FunctionTool{
		name:        strings.TrimSpace(name),
		description: description,
		parameters:  parameters,
		handler:     handler,
	}
}

// Name implements core.Tool.
func (t *FunctionTool) Name() string {
	return t.name
}

// Description returns the tool description shown to the model.
func (t *FunctionTool) Description() string {
	return t.description
}

// ToolDefinition implements core.ToolDefiner.
func (t *FunctionTool) ToolDefinition() llm.Tool {
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        t.name,
			Description: t.description,
			Parameters:  t.parameters,
		},
	}
}

// Call implements core.Tool.
func (t *FunctionTool) Call(ctx context.Context, input any) (any, error) {
	if t.handler == nil {
		return nil, errors.New("tool handler is nil")
	}
	args, err := NormalizeArgs(input)
	if err != nil {
		return nil, err
	}
	return t.handler(ctx, args)
}

// Object builds a JSON schema object from property schemas.
func Object(properties map[string]any, required ...string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// String is a string property schema.
func String(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Integer is an integer property schema.
func Integer(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// NormalizeArgs decodes tool input (JSON string, bytes or map) into a map.
// Non-JSON strings are passed as {"input": value}.
func NormalizeArgs(input any) (map[string]any, error) {
	switch value := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return value, nil
	case json.RawMessage:
		return decodeArgs(value)
	case []byte:
		return decodeArgs(value)
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return map[string]any{}, nil
		}
		if strings.HasPrefix(trimmed, "{") {
			if decoded, err := decodeArgs([]byte(trimmed)); err == nil {
				return decoded, nil
			}
		}
		return map[string]any{"input": value}, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("tool args: unsupported type %T", input)
		}
		return decodeArgs(encoded)
	}
}

func decodeArgs(raw []byte) (map[string]any, error) {
	decoded := map[string]any{}
	if len(raw) == 0 {
		return decoded, nil
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("tool args: invalid JSON: %w", err)
	}
	return decoded, nil
}

// StringArg returns args[key] as a trimmed string.
func StringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// IntArg returns args[key] as an int, or def when missing or invalid.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Render converts a tool result to the text returned to the model.
func Render(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
