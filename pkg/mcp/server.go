// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/tools"
)

// inputSchema is advertised for tools that do not describe their arguments.
var inputSchema = json.RawMessage(`{"type":"object","properties":{"input":{"type":"string"}}}`)

// Server exposes agent tools to MCP clients.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server.
func NewServer(name, version string) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		logger:    slog.Default(),
	}
}

// RegisterTool registers a raw MCP handler with the server.
func (s *Server) RegisterTool(name, description string, schema json.RawMessage, handler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)) {
	if len(schema) == 0 {
		schema = inputSchema
	}
	tool := mcp.NewToolWithRawSchema(name, description, schema)
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handler(ctx, request.GetArguments())
	})
}

// Register publishes core tools. Tools that implement core.ToolDefiner keep
// their JSON schema; the rest take a single "input" string.
func (s *Server) Register(ts ...core.Tool) error {
	for _, t := range ts {
		if t == nil {
			return errors.New(errors.CodeInvalidInput, "mcp: nil tool", nil)
		}
		description := ""
		var schema json.RawMessage
		if definer, ok := t.(core.ToolDefiner); ok {
			def := definer.ToolDefinition()
			description = def.Function.Description
			if def.Function.Parameters != nil {
				raw, err := json.Marshal(def.Function.Parameters)
				if err != nil {
					return errors.New(errors.CodeInvalidInput, "mcp: invalid tool schema", err).
						WithContext("tool_name", t.Name())
				}
				schema = raw
			}
		}
		s.RegisterTool(t.Name(), description, schema, s.callHandler(t))
	}
	return nil
}

func (s *Server) callHandler(t core.Tool) func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := t.Call(ctx, args)
		if err != nil {
			s.logger.WarnContext(ctx, "mcp.tool.error",
				slog.String("tool", t.Name()),
				slog.String("error", err.Error()),
			)
			return mcp.NewToolResultError(errors.UserMessage(err)), nil
		}
		s.logger.DebugContext(ctx, "mcp.tool.call",
			slog.String("tool", t.Name()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return mcp.NewToolResultText(tools.Render(result)), nil
	}
}

// Handler returns the streamable HTTP transport as an http.Handler.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// ServeStdio starts the server on Stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeStreamableHTTP listens on addr and serves the /mcp endpoint.
func (s *Server) ServeStreamableHTTP(addr string) error {
	return server.NewStreamableHTTPServer(s.mcpServer).Start(addr)
}
