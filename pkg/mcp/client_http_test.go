// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func TestClient_StreamableHTTP_ListTools(t *testing.T) {
	server := mcpserver.NewMCPServer("test-http", "1.0.0")
	server.AddTool(mcpgo.NewTool("ping"), func(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return &mcpgo.CallToolResult{
			Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: "ok"}},
		}, nil
	})

	httpServer := mcpserver.NewTestStreamableHTTPServer(server)
	defer httpServer.Close()

	client, err := NewClientWithStreamableHTTP(context.Background(), httpServer.URL)
	if err != nil {
		t.Fatalf("NewClientWithStreamableHTTP error: %v", err)
	}
	defer client.Close()

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) == 0 || tools[0].Name != "ping" {
		t.Fatalf("Expected tool 'ping', got %+v", tools)
	}

	wrapped, err := client.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools error: %v", err)
	}
	if len(wrapped) != 1 || wrapped[0].Name() != "ping" {
		t.Fatalf("Expected adapter for 'ping', got %+v", wrapped)
	}
	out, err := wrapped[0].Call(context.Background(), nil)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("Expected 'ok', got %v", out)
	}
}
