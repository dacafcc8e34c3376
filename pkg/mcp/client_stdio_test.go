// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/agentdeck/pkg/tools"
)

const stdioHelperEnv = "AGENTDECK_MCP_STDIO_HELPER"

// TestHelperStdioServer is re-executed by the stdio tests as the MCP server
// process. It publishes a quote tool through Server.
func TestHelperStdioServer(t *testing.T) {
	if os.Getenv(stdioHelperEnv) != "1" {
		return
	}
	srv := NewServer("quotes", "1.0.0")
	quote := tools.NewFunctionTool("get_current_stock_price", "Latest price for a ticker",
		tools.Object(map[string]any{"symbol": tools.String("ticker symbol")}, "symbol"),
		func(_ context.Context, args map[string]any) (any, error) {
			return fmt.Sprintf("%v: 120.50", args["symbol"]), nil
		})
	if err := srv.Register(quote); err != nil {
		os.Exit(2)
	}
	if err := srv.ServeStdio(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func stdioClient(t *testing.T) *Client {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	c, err := NewClientWithStdio(context.Background(), exe,
		[]string{"-test.run", "^TestHelperStdioServer$"},
		[]string{stdioHelperEnv + "=1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Stdio(t *testing.T) {
	c := stdioClient(t)
	ctx := context.Background()

	listed, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "get_current_stock_price", listed[0].Name)

	result, err := c.CallTool(ctx, "get_current_stock_price", map[string]any{"symbol": "NVDA"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "NVDA: 120.50", extractTextContent(result.Content))
}

func TestClient_Stdio_AsCoreTools(t *testing.T) {
	c := stdioClient(t)
	ts, err := c.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, ts, 1)

	out, err := ts[0].Call(context.Background(), map[string]any{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL: 120.50", out)
}
