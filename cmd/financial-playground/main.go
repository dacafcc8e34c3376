// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Command financial-playground serves web_search_agent and financial_agent
// over HTTP, with their tools published on /mcp.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jllopis/agentdeck/internal/assistants"
	"github.com/jllopis/agentdeck/internal/bootstrap"
	"github.com/jllopis/agentdeck/internal/cli"
	"github.com/jllopis/agentdeck/pkg/agent"
	"github.com/jllopis/agentdeck/pkg/playground"
)

var defaults = map[string]any{
	"storage.backend":    "sqlite",
	"db_url":             "sqlite://agents.db",
	"storage.runs_table": "playground_runs",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		cli.Fatal(err)
	}
}

func run(args []string) error {
	flags, err := cli.Parse("financial-playground", args, nil)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	app, err := bootstrap.Start(ctx, "financial-playground", flags.Options(defaults))
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	f, err := assistants.FinancialFromApp(ctx, app)
	if err != nil {
		return err
	}
	web, finance, err := f.Members()
	if err != nil {
		return err
	}
	sessions, _, err := app.Sessions(ctx)
	if err != nil {
		return err
	}

	opts := []playground.Option{
		playground.WithSessionStore(sessions),
		playground.WithLogger(app.Logger),
	}
	if app.Config.MCP.Expose {
		opts = append(opts, playground.WithMCP())
	}
	srv, err := playground.New([]*agent.Agent{web, finance}, opts...)
	if err != nil {
		return err
	}

	app.WatchConfig(ctx)
	app.Logger.InfoContext(ctx, "playground.listen",
		slog.String("addr", app.Config.Server.Addr),
		slog.Bool("mcp", app.Config.MCP.Expose),
	)
	return app.Serve(ctx, srv)
}
