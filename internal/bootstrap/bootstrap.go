// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap is the composition root of the agentdeck binaries. It
// turns a config.Config into providers, stores, knowledge bases and servers
// and releases them on Close.
package bootstrap

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"google.golang.org/genai"

	"github.com/jllopis/agentdeck/internal/httpx"
	"github.com/jllopis/agentdeck/pkg/config"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/mcp/pool"
	"github.com/jllopis/agentdeck/pkg/memory"
	"github.com/jllopis/agentdeck/pkg/telemetry"
)

// Version is reported to the telemetry backend.
const Version = "0.1.0"

// App holds the shared resources of one binary.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	name    string
	watcher *config.Watcher

	mu      sync.Mutex
	genai   *genai.Client
	mcp     *pool.Pool
	vectors memory.VectorStore
	closers []func(context.Context) error
}

// Start loads the configuration described by opts, validates it, installs
// the slog logger and starts telemetry.
func Start(ctx context.Context, name string, opts config.LoadOptions) (*App, error) {
	w, err := config.NewWatcher(opts)
	if err != nil {
		return nil, err
	}
	cfg := w.Config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	app := New(name, cfg, logger)
	app.watcher = w

	shutdown, err := telemetry.InitWithConfig(cfg.Telemetry.ServiceName+"-"+name, Version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return nil, err
	}
	app.onClose(shutdown)

	logger.InfoContext(ctx, "app.start",
		slog.String("app", name),
		slog.String("provider", cfg.LLM.Provider),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("vector_store", cfg.Knowledge.VectorStore),
	)
	return app, nil
}

// New wraps an already loaded configuration.
func New(name string, cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{Config: cfg, Logger: logger, name: name}
}

// Name returns the binary name given to Start.
func (a *App) Name() string { return a.name }

// WatchConfig reloads the config and .env files while ctx is alive and
// applies log level and format changes.
func (a *App) WatchConfig(ctx context.Context) {
	if a.watcher == nil {
		return
	}
	a.watcher.OnChange(func(cfg *config.Config) {
		a.Logger = telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		a.Logger.Info("config.reloaded", slog.String("log_level", cfg.Log.Level))
	})
	a.watcher.Start(ctx)
	a.onClose(func(context.Context) error {
		a.watcher.Stop()
		return nil
	})
}

// MCPTools returns the tools of the configured MCP servers bound to
// agentName. The pool is created on first use.
func (a *App) MCPTools(ctx context.Context, agentName string) ([]core.Tool, error) {
	if len(a.Config.MCP.Servers) == 0 {
		return nil, nil
	}
	a.mu.Lock()
	if a.mcp == nil {
		p, err := pool.FromConfig(a.Config.MCP.Servers)
		if err != nil {
			a.mu.Unlock()
			return nil, err
		}
		a.mcp = p
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
	}
	p := a.mcp
	a.mu.Unlock()
	return p.ToolsFor(ctx, agentName)
}

// Serve runs h on the configured address until ctx is done.
func (a *App) Serve(ctx context.Context, h http.Handler) error {
	return httpx.Serve(ctx, &http.Server{Addr: a.Config.Server.Addr, Handler: h})
}

// MaxUploadBytes converts server.max_upload_mb to bytes.
func (a *App) MaxUploadBytes() int64 {
	return a.Config.Server.MaxUploadMB << 20
}

func (a *App) onClose(fn func(context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
