// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool shares MCP server connections between the agents of a process.
//
// Servers come from the mcp.servers config section. A connection is opened on
// first use and reused by every agent that asks for the same server:
//
//	p, err := pool.FromConfig(cfg.MCP.Servers)
//	defer p.Close()
//	extra, err := p.ToolsFor(ctx, "financial_agent")
package pool

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jllopis/agentdeck/pkg/config"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/mcp"
)

var (
	// ErrPoolClosed is returned when operations are attempted on a closed pool.
	ErrPoolClosed = stderrors.New("mcp pool is closed")

	// ErrServerNotFound is returned when requesting a connection to an unregistered server.
	ErrServerNotFound = stderrors.New("mcp server not found in pool")
)

// connector opens a client for a server. Tests replace it.
type connector func(ctx context.Context, server config.MCPServerConfig, opts ...mcp.ClientOption) (*mcp.Client, error)

// Pool manages shared MCP connections across multiple agents.
type Pool struct {
	mu      sync.Mutex
	servers map[string]config.MCPServerConfig
	clients map[string]*mcp.Client
	closed  atomic.Bool

	healthCheckInterval time.Duration
	clientOptions       []mcp.ClientOption
	connect             connector
	logger              *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	totalConnections   atomic.Int64
	connectionErrors   atomic.Int64
	healthChecksFailed atomic.Int64
}

// Option configures the connection pool.
type Option func(*Pool)

// WithHealthCheckInterval sets how often open connections are probed. Zero
// disables the background check.
func WithHealthCheckInterval(interval time.Duration) Option {
	return func(p *Pool) {
		if interval >= 0 {
			p.healthCheckInterval = interval
		}
	}
}

// WithClientOptions are applied to each client the pool opens.
func WithClientOptions(opts ...mcp.ClientOption) Option {
	return func(p *Pool) {
		p.clientOptions = append(p.clientOptions, opts...)
	}
}

// New creates an empty pool.
func New(opts ...Option) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		servers:             make(map[string]config.MCPServerConfig),
		clients:             make(map[string]*mcp.Client),
		healthCheckInterval: 30 * time.Second,
		connect:             dial,
		logger:              slog.Default(),
		ctx:                 ctx,
		cancel:              cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.healthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthChecker()
	}
	return p
}

// FromConfig creates a pool with every configured server registered.
func FromConfig(servers map[string]config.MCPServerConfig, opts ...Option) (*Pool, error) {
	p := New(opts...)
	for name, server := range servers {
		if err := p.Register(name, server); err != nil {
			_ = p.Close()
			return nil, err
		}
	}
	return p, nil
}

// Register adds a server. Connections are opened lazily by Get.
func (p *Pool) Register(name string, server config.MCPServerConfig) error {
	if name == "" {
		return errors.New(errors.CodeInvalidInput, "mcp server name is required", nil)
	}
	switch server.Transport {
	case "", "stdio":
		if server.Command == "" {
			return errors.New(errors.CodeInvalidInput, "mcp stdio server requires a command", nil).
				WithContext("server", name)
		}
	case "http":
		if server.URL == "" {
			return errors.New(errors.CodeInvalidInput, "mcp http server requires a url", nil).
				WithContext("server", name)
		}
	default:
		return errors.New(errors.CodeInvalidInput, "unknown mcp transport "+server.Transport, nil).
			WithContext("server", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.servers[name] = server
	return nil
}

// Get returns the shared client for a server, connecting on first use.
func (p *Pool) Get(ctx context.Context, name string) (*mcp.Client, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	server, ok := p.servers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}
	if client, ok := p.clients[name]; ok {
		return client, nil
	}

	client, err := p.connect(ctx, server, p.clientOptions...)
	if err != nil {
		p.connectionErrors.Add(1)
		return nil, err
	}
	p.clients[name] = client
	p.totalConnections.Add(1)
	p.logger.InfoContext(ctx, "mcp.pool.connect",
		slog.String("server", name),
		slog.String("transport", server.Transport),
	)
	return client, nil
}

// ToolsFor collects the tools of every server bound to agentName or to all
// agents, sorted by server name.
func (p *Pool) ToolsFor(ctx context.Context, agentName string) ([]core.Tool, error) {
	var out []core.Tool
	for _, name := range p.ListServers() {
		p.mu.Lock()
		server := p.servers[name]
		p.mu.Unlock()
		if server.Agent != "" && server.Agent != agentName {
			continue
		}
		client, err := p.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		ts, err := client.Tools(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, ts...)
	}
	return out, nil
}

// Close shuts down the pool and all connections.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}

	p.cancel()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, client := range p.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	p.clients = nil
	p.servers = nil
	return stderrors.Join(errs...)
}

// Stats contains pool metrics.
type Stats struct {
	RegisteredServers  int
	ActiveConnections  int
	TotalConnections   int
	ConnectionErrors   int
	HealthChecksFailed int
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	servers, active := len(p.servers), len(p.clients)
	p.mu.Unlock()
	return Stats{
		RegisteredServers:  servers,
		ActiveConnections:  active,
		TotalConnections:   int(p.totalConnections.Load()),
		ConnectionErrors:   int(p.connectionErrors.Load()),
		HealthChecksFailed: int(p.healthChecksFailed.Load()),
	}
}

// ListServers returns the names of all registered servers, sorted.
func (p *Pool) ListServers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.servers))
	for name := range p.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dial(ctx context.Context, server config.MCPServerConfig, opts ...mcp.ClientOption) (*mcp.Client, error) {
	if server.Transport == "http" {
		return mcp.NewClientWithStreamableHTTP(ctx, server.URL, opts...)
	}
	env := make([]string, 0, len(server.Env))
	for k, v := range server.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return mcp.NewClientWithStdio(ctx, server.Command, server.Args, env, opts...)
}

func (p *Pool) healthChecker() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runHealthChecks()
		}
	}
}

// runHealthChecks drops connections that fail to list tools; the next Get
// reconnects.
func (p *Pool) runHealthChecks() {
	p.mu.Lock()
	toCheck := make(map[string]*mcp.Client, len(p.clients))
	for name, client := range p.clients {
		toCheck[name] = client
	}
	p.mu.Unlock()

	for name, client := range toCheck {
		ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
		_, err := client.ListTools(ctx)
		cancel()
		if err == nil {
			continue
		}
		p.healthChecksFailed.Add(1)
		p.logger.Warn("mcp.pool.health_check_failed",
			slog.String("server", name),
			slog.String("error", err.Error()),
		)
		p.mu.Lock()
		if p.clients[name] == client {
			delete(p.clients, name)
			_ = client.Close()
		}
		p.mu.Unlock()
	}
}
