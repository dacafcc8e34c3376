// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package playground serves a set of agents over HTTP so they can be tried
// interactively: list agents, run them (buffered, NDJSON or websocket) and
// browse a user's sessions.
package playground

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jllopis/agentdeck/internal/httpx"
	"github.com/jllopis/agentdeck/pkg/agent"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/mcp"
	"github.com/jllopis/agentdeck/pkg/session"
)

const (
	apiPrefix     = "/v1/playground"
	defaultUserID = "user"
	serverName    = "agentdeck-playground"
	serverVersion = "0.1.0"
)

// Server routes playground requests to the registered agents.
type Server struct {
	agents   map[string]*agent.Agent
	order    []string
	sessions session.Store
	metrics  *httpx.Metrics
	mcp      *mcp.Server
	logger   *slog.Logger
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server) error

// WithSessionStore persists sessions in store instead of process memory.
func WithSessionStore(store session.Store) Option {
	return func(s *Server) error {
		if store == nil {
			return errors.New(errors.CodeInvalidInput, "session store is nil", nil)
		}
		s.sessions = store
		return nil
	}
}

// WithMCP publishes the tools of every agent on /mcp.
func WithMCP() Option {
	return func(s *Server) error {
		srv := mcp.NewServer(serverName, serverVersion)
		seen := map[string]bool{}
		for _, name := range s.order {
			for _, tool := range s.agents[name].Tools() {
				if seen[tool.Name()] {
					continue
				}
				seen[tool.Name()] = true
				if err := srv.Register(tool); err != nil {
					return err
				}
			}
		}
		s.mcp = srv
		return nil
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// New builds a playground for agents. Agent names must be unique.
func New(agents []*agent.Agent, opts ...Option) (*Server, error) {
	if len(agents) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "playground needs at least one agent", nil)
	}
	s := &Server{
		agents:   make(map[string]*agent.Agent, len(agents)),
		sessions: session.NewMemoryStore(),
		metrics:  httpx.NewMetrics("agentdeck_playground"),
		logger:   slog.Default(),
		mux:      http.NewServeMux(),
	}
	for _, a := range agents {
		if a == nil {
			return nil, errors.New(errors.CodeInvalidInput, "playground agent is nil", nil)
		}
		if _, dup := s.agents[a.Name()]; dup {
			return nil, errors.New(errors.CodeInvalidInput, "duplicate agent name", nil).
				WithContext("agent", a.Name())
		}
		s.agents[a.Name()] = a
		s.order = append(s.order, a.Name())
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.handle("GET "+apiPrefix+"/status", s.handleStatus)
	s.handle("GET "+apiPrefix+"/agents", s.handleAgents)
	s.handle("POST "+apiPrefix+"/agents/{agent}/runs", s.handleRun)
	s.handle("GET "+apiPrefix+"/agents/{agent}/ws", s.handleWebsocket)
	s.handle("GET "+apiPrefix+"/agents/{agent}/sessions", s.handleSessions)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	if s.mcp != nil {
		s.mux.Handle("/mcp", s.mcp.Handler())
	}
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	route := pattern[strings.IndexByte(pattern, ' ')+1:]
	s.mux.Handle(pattern, s.metrics.Wrap(route, h))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	return httpx.Serve(ctx, &http.Server{Addr: addr, Handler: s})
}

type agentInfo struct {
	Name          string   `json:"name"`
	Role          string   `json:"role,omitempty"`
	Model         string   `json:"model,omitempty"`
	Tools         []string `json:"tools"`
	Team          []string `json:"team,omitempty"`
	ShowToolCalls bool     `json:"show_tool_calls"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"playground": "available",
		"agents":     len(s.order),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	out := make([]agentInfo, 0, len(s.order))
	for _, name := range s.order {
		a := s.agents[name]
		info := agentInfo{
			Name:          a.Name(),
			Role:          a.Role(),
			Model:         a.Model(),
			Tools:         toolNames(a.Tools()),
			ShowToolCalls: a.ShowToolCalls(),
		}
		for _, member := range a.Team() {
			info.Team = append(info.Team, member.Name())
		}
		out = append(out, info)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if _, err := s.agent(r); err != nil {
		httpx.WriteError(w, err)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		httpx.WriteError(w, errors.New(errors.CodeInvalidInput, "user_id is required", nil))
		return
	}
	ids, err := s.sessions.ListRunIDs(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, errors.New(errors.CodeMemoryError, "failed to list sessions", err))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"session_ids": ids,
	})
}

func (s *Server) agent(r *http.Request) (*agent.Agent, error) {
	name := r.PathValue("agent")
	a, ok := s.agents[name]
	if !ok {
		return nil, agent.NewNotFoundError("agent", name)
	}
	return a, nil
}

func toolNames(ts []core.Tool) []string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}
