// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package playground

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/jllopis/agentdeck/internal/httpx"
	"github.com/jllopis/agentdeck/pkg/agent"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/session"
)

const maxRunBody = 1 << 20

// RunRequest is the body of a run, and each websocket message.
type RunRequest struct {
	Message    string `json:"message"`
	Stream     bool   `json:"stream,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	NewSession bool   `json:"new_session,omitempty"`
}

// RunResponse is returned by non-streaming runs.
type RunResponse struct {
	*agent.Response
	SessionID string `json:"session_id"`
	Resumed   bool   `json:"resumed"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	a, err := s.agent(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody)).Decode(&req); err != nil {
		httpx.WriteError(w, errors.New(errors.CodeInvalidInput, "invalid request body", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		httpx.WriteError(w, agent.NewInvalidInputError("message is required"))
		return
	}

	ctx, res, err := s.resolve(r.Context(), a, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if !req.Stream {
		resp, err := a.Run(ctx, req.Message)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, RunResponse{Response: resp, SessionID: res.RunID, Resumed: res.Resumed})
		return
	}

	events, err := a.RunStream(ctx, req.Message)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Session-Id", res.RunID)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			s.logger.WarnContext(ctx, "playground.stream.write_error", slog.String("error", err.Error()))
			return
		}
		_ = rc.Flush()
	}
}

// resolve picks the session for a request and returns a context carrying
// its user and run ids. An explicit session id is created when unknown and
// is only resumed by the user that owns it.
func (s *Server) resolve(ctx context.Context, a *agent.Agent, req RunRequest) (context.Context, session.Resolution, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = defaultUserID
	}

	var res session.Resolution
	if id := strings.TrimSpace(req.SessionID); id != "" {
		run, err := s.sessions.GetRun(ctx, id)
		switch {
		case err == nil:
			if run.UserID != userID {
				return ctx, res, errors.New(errors.CodeNotFound, "session not found", nil).
					WithContext("session_id", id)
			}
			if err := s.sessions.TouchRun(ctx, id); err != nil {
				return ctx, res, errors.New(errors.CodeMemoryError, "failed to resume session", err)
			}
			res = session.Resolution{RunID: id, Resumed: true}
		case errors.HasCode(err, errors.CodeNotFound):
			now := time.Now().UTC()
			run := session.Run{RunID: id, UserID: userID, AgentName: a.Name(), CreatedAt: now, UpdatedAt: now}
			if err := s.sessions.CreateRun(ctx, run); err != nil {
				return ctx, res, errors.New(errors.CodeMemoryError, "failed to create session", err)
			}
			res = session.Resolution{RunID: id}
		default:
			return ctx, res, errors.New(errors.CodeMemoryError, "failed to load session", err)
		}
	} else {
		var err error
		res, err = session.Resolve(ctx, s.sessions, userID, a.Name(), req.NewSession)
		if err != nil {
			return ctx, res, err
		}
	}

	ctx = core.WithUserID(ctx, userID)
	ctx = core.WithRunID(ctx, res.RunID)
	return ctx, res, nil
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	a, err := s.agent(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "playground.ws.accept_error", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxRunBody)

	ctx := r.Context()
	for {
		var req RunRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				s.logger.DebugContext(ctx, "playground.ws.read_error", slog.String("error", err.Error()))
			}
			return
		}
		if err := s.streamOverWebsocket(ctx, conn, a, req); err != nil {
			s.logger.WarnContext(ctx, "playground.ws.write_error", slog.String("error", err.Error()))
			return
		}
	}
}

// streamOverWebsocket runs one request and writes its events. Run failures
// are sent as error events and keep the connection open.
func (s *Server) streamOverWebsocket(ctx context.Context, conn *websocket.Conn, a *agent.Agent, req RunRequest) error {
	runCtx, _, err := s.resolve(ctx, a, req)
	if err != nil {
		return wsjson.Write(ctx, conn, errorEvent(a, err))
	}
	events, err := a.RunStream(runCtx, req.Message)
	if err != nil {
		return wsjson.Write(ctx, conn, errorEvent(a, err))
	}
	for ev := range events {
		if err := wsjson.Write(ctx, conn, ev); err != nil {
			return err
		}
	}
	return nil
}

func errorEvent(a *agent.Agent, err error) agent.Event {
	return agent.Event{Type: agent.EventError, Agent: a.Name(), Error: errors.UserMessage(err)}
}
