// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/agentdeck/pkg/core"
)

// ConfigureSlog installs a slog logger writing to w as the default and
// returns it. Records logged with a context carry the span, run and user
// ids found in that context.
func ConfigureSlog(w io.Writer, level, format string) *slog.Logger {
	logger := slog.New(newSlogHandler(w, level, format))
	slog.SetDefault(logger)
	return logger
}

func newSlogHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &contextHandler{next: slog.NewJSONHandler(w, opts)}
	}
	return &contextHandler{next: slog.NewTextHandler(w, opts)}
}

// contextHandler decorates records with ids taken from the context. Keys
// already set on the record or the logger win.
type contextHandler struct {
	next slog.Handler
	// bound holds the keys added through WithAttrs.
	bound map[string]bool
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.next.Handle(ctx, r)
	}
	present := h.keys(r)
	add := func(key, value string) {
		if value != "" && !present[key] {
			r.AddAttrs(slog.String(key, value))
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		add("trace_id", sc.TraceID().String())
		add("span_id", sc.SpanID().String())
	}
	if id, ok := core.RunID(ctx); ok {
		add("run_id", id)
	}
	if id, ok := core.UserID(ctx); ok {
		add("user_id", id)
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) keys(r slog.Record) map[string]bool {
	present := make(map[string]bool, len(h.bound)+r.NumAttrs())
	for k := range h.bound {
		present[k] = true
	}
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = true
		return true
	})
	return present
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]bool, len(h.bound)+len(attrs))
	for k := range h.bound {
		bound[k] = true
	}
	for _, a := range attrs {
		bound[a.Key] = true
	}
	return &contextHandler{next: h.next.WithAttrs(attrs), bound: bound}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), bound: h.bound}
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	switch s := strings.ToLower(strings.TrimSpace(level)); s {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	default:
		if err := l.UnmarshalText([]byte(s)); err != nil {
			return slog.LevelInfo
		}
		return l
	}
}
