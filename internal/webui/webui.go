// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package webui serves the browser front ends of the PDF assistant and the
// video analyzer. Pages are server-rendered from embedded templates.
package webui

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jllopis/agentdeck/internal/httpx"
	"github.com/jllopis/agentdeck/pkg/errors"
)

//go:embed templates/*.html static/*
var assets embed.FS

const (
	defaultMaxUpload = 200 << 20
	defaultUser      = "user"
)

type noticeLevel string

const (
	levelInfo    noticeLevel = "info"
	levelSuccess noticeLevel = "success"
	levelWarning noticeLevel = "warning"
	levelError   noticeLevel = "error"
)

type notice struct {
	Level noticeLevel
	Text  string
}

type page struct {
	Title    string
	Subtitle string
	Notices  []notice
	Data     any
}

func (p *page) add(level noticeLevel, text string) {
	p.Notices = append(p.Notices, notice{Level: level, Text: text})
}

// renderer executes one content template inside the shared layout.
type renderer struct {
	tmpl *template.Template
}

// markdown renders agent answers. Raw HTML in the source is dropped and
// dangerous link schemes are not rendered as links.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

func newRenderer(content string) (*renderer, error) {
	tmpl, err := template.New("layout.html").
		Funcs(template.FuncMap{"markdown": renderMarkdown}).
		ParseFS(assets, "templates/layout.html", "templates/"+content)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "failed to parse templates", err).
			WithContext("template", content)
	}
	return &renderer{tmpl: tmpl}, nil
}

func (r *renderer) render(w http.ResponseWriter, status int, p page) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		slog.Error("webui.render_error", slog.String("error", err.Error()))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// mux returns a router with the static assets and metrics endpoints mounted.
func newMux(metrics *httpx.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	static, _ := fs.Sub(assets, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// saveUpload copies an uploaded file to dir/name, replacing any previous
// file of the same name, and returns its path.
func saveUpload(src multipart.File, dir, name string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.New(errors.CodeInternal, "failed to prepare upload directory", err)
	}
	path := filepath.Join(dir, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", errors.New(errors.CodeInternal, "failed to store upload", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", errors.New(errors.CodeInternal, "failed to store upload", err)
	}
	if err := dst.Close(); err != nil {
		return "", errors.New(errors.CodeInternal, "failed to store upload", err)
	}
	return path, nil
}

// safeName keeps letters, digits, dashes and underscores from s.
func safeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return defaultUser
	}
	return b.String()
}
