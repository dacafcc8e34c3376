// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package webui

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/jllopis/agentdeck/internal/httpx"
	"github.com/jllopis/agentdeck/pkg/agent"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/knowledge"
	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/jllopis/agentdeck/pkg/memory"
	"github.com/jllopis/agentdeck/pkg/session"
)

// PDFConfig wires the PDF assistant page.
type PDFConfig struct {
	// Agent answers questions. It should search Knowledge and keep its chat
	// history in History.
	Agent     *agent.Agent
	Knowledge *knowledge.Base
	Sessions  session.Store
	History   memory.ConversationMemory
	// MaxUploadBytes bounds the multipart body. Default 200 MiB.
	MaxUploadBytes int64
	// UploadDir receives temp_<user>.pdf files. Default os.TempDir().
	UploadDir string
	Logger    *slog.Logger
}

type pdfForm struct {
	Username   string
	NewSession bool
	Question   string
	Answer     string
	ToolCalls  []string
	History    []exchange
}

type exchange struct {
	User      string
	Assistant string
}

type pdfApp struct {
	cfg     PDFConfig
	view    *renderer
	metrics *httpx.Metrics
	logger  *slog.Logger
}

// PDFApp returns the handler of the PDF assistant: upload a PDF, ask
// questions about it and read back the session history.
func PDFApp(cfg PDFConfig) (http.Handler, error) {
	if cfg.Agent == nil || cfg.Knowledge == nil || cfg.Sessions == nil || cfg.History == nil {
		return nil, errors.New(errors.CodeInvalidInput, "pdf app needs an agent, a knowledge base, a session store and a history", nil)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	view, err := newRenderer("pdf.html")
	if err != nil {
		return nil, err
	}
	app := &pdfApp{
		cfg:     cfg,
		view:    view,
		metrics: httpx.NewMetrics("agentdeck_pdf_web"),
		logger:  cfg.Logger,
	}
	if app.logger == nil {
		app.logger = slog.Default()
	}

	mux := newMux(app.metrics)
	mux.Handle("GET /{$}", app.metrics.Wrap("/", http.HandlerFunc(app.index)))
	mux.Handle("POST /{$}", app.metrics.Wrap("/", http.HandlerFunc(app.submit)))
	return mux, nil
}

func (a *pdfApp) page(form *pdfForm) page {
	return page{
		Title:    "PDF Assistant",
		Subtitle: "Upload a PDF and ask questions about its content.",
		Data:     form,
	}
}

func (a *pdfApp) index(w http.ResponseWriter, _ *http.Request) {
	a.view.render(w, http.StatusOK, a.page(&pdfForm{Username: defaultUser}))
}

func (a *pdfApp) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		p := a.page(&pdfForm{Username: defaultUser})
		p.add(levelError, "Invalid form: "+err.Error())
		a.view.render(w, status, p)
		return
	}

	form := &pdfForm{
		Username:   strings.TrimSpace(r.FormValue("username")),
		NewSession: r.FormValue("new_session") != "",
		Question:   strings.TrimSpace(r.FormValue("question")),
	}
	if form.Username == "" {
		form.Username = defaultUser
	}
	p := a.page(form)
	ctx := r.Context()

	if file, _, err := r.FormFile("pdf"); err == nil {
		ok := a.loadPDF(ctx, file, form.Username, &p)
		file.Close()
		if !ok {
			a.view.render(w, http.StatusOK, p)
			return
		}
	}

	res, err := session.Resolve(ctx, a.cfg.Sessions, form.Username, a.cfg.Agent.Name(), form.NewSession)
	if err != nil {
		p.add(levelError, "An error occurred: "+errors.UserMessage(err))
		a.view.render(w, http.StatusOK, p)
		return
	}
	if res.Resumed {
		p.add(levelInfo, "Resumed session: "+res.RunID)
	} else {
		p.add(levelSuccess, "Started a new session: "+res.RunID)
	}
	ctx = core.WithUserID(ctx, form.Username)
	ctx = core.WithRunID(ctx, res.RunID)

	switch r.FormValue("action") {
	case "history":
		msgs, err := a.cfg.History.GetMessages(ctx, res.RunID)
		if err != nil {
			p.add(levelError, "An error occurred: "+errors.UserMessage(err))
			break
		}
		form.History = exchanges(msgs)
		if len(form.History) == 0 {
			p.add(levelInfo, "No history available.")
		}
	default:
		if form.Question == "" {
			p.add(levelWarning, "Please enter a question.")
			break
		}
		resp, err := a.cfg.Agent.Run(ctx, form.Question)
		if err != nil {
			a.logger.WarnContext(ctx, "webui.pdf.run_error", slog.String("error", err.Error()))
			p.add(levelError, "An error occurred: "+errors.UserMessage(err))
			break
		}
		form.Answer = resp.Content
		if a.cfg.Agent.ShowToolCalls() {
			for _, tc := range resp.ToolCalls {
				form.ToolCalls = append(form.ToolCalls, agent.RunningLine(tc))
			}
		}
	}
	a.view.render(w, http.StatusOK, p)
}

// loadPDF stores the upload as temp_<user>.pdf and adds it to the knowledge
// base. Earlier uploads stay in the collection. It reports whether the
// load succeeded.
func (a *pdfApp) loadPDF(ctx context.Context, file multipart.File, user string, p *page) bool {
	path, err := saveUpload(file, a.cfg.UploadDir, fmt.Sprintf("temp_%s.pdf", safeName(user)))
	if err != nil {
		p.add(levelError, "Error loading knowledge base: "+errors.UserMessage(err))
		return false
	}
	_, err = a.cfg.Knowledge.Load(ctx, knowledge.LoadOptions{
		Readers: []knowledge.Reader{knowledge.PDFReader{Path: path}},
	})
	if err != nil {
		a.logger.WarnContext(ctx, "webui.pdf.load_error", slog.String("path", path), slog.String("error", err.Error()))
		p.add(levelError, "Error loading knowledge base: "+errors.UserMessage(err))
		return false
	}
	p.add(levelSuccess, "Knowledge base successfully loaded.")
	return true
}

// exchanges pairs each user message with the assistant answer that follows.
func exchanges(msgs []memory.ConversationMessage) []exchange {
	var out []exchange
	for _, m := range msgs {
		switch llm.Role(m.Role) {
		case llm.RoleUser:
			out = append(out, exchange{User: m.Content})
		case llm.RoleAssistant:
			if len(out) == 0 || out[len(out)-1].Assistant != "" {
				out = append(out, exchange{})
			}
			out[len(out)-1].Assistant = m.Content
		}
	}
	return out
}
