// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package webui

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jllopis/agentdeck/internal/httpx"
	"github.com/jllopis/agentdeck/pkg/agent"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/media"
)

// VideoPrompt wraps the user's query before it is sent with the video.
const VideoPrompt = `Analyze the video for content and context.
Respond to the following query using video insights and supplementary web search:
%s

Provide a detailed, user-friendly, and actionable response.`

// VideoConfig wires the video analyzer page.
type VideoConfig struct {
	Agent  *agent.Agent
	Files  media.Client
	Poller *media.Poller
	// MaxUploadBytes bounds the multipart body. Default 200 MiB.
	MaxUploadBytes int64
	// UploadDir holds videos until they are uploaded. Default os.TempDir().
	UploadDir string
	// KeepRemote leaves uploaded files on the provider after the analysis.
	KeepRemote bool
	Logger     *slog.Logger
}

type videoForm struct {
	Accept  string
	Formats string
	Query   string
	Result  string
}

type videoApp struct {
	cfg     VideoConfig
	view    *renderer
	metrics *httpx.Metrics
	logger  *slog.Logger
}

// VideoApp returns the handler of the video analyzer: upload a video, wait
// for the provider to process it and ask the agent about it.
func VideoApp(cfg VideoConfig) (http.Handler, error) {
	if cfg.Agent == nil || cfg.Files == nil {
		return nil, errors.New(errors.CodeInvalidInput, "video app needs an agent and a media client", nil)
	}
	if cfg.Poller == nil {
		cfg.Poller = media.NewPoller()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	view, err := newRenderer("video.html")
	if err != nil {
		return nil, err
	}
	app := &videoApp{
		cfg:     cfg,
		view:    view,
		metrics: httpx.NewMetrics("agentdeck_video_web"),
		logger:  cfg.Logger,
	}
	if app.logger == nil {
		app.logger = slog.Default()
	}

	mux := newMux(app.metrics)
	mux.Handle("GET /{$}", app.metrics.Wrap("/", http.HandlerFunc(app.index)))
	mux.Handle("POST /analyze", app.metrics.Wrap("/analyze", http.HandlerFunc(app.analyze)))
	return mux, nil
}

func newVideoForm() *videoForm {
	exts := media.VideoExtensions()
	accept := make([]string, len(exts))
	for i, ext := range exts {
		accept[i] = "." + ext
	}
	return &videoForm{
		Accept:  strings.Join(accept, ","),
		Formats: strings.ToUpper(strings.Join(exts, ", ")),
	}
}

func (a *videoApp) page(form *videoForm) page {
	return page{
		Title:    "Video Analyzer",
		Subtitle: "Powered by Google Gemini",
		Data:     form,
	}
}

func (a *videoApp) index(w http.ResponseWriter, _ *http.Request) {
	p := a.page(newVideoForm())
	p.add(levelInfo, "Upload a video file to get started")
	a.view.render(w, http.StatusOK, p)
}

func (a *videoApp) analyze(w http.ResponseWriter, r *http.Request) {
	form := newVideoForm()
	p := a.page(form)

	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		p.add(levelError, "Invalid form: "+err.Error())
		a.view.render(w, status, p)
		return
	}
	form.Query = strings.TrimSpace(r.FormValue("query"))

	file, header, err := r.FormFile("video")
	if err != nil {
		p.add(levelInfo, "Upload a video file to get started")
		a.view.render(w, http.StatusOK, p)
		return
	}
	defer file.Close()

	mimeType, ok := media.VideoMIMEType(header.Filename)
	if !ok {
		p.add(levelError, fmt.Sprintf("Unsupported video format. Accepted formats: %s", form.Formats))
		a.view.render(w, http.StatusBadRequest, p)
		return
	}
	if form.Query == "" {
		p.add(levelWarning, "Please enter a question or insight to analyze the video.")
		a.view.render(w, http.StatusOK, p)
		return
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	path, err := saveUpload(file, a.cfg.UploadDir, name)
	if err != nil {
		p.add(levelError, "An error occurred: "+errors.UserMessage(err))
		a.view.render(w, http.StatusOK, p)
		return
	}
	defer os.Remove(path)

	result, err := a.run(r.Context(), path, mimeType, form.Query)
	if err != nil {
		a.logger.WarnContext(r.Context(), "webui.video.analyze_error", slog.String("error", err.Error()))
		p.add(levelError, "An error occurred: "+errors.UserMessage(err))
		a.view.render(w, http.StatusOK, p)
		return
	}
	form.Result = result
	a.view.render(w, http.StatusOK, p)
}

func (a *videoApp) run(ctx context.Context, path, mimeType, query string) (string, error) {
	uploaded, err := a.cfg.Files.Upload(ctx, path, mimeType)
	if err != nil {
		return "", errors.New(errors.CodeMediaError, "failed to upload video", err)
	}
	if !a.cfg.KeepRemote {
		defer func() {
			if err := a.cfg.Files.Delete(context.WithoutCancel(ctx), uploaded.Name); err != nil {
				a.logger.WarnContext(ctx, "webui.video.delete_error",
					slog.String("file", uploaded.Name), slog.String("error", err.Error()))
			}
		}()
	}

	ready, err := a.cfg.Poller.WaitActive(ctx, a.cfg.Files, uploaded)
	if err != nil {
		return "", err
	}
	resp, err := a.cfg.Agent.Run(ctx, fmt.Sprintf(VideoPrompt, query), agent.WithMedia(ready.Media()))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
