// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Command video-analyzer serves a page that uploads a video to Gemini and
// answers a question about it with a multimodal agent.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jllopis/agentdeck/internal/assistants"
	"github.com/jllopis/agentdeck/internal/bootstrap"
	"github.com/jllopis/agentdeck/internal/cli"
	"github.com/jllopis/agentdeck/internal/webui"
)

var defaults = map[string]any{
	"llm.provider":    "gemini",
	"llm.model":       assistants.VideoModel,
	"server.addr":     "localhost:8501",
	"storage.backend": "memory",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		cli.Fatal(err)
	}
}

func run(args []string) error {
	flags, err := cli.Parse("video-analyzer", args, nil)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	app, err := bootstrap.Start(ctx, "video-analyzer", flags.Options(defaults))
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	analyzer, err := assistants.VideoFromApp(ctx, app)
	if err != nil {
		return err
	}
	files, err := app.MediaClient(ctx)
	if err != nil {
		return err
	}
	h, err := webui.VideoApp(webui.VideoConfig{
		Agent:          analyzer,
		Files:          files,
		Poller:         app.Poller(),
		MaxUploadBytes: app.MaxUploadBytes(),
		UploadDir:      os.TempDir(),
		Logger:         app.Logger,
	})
	if err != nil {
		return err
	}

	app.WatchConfig(ctx)
	app.Logger.InfoContext(ctx, "webui.listen", slog.String("addr", app.Config.Server.Addr))
	return app.Serve(ctx, h)
}
