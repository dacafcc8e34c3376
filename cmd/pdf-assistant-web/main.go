// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Command pdf-assistant-web serves the PDF assistant as a web page. Each
// uploaded PDF is loaded into the uploaded_pdf collection.
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

const collection = "uploaded_pdf"

var defaults = map[string]any{
	"server.addr": "localhost:8501",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		cli.Fatal(err)
	}
}

func run(args []string) error {
	flags, err := cli.Parse("pdf-assistant-web", args, nil)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	app, err := bootstrap.Start(ctx, "pdf-assistant-web", flags.Options(defaults))
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	stack, err := assistants.PDFFromApp(ctx, app, collection)
	if err != nil {
		return err
	}
	h, err := webui.PDFApp(webui.PDFConfig{
		Agent:          stack.Agent,
		Knowledge:      stack.Knowledge,
		Sessions:       stack.Sessions,
		History:        stack.History,
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
