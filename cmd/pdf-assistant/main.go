// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Command pdf-assistant loads the configured PDFs into the recipes
// knowledge base and answers questions about them in a terminal session.
//
//	pdf-assistant [-new] [-user NAME]
//
// Without -new the user's latest run is resumed. PDFs already stored in the
// collection are not loaded again unless knowledge.recreate is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jllopis/agentdeck/internal/assistants"
	"github.com/jllopis/agentdeck/internal/bootstrap"
	"github.com/jllopis/agentdeck/internal/cli"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/knowledge"
	"github.com/jllopis/agentdeck/pkg/session"
)

var start = bootstrap.Start

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		cli.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		startNew bool
		user     string
	)
	flags, err := cli.Parse("pdf-assistant", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&startNew, "new", false, "start a new run instead of resuming the latest one")
		fs.StringVar(&user, "user", "user", "user id owning the run")
	})
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	app, err := start(ctx, "pdf-assistant", flags.Options(nil))
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	stack, err := assistants.PDFFromApp(ctx, app, app.Config.Knowledge.Collection, app.PDFReaders()...)
	if err != nil {
		return err
	}
	if _, err := stack.Knowledge.Load(ctx, knowledge.LoadOptions{
		Recreate:     app.Config.Knowledge.Recreate,
		SkipIfLoaded: true,
	}); err != nil {
		return err
	}

	res, err := session.Resolve(ctx, stack.Sessions, user, assistants.PDFAssistantName, startNew)
	if err != nil {
		return err
	}
	if res.Resumed {
		fmt.Fprintf(stdout, "Resumed run: %s\n", res.RunID)
	} else {
		fmt.Fprintf(stdout, "Started run: %s\n", res.RunID)
	}

	ctx = core.WithRunID(core.WithUserID(ctx, user), res.RunID)
	return cli.Chat(ctx, stdin, stdout, stack.Agent, true)
}
