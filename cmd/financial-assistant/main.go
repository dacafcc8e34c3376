// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Command financial-assistant asks the financial team one question and
// prints the streamed answer.
package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/jllopis/agentdeck/internal/assistants"
	"github.com/jllopis/agentdeck/internal/bootstrap"
	"github.com/jllopis/agentdeck/internal/cli"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		cli.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		query    string
		noStream bool
	)
	flags, err := cli.Parse("financial-assistant", args, func(fs *flag.FlagSet) {
		fs.StringVar(&query, "query", assistants.DefaultFinancialQuery, "question for the financial team")
		fs.BoolVar(&noStream, "no-stream", false, "print the answer once it is complete")
	})
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	app, err := bootstrap.Start(ctx, "financial-assistant", flags.Options(nil))
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	f, err := assistants.FinancialFromApp(ctx, app)
	if err != nil {
		return err
	}
	team, err := f.Team()
	if err != nil {
		return err
	}
	_, err = team.PrintResponse(ctx, stdout, query, !noStream)
	return err
}
