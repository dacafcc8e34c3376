// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the process plumbing shared by the agentdeck binaries:
// flag parsing, signal handling and error reporting with hints.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jllopis/agentdeck/pkg/config"
	"github.com/jllopis/agentdeck/pkg/errors"
)

// Error pairs a typed error with a hint for the user.
type Error struct {
	Err  *errors.Error
	Hint string
}

// Error returns the message followed by the hint.
func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Wrap attaches a hint chosen from the error code and message.
func Wrap(err error) *Error {
	e := errors.As(err)
	return &Error{Err: e, Hint: hint(e)}
}

func hint(e *errors.Error) string {
	msg := errors.UserMessage(e)
	switch e.Code {
	case errors.CodeInvalidInput:
		if strings.Contains(msg, "no API key") {
			return "set the provider key (GROQ_API_KEY, GOOGLE_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY) in the environment or the .env file"
		}
		return "check the -config file and the AGENTDECK_* variables"
	case errors.CodeMemoryError:
		return "check that the database in db_url (or storage.redis_addr) is reachable"
	case errors.CodeKnowledgeError:
		return "check the vector store and the embedder settings under knowledge.*"
	case errors.CodeLLMError:
		return "this may be a transient provider error; try again later"
	case errors.CodeTimeout:
		return "raise media.poll_timeout or try a smaller file"
	case errors.CodeMediaError:
		return "check that the file is a supported video and the Gemini key is valid"
	}
	return ""
}

// Unwrap returns the typed error.
func (e *Error) Unwrap() error { return e.Err }

// Print writes err with its code and hint to w.
func Print(w io.Writer, err error) {
	e := Wrap(err)
	fmt.Fprintf(w, "Error [%s]: %s\n", e.Err.Code, errors.UserMessage(e.Err))
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

// Fatal prints err to stderr and exits with status 1.
func Fatal(err error) {
	Print(os.Stderr, err)
	os.Exit(1)
}

// Parse registers the shared config flags on a new flag set named after
// the binary, lets register add its own flags and parses args.
func Parse(name string, args []string, register func(fs *flag.FlagSet)) (*config.Flags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	flags := config.BindFlags(fs)
	if register != nil {
		register(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "invalid arguments", err)
	}
	return flags, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
