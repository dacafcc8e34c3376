// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jllopis/agentdeck/pkg/agent"
)

// UserPrompt is printed before every question.
const UserPrompt = "User > "

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

// Chat reads one question per line from in and prints the agent's answer
// to out until EOF, an exit word or ctx cancellation. Run errors are
// printed and the loop continues.
func Chat(ctx context.Context, in io.Reader, out io.Writer, a *agent.Agent, stream bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(out, UserPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitWords[strings.ToLower(line)] {
			return nil
		}
		if _, err := a.PrintResponse(ctx, out, line, stream); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			Print(out, err)
		}
	}
}
