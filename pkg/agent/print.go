// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrintResponse runs the agent and writes the answer to w. With stream set,
// content is written as it arrives. When ShowToolCalls is enabled each tool
// invocation is listed as " - Running: name(args)".
func (a *Agent) PrintResponse(ctx context.Context, w io.Writer, input string, stream bool, opts ...RunOption) (*Response, error) {
	if !stream {
		resp, err := a.Run(ctx, input, opts...)
		if err != nil {
			return nil, err
		}
		if a.showToolCalls {
			for _, tc := range resp.ToolCalls {
				if _, err := fmt.Fprintln(w, RunningLine(tc)); err != nil {
					return resp, err
				}
			}
			if len(resp.ToolCalls) > 0 {
				fmt.Fprintln(w)
			}
		}
		_, err = fmt.Fprintln(w, resp.Content)
		return resp, err
	}

	events, err := a.RunStream(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	var (
		resp     *Response
		runErr   error
		writeErr error
	)
	write := func(format string, args ...any) {
		if writeErr == nil {
			_, writeErr = fmt.Fprintf(w, format, args...)
		}
	}
	for ev := range events {
		switch ev.Type {
		case EventContent:
			write("%s", ev.Content)
		case EventToolCall:
			if a.showToolCalls && ev.ToolCall != nil {
				write("%s\n\n", RunningLine(*ev.ToolCall))
			}
		case EventDone:
			resp = ev.Response
			write("\n")
		case EventError:
			runErr = ev.Err
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if resp == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return resp, writeErr
}

// RunningLine renders a tool call as " - Running: name(k=v, ...)".
func RunningLine(tc ToolCall) string {
	return fmt.Sprintf(" - Running: %s(%s)", tc.Name, formatArgs(tc.Arguments))
}

func formatArgs(raw string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return strings.TrimSpace(raw)
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, ", ")
}
