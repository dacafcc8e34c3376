// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/tools"
)

const transferToolPrefix = "transfer_task_to_"

var unsafeToolChars = regexp.MustCompile(`[^a-z0-9_]+`)

// transferToolName derives the delegation tool name for a member agent.
func transferToolName(member string) string {
	name := unsafeToolChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(member)), "_")
	return transferToolPrefix + strings.Trim(name, "_")
}

// newTransferTool lets a team leader run a member agent on a sub-task.
// The handler returns the member's *Response so nested tool calls are kept.
func newTransferTool(member *Agent) core.Tool {
	desc := fmt.Sprintf("Use this function to transfer a task to %s.", member.name)
	if member.role != "" {
		desc += " Role: " + member.role + "."
	}
	desc += " Give a clear task description and the expected output; the agent does not see the rest of the conversation."

	return tools.NewFunctionTool(transferToolName(member.name), desc,
		tools.Object(map[string]any{
			"task_description": tools.String("A clear and concise description of the task the agent should achieve."),
			"expected_output":  tools.String("The expected output from the agent."),
		}, "task_description"),
		func(ctx context.Context, args map[string]any) (any, error) {
			task := tools.StringArg(args, "task_description")
			if task == "" {
				task = tools.StringArg(args, "input")
			}
			if task == "" {
				return nil, NewInvalidInputError("task_description is required")
			}
			prompt := task
			if expected := tools.StringArg(args, "expected_output"); expected != "" {
				prompt += "\n\nThe expected output is: " + expected
			}

			runID, _ := core.RunID(ctx)
			slog.InfoContext(ctx, "agent.team.delegate",
				slog.String("member", member.name),
				slog.String("run_id", runID),
			)
			return member.Run(ctx, prompt)
		})
}
