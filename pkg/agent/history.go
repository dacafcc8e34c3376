// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/jllopis/agentdeck/pkg/memory"
	"github.com/jllopis/agentdeck/pkg/tools"
)

// ChatHistoryToolName is the tool exposed by WithReadChatHistory.
const ChatHistoryToolName = "get_chat_history"

const defaultChatHistoryLimit = 3

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (a *Agent) chatHistoryTool() core.Tool {
	return tools.NewFunctionTool(ChatHistoryToolName,
		"Use this function to get the chat history between the user and assistant.",
		tools.Object(map[string]any{
			"num_chats": tools.Integer("Number of previous exchanges to return. Each exchange is a user message and the answer."),
		}),
		func(ctx context.Context, args map[string]any) (any, error) {
			runID, ok := core.RunID(ctx)
			if !ok {
				return "[]", nil
			}
			limit := tools.IntArg(args, "num_chats", defaultChatHistoryLimit)
			if limit <= 0 {
				limit = defaultChatHistoryLimit
			}
			stored, err := a.history.GetRecentMessages(ctx, runID, limit*2)
			if err != nil {
				return nil, WrapMemoryError(err, "get_recent_messages")
			}
			entries := make([]historyEntry, 0, len(stored))
			for _, m := range stored {
				entries = append(entries, historyEntry{Role: m.Role, Content: m.Content})
			}
			out, err := json.Marshal(entries)
			if err != nil {
				return nil, err
			}
			return string(out), nil
		})
}

// remember stores one turn of the conversation. Failures are logged, not returned.
func (a *Agent) remember(ctx context.Context, runID string, role llm.Role, content string) {
	if a.history == nil || runID == "" {
		return
	}
	msg := memory.ConversationMessage{
		Role:     string(role),
		Content:  content,
		Metadata: map[string]string{"agent": a.name},
	}
	if err := a.history.AppendMessage(ctx, runID, msg); err != nil {
		werr := WrapMemoryError(err, "append_message")
		GetErrorMetrics().RecordError(ctx, werr, "agent-memory")
		slog.WarnContext(ctx, "agent.conversation.store_error",
			slog.String("agent", a.name),
			slog.String("run_id", runID),
			slog.String("error", werr.Error()),
		)
	}
}
