// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/llm"
)

const (
	markdownInstruction = "Use markdown to format your answers."
	teamPreamble        = "You are the leader of a team of AI Agents. You can either respond directly or " +
		"transfer tasks to other Agents in your team depending on the tools available to them."
	knowledgeSearchInstruction = "Search your knowledge base for information relevant to the question " +
		"before answering, and say so when the knowledge base has no answer."
	chatHistoryInstruction = "You have access to the previous messages of this conversation through the " +
		ChatHistoryToolName + " tool."
)

// SystemPrompt renders the system message sent at the start of every run.
func (a *Agent) SystemPrompt() string {
	var b strings.Builder
	if a.role != "" {
		fmt.Fprintf(&b, "Your role is: %s\n", a.role)
	}

	instructions := append([]string(nil), a.instructions...)
	if a.knowledge != nil && a.searchKnowledge {
		instructions = append(instructions, knowledgeSearchInstruction)
	}
	if a.history != nil && a.readChatHistory {
		instructions = append(instructions, chatHistoryInstruction)
	}
	if a.markdown {
		instructions = append(instructions, markdownInstruction)
	}
	if len(instructions) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## Instructions\n")
		for _, in := range instructions {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}

	if len(a.team) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(teamPreamble)
		b.WriteString("\n\n## Team members\n")
		for i, m := range a.team {
			fmt.Fprintf(&b, "Agent %d:\n- Name: %s\n", i+1, m.name)
			if m.role != "" {
				fmt.Fprintf(&b, "- Role: %s\n", m.role)
			}
			if names := toolNames(m.toolset()); len(names) > 0 {
				fmt.Fprintf(&b, "- Available tools: %s\n", strings.Join(names, ", "))
			}
			fmt.Fprintf(&b, "- Delegate with: %s\n", transferToolName(m.name))
		}
	}
	return strings.TrimSpace(b.String())
}

// buildMessages assembles system prompt, stored history, references and the user turn.
func (a *Agent) buildMessages(ctx context.Context, runID, input string, cfg runConfig) ([]llm.Message, int, error) {
	messages := make([]llm.Message, 0, a.historyMessages+3)
	if system := a.SystemPrompt(); system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}

	historyCount := 0
	if a.history != nil && a.historyMessages > 0 {
		stored, err := a.history.GetRecentMessages(ctx, runID, a.historyMessages)
		if err != nil {
			return nil, 0, WrapMemoryError(err, "get_recent_messages")
		}
		for _, m := range stored {
			role := llm.Role(m.Role)
			if role != llm.RoleUser && role != llm.RoleAssistant {
				continue
			}
			messages = append(messages, llm.Message{Role: role, Content: m.Content})
			historyCount++
		}
	}

	content := input
	if a.knowledge != nil && !a.searchKnowledge && strings.TrimSpace(input) != "" {
		refs, err := a.references(ctx, input)
		if err != nil {
			return nil, 0, err
		}
		if refs != "" {
			content = input + "\n\nUse the following references from the knowledge base if they help answer the question.\n<references>\n" +
				refs + "\n</references>"
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: content, Media: cfg.media})
	return messages, historyCount, nil
}

func (a *Agent) references(ctx context.Context, query string) (string, error) {
	docs, err := a.knowledge.Search(ctx, query, 0)
	if err != nil {
		return "", WrapKnowledgeError(err, "search")
	}
	if len(docs) == 0 {
		return "", nil
	}
	out, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", WrapKnowledgeError(err, "encode_references")
	}
	slog.DebugContext(ctx, "agent.knowledge.references",
		slog.String("agent", a.name),
		slog.Int("documents", len(docs)),
	)
	return string(out), nil
}

func toolNames(set []core.Tool) []string {
	names := make([]string, 0, len(set))
	for _, t := range set {
		names = append(names, t.Name())
	}
	return names
}

func toolDefinitions(set []core.Tool) []llm.Tool {
	defs := make([]llm.Tool, 0, len(set))
	for _, t := range set {
		if d, ok := t.(core.ToolDefiner); ok {
			defs = append(defs, d.ToolDefinition())
			continue
		}
		defs = append(defs, llm.Tool{
			Type: llm.ToolTypeFunction,
			Function: llm.FunctionDef{
				Name: t.Name(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{"type": "string"},
					},
				},
			},
		})
	}
	return defs
}
