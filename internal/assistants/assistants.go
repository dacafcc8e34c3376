// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package assistants defines the agents served by the agentdeck binaries.
package assistants

import (
	"github.com/jllopis/agentdeck/pkg/agent"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/knowledge"
	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/jllopis/agentdeck/pkg/memory"
)

const (
	WebSearchAgentName = "web_search_agent"
	FinancialAgentName = "financial_agent"
	TeamAgentName      = "financial_team"
	PDFAssistantName   = "pdf_assistant"
	VideoAnalyzerName  = "Video Analyzer"

	// MemberModel runs the tool-calling member agents.
	MemberModel = "llama3-groq-70b-8192-tool-use-preview"
	// TeamModel runs the coordinating agent.
	TeamModel = "llama-3.1-70b-versatile"
	// VideoModel is the multimodal model of the video analyzer.
	VideoModel = "gemini-2.0-flash-exp"

	// DefaultFinancialQuery is sent by the financial assistant when no query
	// is given.
	DefaultFinancialQuery = "Summarize analyst recommendations and share the latest news for NVDA"
)

// Financial describes the two financial agents and their coordinator.
type Financial struct {
	Provider llm.Provider
	// Model defaults to MemberModel.
	Model string
	// TeamProvider defaults to Provider.
	TeamProvider llm.Provider
	// TeamModel defaults to TeamModel.
	TeamModel   string
	SearchTools []core.Tool
	// FinanceTools are the Yahoo Finance tools.
	FinanceTools []core.Tool
	// Extra adds tools, typically from MCP servers, keyed by agent name.
	Extra map[string][]core.Tool
}

// Members builds web_search_agent and financial_agent.
func (f Financial) Members() (web, finance *agent.Agent, err error) {
	model := f.Model
	if model == "" {
		model = MemberModel
	}
	web, err = agent.New(WebSearchAgentName, f.Provider,
		agent.WithRole("search the web for the information"),
		agent.WithModel(model),
		agent.WithTools(append(append([]core.Tool(nil), f.SearchTools...), f.Extra[WebSearchAgentName]...)...),
		agent.WithInstructions("Always include the source of the information"),
		agent.WithShowToolCalls(true),
		agent.WithMarkdown(true),
	)
	if err != nil {
		return nil, nil, err
	}
	finance, err = agent.New(FinancialAgentName, f.Provider,
		agent.WithModel(model),
		agent.WithTools(append(append([]core.Tool(nil), f.FinanceTools...), f.Extra[FinancialAgentName]...)...),
		agent.WithInstructions("Use tables to display the information"),
		agent.WithShowToolCalls(true),
		agent.WithMarkdown(true),
	)
	if err != nil {
		return nil, nil, err
	}
	return web, finance, nil
}

// Team builds the coordinator delegating to both members.
func (f Financial) Team() (*agent.Agent, error) {
	web, finance, err := f.Members()
	if err != nil {
		return nil, err
	}
	provider := f.TeamProvider
	if provider == nil {
		provider = f.Provider
	}
	model := f.TeamModel
	if model == "" {
		model = TeamModel
	}
	return agent.New(TeamAgentName, provider,
		agent.WithModel(model),
		agent.WithTeam(web, finance),
		agent.WithTools(f.Extra[TeamAgentName]...),
		agent.WithInstructions(
			"Always include sources of the information",
			"Use tables to display the information",
		),
		agent.WithShowToolCalls(true),
		agent.WithMarkdown(true),
	)
}

// PDFAssistant builds the question-answering agent over a knowledge base.
// It searches the knowledge base through a tool and can read its own chat
// history.
func PDFAssistant(provider llm.Provider, model string, kb *knowledge.Base, history memory.ConversationMemory, extra ...core.Tool) (*agent.Agent, error) {
	return agent.New(PDFAssistantName, provider,
		agent.WithModel(model),
		agent.WithKnowledge(kb),
		agent.WithSearchKnowledge(true),
		agent.WithConversationMemory(history),
		agent.WithReadChatHistory(true),
		agent.WithTools(extra...),
		agent.WithShowToolCalls(true),
		agent.WithMarkdown(true),
	)
}

// VideoAnalyzer builds the multimodal agent answering questions about an
// attached video with web search as a supplement.
func VideoAnalyzer(provider llm.Provider, model string, search ...core.Tool) (*agent.Agent, error) {
	if model == "" {
		model = VideoModel
	}
	return agent.New(VideoAnalyzerName, provider,
		agent.WithModel(model),
		agent.WithTools(search...),
		agent.WithMarkdown(true),
	)
}
