// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package assistants

import (
	"context"

	"github.com/jllopis/agentdeck/internal/bootstrap"
	"github.com/jllopis/agentdeck/pkg/agent"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/knowledge"
	"github.com/jllopis/agentdeck/pkg/memory"
	"github.com/jllopis/agentdeck/pkg/session"
	"github.com/jllopis/agentdeck/pkg/tools/duckduckgo"
	"github.com/jllopis/agentdeck/pkg/tools/yfinance"
)

// FinancialFromApp fills a Financial with providers for llm.model and
// llm.team_model, DuckDuckGo search, every Yahoo Finance tool and the MCP
// tools bound to each agent.
func FinancialFromApp(ctx context.Context, app *bootstrap.App) (Financial, error) {
	member, err := app.Provider(ctx, app.Config.LLM.Model)
	if err != nil {
		return Financial{}, err
	}
	team, err := app.Provider(ctx, app.Config.LLM.TeamModel)
	if err != nil {
		return Financial{}, err
	}
	f := Financial{
		Provider:     member,
		Model:        app.Config.LLM.Model,
		TeamProvider: team,
		TeamModel:    app.Config.LLM.TeamModel,
		SearchTools:  duckduckgo.New().Tools(),
		FinanceTools: yfinance.NewToolkit(yfinance.NewClient(), yfinance.All()).Tools(),
		Extra:        map[string][]core.Tool{},
	}
	for _, name := range []string{WebSearchAgentName, FinancialAgentName, TeamAgentName} {
		extra, err := app.MCPTools(ctx, name)
		if err != nil {
			return Financial{}, err
		}
		f.Extra[name] = extra
	}
	return f, nil
}

// PDFStack is the PDF assistant with the stores it reads and writes.
type PDFStack struct {
	Agent     *agent.Agent
	Knowledge *knowledge.Base
	Sessions  session.Store
	History   memory.ConversationMemory
}

// PDFFromApp builds the PDF assistant over collection. Readers are loaded
// by the caller through Knowledge.Load.
func PDFFromApp(ctx context.Context, app *bootstrap.App, collection string, readers ...knowledge.Reader) (*PDFStack, error) {
	provider, err := app.Provider(ctx, "")
	if err != nil {
		return nil, err
	}
	kb, err := app.Knowledge(ctx, collection, readers...)
	if err != nil {
		return nil, err
	}
	sessions, history, err := app.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	extra, err := app.MCPTools(ctx, PDFAssistantName)
	if err != nil {
		return nil, err
	}
	a, err := PDFAssistant(provider, app.Config.LLM.Model, kb, history, extra...)
	if err != nil {
		return nil, err
	}
	return &PDFStack{Agent: a, Knowledge: kb, Sessions: sessions, History: history}, nil
}

// VideoFromApp builds the video analyzer with DuckDuckGo search.
func VideoFromApp(ctx context.Context, app *bootstrap.App) (*agent.Agent, error) {
	provider, err := app.Provider(ctx, "")
	if err != nil {
		return nil, err
	}
	search := duckduckgo.New().Tools()
	extra, err := app.MCPTools(ctx, VideoAnalyzerName)
	if err != nil {
		return nil, err
	}
	return VideoAnalyzer(provider, app.Config.LLM.Model, append(search, extra...)...)
}
