// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package assistants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/agentdeck/internal/bootstrap"
	"github.com/jllopis/agentdeck/pkg/agent"
	"github.com/jllopis/agentdeck/pkg/config"
	"github.com/jllopis/agentdeck/pkg/core"
	"github.com/jllopis/agentdeck/pkg/knowledge"
	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/jllopis/agentdeck/pkg/llm/llmtest"
	"github.com/jllopis/agentdeck/pkg/memory"
	"github.com/jllopis/agentdeck/pkg/tools"
)

func stubTool(name, result string) core.Tool {
	return tools.NewFunctionTool(name, name,
		tools.Object(map[string]any{"query": tools.String("query")}),
		func(context.Context, map[string]any) (any, error) { return result, nil })
}

func requestToolNames(req *llm.ChatRequest) []string {
	names := make([]string, 0, len(req.Tools))
	for _, t := range req.Tools {
		names = append(names, t.Function.Name)
	}
	return names
}

func TestFinancial_Members(t *testing.T) {
	f := Financial{
		Provider:     llmtest.NewScenarioProvider(),
		SearchTools:  []core.Tool{stubTool("duckduckgo_search", "")},
		FinanceTools: []core.Tool{stubTool("get_current_stock_price", ""), stubTool("get_company_news", "")},
		Extra:        map[string][]core.Tool{FinancialAgentName: {stubTool("remote_quote", "")}},
	}
	web, finance, err := f.Members()
	require.NoError(t, err)

	assert.Equal(t, WebSearchAgentName, web.Name())
	assert.Equal(t, "search the web for the information", web.Role())
	assert.Equal(t, MemberModel, web.Model())
	assert.True(t, web.ShowToolCalls())
	require.Len(t, web.Tools(), 1)

	assert.Equal(t, FinancialAgentName, finance.Name())
	assert.Len(t, finance.Tools(), 3)
	assert.Equal(t, "remote_quote", finance.Tools()[2].Name())
}

func TestFinancial_TeamDelegates(t *testing.T) {
	member := llmtest.NewScenarioProvider().
		AddToolCallResponse(llmtest.NewToolCall("get_company_news").WithArg("query", "NVDA").Build()).
		AddResponse("| Date | Headline |\n| --- | --- |\n| today | NVDA rallies |")
	leader := llmtest.NewScenarioProvider().
		AddToolCallResponse(llmtest.NewToolCall("transfer_task_to_financial_agent").
			WithArg("task_description", "Latest NVDA news").
			WithArg("expected_output", "A table").
			Build()).
		AddResponse("NVDA rallies (source: financial_agent)")

	team, err := Financial{
		Provider:     member,
		TeamProvider: leader,
		SearchTools:  []core.Tool{stubTool("duckduckgo_search", "")},
		FinanceTools: []core.Tool{stubTool("get_company_news", "NVDA rallies")},
	}.Team()
	require.NoError(t, err)
	assert.Equal(t, TeamModel, team.Model())
	require.Len(t, team.Team(), 2)

	resp, err := team.Run(context.Background(), DefaultFinancialQuery)
	require.NoError(t, err)
	assert.Equal(t, "NVDA rallies (source: financial_agent)", resp.Content)

	first := leader.Requests()[0]
	assert.Equal(t, TeamModel, first.Model)
	assert.ElementsMatch(t,
		[]string{"transfer_task_to_web_search_agent", "transfer_task_to_financial_agent"},
		requestToolNames(&first))
	assert.Contains(t, first.Messages[0].Content, "Always include sources of the information")
	assert.Equal(t, MemberModel, member.Requests()[0].Model)
}

func TestPDFAssistant_Tools(t *testing.T) {
	provider := llmtest.NewScenarioProvider().AddResponse("Hello")
	kb := knowledge.New("recipes", memory.NewInMemoryVectorStore(), nil)
	history := memory.NewInMemoryConversation(memory.ConversationConfig{})

	a, err := PDFAssistant(provider, "llama3-8b", kb, history)
	require.NoError(t, err)
	assert.Equal(t, PDFAssistantName, a.Name())

	ctx := core.WithRunID(context.Background(), "run-1")
	_, err = a.Run(ctx, "hi")
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{knowledge.SearchToolName, agent.ChatHistoryToolName},
		requestToolNames(provider.LastRequest()))

	msgs, err := history.GetMessages(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestVideoAnalyzer(t *testing.T) {
	a, err := VideoAnalyzer(llmtest.NewScenarioProvider(), "", stubTool("duckduckgo_search", ""))
	require.NoError(t, err)
	assert.Equal(t, VideoAnalyzerName, a.Name())
	assert.Equal(t, VideoModel, a.Model())
	assert.Len(t, a.Tools(), 1)
}

func memoryApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg, err := config.LoadWithOptions(config.LoadOptions{Defaults: map[string]any{
		"llm.provider":           "ollama",
		"llm.model":              "llama3.1",
		"storage.backend":        "memory",
		"knowledge.vector_store": "memory",
		"knowledge.embedder":     "ollama",
		"knowledge.tokenizer":    "estimate",
	}})
	require.NoError(t, err)
	app := bootstrap.New("test", cfg, nil)
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func TestFromApp(t *testing.T) {
	ctx := context.Background()
	app := memoryApp(t)

	f, err := FinancialFromApp(ctx, app)
	require.NoError(t, err)
	assert.Len(t, f.SearchTools, 1)
	assert.Len(t, f.FinanceTools, 4)
	team, err := f.Team()
	require.NoError(t, err)
	assert.Equal(t, app.Config.LLM.TeamModel, team.Model())

	stack, err := PDFFromApp(ctx, app, "uploaded_pdf")
	require.NoError(t, err)
	assert.Equal(t, "uploaded_pdf", stack.Knowledge.Collection())
	assert.Equal(t, "llama3.1", stack.Agent.Model())

	video, err := VideoFromApp(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, VideoAnalyzerName, video.Name())
}
