// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/llm"
	"github.com/jllopis/agentdeck/pkg/llm/anthropic"
	"github.com/jllopis/agentdeck/pkg/llm/gemini"
	llmopenai "github.com/jllopis/agentdeck/pkg/llm/openai"
	"github.com/jllopis/agentdeck/pkg/media"
	mediagemini "github.com/jllopis/agentdeck/pkg/media/gemini"
	"github.com/jllopis/agentdeck/pkg/memory"
	"github.com/jllopis/agentdeck/pkg/memory/embedder"
)

// Provider returns a chat provider for the configured backend. An empty
// model falls back to llm.model.
func (a *App) Provider(ctx context.Context, model string) (llm.Provider, error) {
	cfg := a.Config.LLM
	if model == "" {
		model = cfg.Model
	}
	provider := strings.ToLower(cfg.Provider)
	key := a.Config.APIKey(provider)

	switch provider {
	case "groq":
		opts := []llmopenai.Option{llmopenai.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(cfg.BaseURL))
		}
		return llmopenai.NewGroq(key, opts...), nil
	case "openai":
		opts := []llmopenai.Option{llmopenai.WithModel(model), llmopenai.WithAPIKey(key)}
		if cfg.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(cfg.BaseURL))
		}
		return llmopenai.New(opts...), nil
	case "gemini", "google":
		client, err := a.GenAI(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.New(client, gemini.WithModel(model)), nil
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(model), anthropic.WithAPIKey(key)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(opts...), nil
	case "ollama":
		return llm.NewOllama(cfg.BaseURL), nil
	default:
		return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("unknown llm provider %q", cfg.Provider), nil)
	}
}

// GenAI returns the Gemini client shared by the chat provider, the file
// client and the embedder, so uploaded files are visible to chat requests.
func (a *App) GenAI(ctx context.Context) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.genai != nil {
		return a.genai, nil
	}
	client, err := gemini.NewClient(ctx, a.Config.APIKey("gemini"))
	if err != nil {
		return nil, errors.New(errors.CodeLLMError, "failed to create gemini client", err)
	}
	a.genai = client
	return client, nil
}

// MediaClient returns the Gemini Files API client.
func (a *App) MediaClient(ctx context.Context) (media.Client, error) {
	client, err := a.GenAI(ctx)
	if err != nil {
		return nil, err
	}
	return mediagemini.NewFileClient(client), nil
}

// Poller returns a media poller bounded by the media.* settings.
func (a *App) Poller() *media.Poller {
	p := media.NewPoller()
	if a.Config.Media.PollInterval > 0 {
		p.Interval = a.Config.Media.PollInterval
	}
	if a.Config.Media.PollTimeout > 0 {
		p.Timeout = a.Config.Media.PollTimeout
	}
	p.MaxPolls = a.Config.Media.MaxPolls
	return p
}

// Embedder returns the embedder selected by knowledge.embedder.
func (a *App) Embedder(ctx context.Context) (memory.Embedder, error) {
	cfg := a.Config.Knowledge
	switch strings.ToLower(cfg.Embedder) {
	case "openai", "":
		var opts []option.RequestOption
		if key := a.Config.APIKey("openai"); key != "" {
			opts = append(opts, option.WithAPIKey(key))
		}
		return embedder.NewOpenAI(cfg.EmbedderModel, opts...), nil
	case "gemini", "google":
		client, err := a.GenAI(ctx)
		if err != nil {
			return nil, err
		}
		return embedder.NewGemini(client, cfg.EmbedderModel), nil
	case "ollama":
		return embedder.NewOllama(cfg.EmbedderBaseURL, cfg.EmbedderModel), nil
	default:
		return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("unknown embedder %q", cfg.Embedder), nil)
	}
}
