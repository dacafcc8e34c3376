// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package gemini adapts the Google Gemini API to llm.Provider, including
// messages that reference uploaded media files.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jllopis/agentdeck/pkg/llm"
	"google.golang.org/genai"
)

// DefaultModel is the multimodal model used by the video analyzer.
const DefaultModel = "gemini-2.0-flash-exp"

// Provider implements llm.Provider for Google Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// Option configures the Provider.
type Option func(*Provider)

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// NewClient creates a genai client. An empty apiKey defers to GOOGLE_API_KEY or
// GEMINI_API_KEY.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	var cfg *genai.ClientConfig
	if apiKey != "" {
		cfg = &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// New wraps an existing genai client. The same client is shared with the
// media file client so uploaded files are visible to chat requests.
func New(client *genai.Client, opts ...Option) *Provider {
	p := &Provider{client: client, model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewWithAPIKey creates a provider with its own client.
func NewWithAPIKey(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	client, err := NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return New(client, opts...), nil
}

// Client exposes the underlying genai client.
func (p *Provider) Client() *genai.Client {
	return p.client
}

func (p *Provider) request(req llm.ChatRequest) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	contents, system := convertMessages(req.Messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: convertTools(req.Tools)}}
	}
	return model, contents, config
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model, contents, config := p.request(req)
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}
	out := &llm.ChatResponse{}
	if u := usage(resp); u != nil {
		out.Usage = *u
	}
	out.Content, out.ToolCalls = parts(resp)
	return out, nil
}

// ChatStream implements llm.StreamingProvider.
func (p *Provider) ChatStream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	model, contents, config := p.request(req)

	chunks := make(chan llm.StreamChunk, 64)
	go func() {
		defer close(chunks)

		var toolCalls []llm.ToolCall
		var last *llm.Usage
		for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				select {
				case chunks <- llm.StreamChunk{Error: fmt.Errorf("gemini stream failed: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			if u := usage(resp); u != nil {
				last = u
			}
			text, calls := parts(resp)
			toolCalls = append(toolCalls, calls...)
			if text == "" {
				continue
			}
			select {
			case chunks <- llm.StreamChunk{Content: text}:
			case <-ctx.Done():
				return
			}
		}
		chunks <- llm.StreamChunk{Done: true, ToolCalls: toolCalls, Usage: last}
	}()
	return chunks, nil
}

// convertMessages maps messages to Gemini contents. The last system message
// becomes the system instruction; media references become file parts.
func convertMessages(messages []llm.Message) ([]*genai.Content, string) {
	var system string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = msg.Content
		case llm.RoleUser:
			content := &genai.Content{Role: string(genai.RoleUser)}
			for _, m := range msg.Media {
				content.Parts = append(content.Parts, genai.NewPartFromURI(m.URI, m.MIMEType))
			}
			if msg.Content != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(msg.Content))
			}
			contents = append(contents, content)
		case llm.RoleAssistant:
			content := &genai.Content{Role: string(genai.RoleModel)}
			if msg.Content != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				content.Parts = append(content.Parts, genai.NewPartFromFunctionCall(tc.Function.Name, args))
			}
			contents = append(contents, content)
		case llm.RoleTool:
			var result map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &result); err != nil {
				result = map[string]any{"result": msg.Content}
			}
			name := msg.Name
			if name == "" {
				name = msg.ToolCallID
			}
			contents = append(contents, &genai.Content{
				Role:  string(genai.RoleUser),
				Parts: []*genai.Part{genai.NewPartFromFunctionResponse(name, result)},
			})
		}
	}
	return contents, system
}

func convertTools(tools []llm.Tool) []*genai.FunctionDeclaration {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schema *genai.Schema
		if raw, err := json.Marshal(tool.Function.Parameters); err == nil {
			_ = json.Unmarshal(raw, &schema)
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  schema,
		})
	}
	return declarations
}

func usage(resp *genai.GenerateContentResponse) *llm.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

// parts extracts text and function calls from the first candidate. Gemini has
// no call ids, so the function name doubles as the id.
func parts(resp *genai.GenerateContentResponse) (string, []llm.ToolCall) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var text string
	var calls []llm.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			calls = append(calls, llm.ToolCall{
				ID:   part.FunctionCall.Name,
				Type: llm.ToolTypeFunction,
				Function: llm.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				},
			})
		}
	}
	return text, calls
}

var _ llm.StreamingProvider = (*Provider)(nil)
