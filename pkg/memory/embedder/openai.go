// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package embedder

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements memory.Embedder with the OpenAI embeddings API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI embedder. Model defaults to text-embedding-3-small.
func NewOpenAI(model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

// Embed implements memory.Embedder.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding api call failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}
	return toFloat32(resp.Data[0].Embedding), nil
}
