// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini implements memory.Embedder with the Gemini embedding models.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini embedder. Model defaults to text-embedding-004.
func NewGemini(client *genai.Client, model string) *Gemini {
	if model == "" {
		model = "text-embedding-004"
	}
	return &Gemini{client: client, model: model}
}

// Embed implements memory.Embedder.
func (e *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{{Parts: []*genai.Part{genai.NewPartFromText(text)}}}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding api call failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini returned no embeddings")
	}
	return resp.Embeddings[0].Values, nil
}
