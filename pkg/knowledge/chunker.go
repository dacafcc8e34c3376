// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens in text.
type Tokenizer interface {
	Count(text string) int
}

// EstimateTokenizer approximates one token per four bytes.
type EstimateTokenizer struct{}

// Count implements Tokenizer.
func (EstimateTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return max(len(text)/4, 1)
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// NewTokenizer returns a tiktoken tokenizer for encoding (default cl100k_base),
// falling back to EstimateTokenizer when the encoding can't be loaded.
func NewTokenizer(encoding string) Tokenizer {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		slog.Warn("knowledge.tokenizer.fallback", slog.String("encoding", encoding), slog.String("error", err.Error()))
		return EstimateTokenizer{}
	}
	return tiktokenTokenizer{enc: enc}
}

// Chunker splits documents into token-bounded chunks with overlap.
type Chunker struct {
	// MaxTokens bounds each chunk. Default 500.
	MaxTokens int
	// Overlap is the number of trailing tokens repeated at the start of the next chunk.
	Overlap   int
	Tokenizer Tokenizer
}

// NewChunker creates a chunker. A nil tokenizer uses EstimateTokenizer.
func NewChunker(maxTokens, overlap int, tok Tokenizer) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	if overlap < 0 || overlap >= maxTokens {
		overlap = 0
	}
	if tok == nil {
		tok = EstimateTokenizer{}
	}
	return &Chunker{MaxTokens: maxTokens, Overlap: overlap, Tokenizer: tok}
}

// Chunk splits doc on word boundaries. A single word longer than MaxTokens
// becomes its own chunk.
func (c *Chunker) Chunk(doc Document) []Document {
	words := strings.Fields(doc.Content)
	if len(words) == 0 {
		return nil
	}

	counts := make([]int, len(words))
	total := 0
	for i, w := range words {
		counts[i] = c.Tokenizer.Count(w + " ")
		total += counts[i]
	}
	if total <= c.MaxTokens {
		return []Document{c.child(doc, 0, strings.Join(words, " "))}
	}

	var chunks []Document
	start := 0
	for start < len(words) {
		end := start
		used := 0
		for end < len(words) && (end == start || used+counts[end] <= c.MaxTokens) {
			used += counts[end]
			end++
		}
		chunks = append(chunks, c.child(doc, len(chunks), strings.Join(words[start:end], " ")))
		if end >= len(words) {
			break
		}

		next := end
		carried := 0
		for next > start+1 && carried+counts[next-1] <= c.Overlap {
			next--
			carried += counts[next]
		}
		start = next
	}
	return chunks
}

func (c *Chunker) child(doc Document, index int, content string) Document {
	meta := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta["chunk"] = index
	return Document{
		ID:       fmt.Sprintf("%s_%d", doc.ID, index),
		Name:     doc.Name,
		Page:     doc.Page,
		Content:  content,
		Metadata: meta,
	}
}
