// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package knowledge loads documents into a vector store and searches them.
package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is a unit of source text: a PDF page, a text file or a chunk of one.
type Document struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Page     int            `json:"page,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	// Score is set on search results.
	Score float32 `json:"score,omitempty"`
}

// Reader produces documents from a source.
type Reader interface {
	Read(ctx context.Context) ([]Document, error)
}

// TextReader reads a plain text or markdown file as a single document.
type TextReader struct {
	Path string
}

// Read implements Reader.
func (r TextReader) Read(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("text reader: %w", err)
	}
	name := docName(r.Path)
	return []Document{{
		ID:      name,
		Name:    name,
		Content: string(data),
		Metadata: map[string]any{
			"source": filepath.Base(r.Path),
		},
	}}, nil
}

// docName is the file name without directory or extension.
func docName(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
