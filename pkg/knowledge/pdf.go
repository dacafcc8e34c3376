// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// PDFReader reads a local PDF, one document per page.
type PDFReader struct {
	Path string
	// Name overrides the document name derived from Path.
	Name string
}

// Read implements Reader.
func (r PDFReader) Read(ctx context.Context) ([]Document, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}
	name := r.Name
	if name == "" {
		name = docName(r.Path)
	}
	return parsePDF(ctx, name, data)
}

// PDFURLReader downloads a PDF and reads it page by page.
type PDFURLReader struct {
	URL    string
	Client *http.Client
}

// Read implements Reader.
func (r PDFURLReader) Read(ctx context.Context) ([]Document, error) {
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("pdf url reader: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdf url reader: download %s: %w", r.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pdf url reader: download %s: status %d", r.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pdf url reader: %w", err)
	}

	name := "document"
	if u, err := url.Parse(r.URL); err == nil && u.Path != "" {
		name = docName(path.Base(u.Path))
	}
	docs, err := parsePDF(ctx, name, data)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Metadata["url"] = r.URL
	}
	return docs, nil
}

func parsePDF(ctx context.Context, name string, data []byte) ([]Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %s: %w", name, err)
	}

	var docs []Document
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf reader: %s page %d: %w", name, i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s_%d", name, i),
			Name:     name,
			Page:     i,
			Content:  text,
			Metadata: map[string]any{"page": i},
		})
	}
	return docs, nil
}
