// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/memory"
)

// letterEmbedder embeds text as normalized letter frequencies.
type letterEmbedder struct {
	calls atomic.Int32
	fail  bool
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.fail {
		return nil, fmt.Errorf("embedding service unavailable")
	}
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	vec[0] += 0.001
	return vec, nil
}

type staticReader []Document

func (r staticReader) Read(context.Context) ([]Document, error) { return r, nil }

func recipes() staticReader {
	return staticReader{
		{ID: "ThaiRecipes_1", Name: "ThaiRecipes", Page: 1, Content: "Tom kha gai is a coconut milk soup with galangal", Metadata: map[string]any{"page": 1}},
		{ID: "ThaiRecipes_2", Name: "ThaiRecipes", Page: 2, Content: "Pad thai noodles with peanuts and tamarind", Metadata: map[string]any{"page": 2}},
	}
}

func TestBase_LoadAndSearch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryVectorStore()
	kb := New("recipes", store, &letterEmbedder{}, WithReaders(recipes()))

	res, err := kb.Load(ctx, LoadOptions{Recreate: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Documents)
	assert.Equal(t, 2, res.Chunks)

	docs, err := kb.Search(ctx, "pad thai noodles peanuts tamarind", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ThaiRecipes", docs[0].Name)
	assert.Equal(t, 2, docs[0].Page)
	assert.Contains(t, docs[0].Content, "Pad thai")
	assert.Equal(t, 0, docs[0].Metadata["chunk"])
}

func TestBase_ReloadWithoutRecreateDuplicates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryVectorStore()
	kb := New("recipes", store, &letterEmbedder{}, WithReaders(recipes()))

	_, err := kb.Load(ctx, LoadOptions{})
	require.NoError(t, err)
	_, err = kb.Load(ctx, LoadOptions{})
	require.NoError(t, err)

	n, err := kb.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	_, err = kb.Load(ctx, LoadOptions{Recreate: true})
	require.NoError(t, err)
	n, err = kb.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestBase_SkipIfLoaded(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryVectorStore()

	first := New("recipes", store, &letterEmbedder{}, WithReaders(recipes()))
	res, err := first.Load(ctx, LoadOptions{SkipIfLoaded: true})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.Chunks)

	// A second process sharing the store must not add another copy.
	emb := &letterEmbedder{}
	second := New("recipes", store, emb, WithReaders(recipes()))
	res, err = second.Load(ctx, LoadOptions{SkipIfLoaded: true})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.Chunks)
	assert.Equal(t, int32(0), emb.calls.Load())

	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	res, err = second.Load(ctx, LoadOptions{SkipIfLoaded: true, Recreate: true})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	n, err = second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestBase_LoadExtraReaders(t *testing.T) {
	ctx := context.Background()
	kb := New("uploaded_pdf", memory.NewInMemoryVectorStore(), &letterEmbedder{})

	res, err := kb.Load(ctx, LoadOptions{Readers: []Reader{recipes()}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)
}

func TestBase_SearchBeforeLoad(t *testing.T) {
	emb := &letterEmbedder{}
	kb := New("uploaded_pdf", memory.NewInMemoryVectorStore(), emb)
	docs, err := kb.Search(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestBase_EmbedFailure(t *testing.T) {
	store := memory.NewInMemoryVectorStore()
	kb := New("recipes", store, &letterEmbedder{fail: true}, WithReaders(recipes()), WithConcurrency(1))
	_, err := kb.Load(context.Background(), LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeKnowledgeError))

	exists, err := store.CollectionExists(context.Background(), "recipes")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSearchTool(t *testing.T) {
	ctx := context.Background()
	kb := New("recipes", memory.NewInMemoryVectorStore(), &letterEmbedder{}, WithReaders(recipes()))
	_, err := kb.Load(ctx, LoadOptions{})
	require.NoError(t, err)

	tool := kb.SearchTool()
	assert.Equal(t, SearchToolName, tool.Name())

	out, err := tool.Call(ctx, `{"query":"coconut soup galangal"}`)
	require.NoError(t, err)
	assert.Contains(t, out.(string), "Tom kha gai")

	_, err = tool.Call(ctx, `{}`)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestChunker(t *testing.T) {
	c := NewChunker(10, 4, EstimateTokenizer{})

	small := c.Chunk(Document{ID: "d", Content: "short text"})
	require.Len(t, small, 1)
	assert.Equal(t, "d_0", small[0].ID)

	words := make([]string, 60)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	doc := Document{ID: "doc", Name: "doc", Page: 3, Content: strings.Join(words, " "), Metadata: map[string]any{"page": 3}}
	chunks := c.Chunk(doc)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(chunk.Content)), 10)
		assert.Equal(t, i, chunk.Metadata["chunk"])
		assert.Equal(t, 3, chunk.Page)
		if i > 0 {
			prev := strings.Fields(chunks[i-1].Content)
			cur := strings.Fields(chunk.Content)
			assert.Equal(t, prev[len(prev)-4:], cur[:4], "chunk %d should start with the overlap", i)
		}
	}
	last := strings.Fields(chunks[len(chunks)-1].Content)
	assert.Equal(t, "w059", last[len(last)-1])
	assert.Empty(t, c.Chunk(Document{Content: "   "}))
}

func TestChunker_LongWord(t *testing.T) {
	c := NewChunker(2, 0, EstimateTokenizer{})
	chunks := c.Chunk(Document{ID: "d", Content: strings.Repeat("x", 100) + " tail words here"})
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("x", 100), chunks[0].Content)
}

func TestTextReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Curry\nUse fresh basil."), 0o600))

	docs, err := TextReader{Path: path}.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes", docs[0].Name)
	assert.Contains(t, docs[0].Content, "fresh basil")

	_, err = TextReader{Path: filepath.Join(t.TempDir(), "missing.txt")}.Read(context.Background())
	assert.Error(t, err)
}

func TestPDFReaders(t *testing.T) {
	data := buildPDF("Green curry with chicken")

	path := filepath.Join(t.TempDir(), "temp_user.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	docs, err := PDFReader{Path: path}.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "temp_user", docs[0].Name)
	assert.Equal(t, "temp_user_1", docs[0].ID)
	assert.Equal(t, 1, docs[0].Page)
	assert.Contains(t, docs[0].Content, "Green curry")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recipes/ThaiRecipes.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	docs, err = PDFURLReader{URL: srv.URL + "/recipes/ThaiRecipes.pdf"}.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ThaiRecipes", docs[0].Name)
	assert.Equal(t, srv.URL+"/recipes/ThaiRecipes.pdf", docs[0].Metadata["url"])

	_, err = PDFURLReader{URL: srv.URL + "/missing.pdf"}.Read(context.Background())
	assert.Error(t, err)

	_, err = parsePDF(context.Background(), "junk", []byte("not a pdf"))
	assert.Error(t, err)
}

// buildPDF writes a single-page PDF showing text in Helvetica.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 18 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
