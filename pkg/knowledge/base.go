// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/memory"
	"github.com/jllopis/agentdeck/pkg/telemetry"
)

const upsertBatch = 64

// Base is a named collection of embedded document chunks.
type Base struct {
	collection string
	readers    []Reader
	store      memory.VectorStore
	embedder   memory.Embedder
	chunker    *Chunker
	limit      int
	workers    int
	threshold  float32
}

// Option configures a Base.
type Option func(*Base)

// WithReaders sets the document sources loaded by Load.
func WithReaders(readers ...Reader) Option {
	return func(b *Base) {
		b.readers = append(b.readers, readers...)
	}
}

// WithChunker overrides the default chunker.
func WithChunker(c *Chunker) Option {
	return func(b *Base) {
		b.chunker = c
	}
}

// WithNumDocuments sets how many chunks Search returns by default. Default 5.
func WithNumDocuments(n int) Option {
	return func(b *Base) {
		b.limit = n
	}
}

// WithConcurrency bounds parallel embedding calls during Load. Default 4.
func WithConcurrency(n int) Option {
	return func(b *Base) {
		b.workers = n
	}
}

// WithScoreThreshold drops search results scoring below t.
func WithScoreThreshold(t float32) Option {
	return func(b *Base) {
		b.threshold = t
	}
}

// New creates a knowledge base over collection.
func New(collection string, store memory.VectorStore, embedder memory.Embedder, opts ...Option) *Base {
	b := &Base{
		collection: collection,
		store:      store,
		embedder:   embedder,
		limit:      5,
		workers:    4,
		threshold:  -1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.chunker == nil {
		b.chunker = NewChunker(0, 0, nil)
	}
	return b
}

// Collection returns the vector store collection name.
func (b *Base) Collection() string {
	return b.collection
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Recreate drops the collection before loading. Without it, loading the
	// same source again adds a second copy of its chunks.
	Recreate bool
	// SkipIfLoaded leaves a collection that already holds chunks untouched.
	// Ignored when Recreate is set.
	SkipIfLoaded bool
	// Readers are loaded in addition to those configured on the Base.
	Readers []Reader
}

// LoadResult summarizes a Load.
type LoadResult struct {
	Documents int
	Chunks    int
	Duration  time.Duration
	// Skipped is set when SkipIfLoaded found the collection populated.
	Skipped bool
}

// Load reads every source, chunks and embeds the text and stores it.
// It returns once all chunks are stored.
func (b *Base) Load(ctx context.Context, opts LoadOptions) (LoadResult, error) {
	start := time.Now()
	ctx, span := otel.Tracer("agentdeck/knowledge").Start(ctx, "Knowledge.Load")
	defer span.End()

	res, err := b.load(ctx, opts)
	res.Duration = time.Since(start)
	span.SetAttributes(telemetry.KnowledgeAttributes(b.collection, res.Documents, res.Chunks, opts.Recreate)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	slog.InfoContext(ctx, "knowledge.load",
		slog.String("collection", b.collection),
		slog.Bool("skipped", res.Skipped),
		slog.Int("documents", res.Documents),
		slog.Int("chunks", res.Chunks),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

func (b *Base) load(ctx context.Context, opts LoadOptions) (LoadResult, error) {
	var res LoadResult
	if opts.SkipIfLoaded && !opts.Recreate {
		loaded, err := b.loaded(ctx)
		if err != nil {
			return res, err
		}
		if loaded {
			res.Skipped = true
			return res, nil
		}
	}
	if opts.Recreate {
		if err := b.store.DeleteCollection(ctx, b.collection); err != nil {
			return res, b.wrap("failed to recreate collection", err)
		}
	}

	readers := append(append([]Reader{}, b.readers...), opts.Readers...)
	var chunks []Document
	for _, r := range readers {
		docs, err := r.Read(ctx)
		if err != nil {
			return res, b.wrap("failed to read documents", err)
		}
		res.Documents += len(docs)
		for _, doc := range docs {
			chunks = append(chunks, b.chunker.Chunk(doc)...)
		}
	}
	res.Chunks = len(chunks)
	if len(chunks) == 0 {
		return res, nil
	}

	points, err := b.embed(ctx, chunks)
	if err != nil {
		return res, err
	}
	if err := b.store.CreateCollection(ctx, b.collection, uint64(len(points[0].Vector))); err != nil {
		return res, b.wrap("failed to create collection", err)
	}
	for i := 0; i < len(points); i += upsertBatch {
		end := min(i+upsertBatch, len(points))
		if err := b.store.Upsert(ctx, b.collection, points[i:end]); err != nil {
			return res, b.wrap("failed to store chunks", err)
		}
	}
	return res, nil
}

// loaded reports whether the collection exists and holds at least one chunk.
func (b *Base) loaded(ctx context.Context) (bool, error) {
	exists, err := b.store.CollectionExists(ctx, b.collection)
	if err != nil {
		return false, b.wrap("failed to inspect collection", err)
	}
	if !exists {
		return false, nil
	}
	n, err := b.store.Count(ctx, b.collection)
	if err != nil {
		return false, b.wrap("failed to inspect collection", err)
	}
	return n > 0, nil
}

func (b *Base) embed(ctx context.Context, chunks []Document) ([]memory.Point, error) {
	points := make([]memory.Point, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.workers, 1))
	now := time.Now().Unix()
	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := b.embedder.Embed(gctx, chunk.Content)
			if err != nil {
				return fmt.Errorf("embed %s: %w", chunk.ID, err)
			}
			points[i] = memory.Point{
				ID:        uuid.NewString(),
				Vector:    vec,
				Payload:   payload(chunk),
				Timestamp: now,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, b.wrap("failed to embed chunks", err)
	}
	return points, nil
}

// Search returns the chunks nearest to query. limit <= 0 uses the default.
// Searching a collection that has not been loaded returns no results.
func (b *Base) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = b.limit
	}
	ctx, span := otel.Tracer("agentdeck/knowledge").Start(ctx, "Knowledge.Search",
		trace.WithAttributes(telemetry.KnowledgeAttributes(b.collection, 0, 0, false)...))
	defer span.End()

	exists, err := b.store.CollectionExists(ctx, b.collection)
	if err != nil {
		return nil, b.wrap("failed to search knowledge base", err)
	}
	if !exists {
		return nil, nil
	}
	vec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, b.wrap("failed to embed query", err)
	}
	results, err := b.store.Search(ctx, b.collection, vec, limit, b.threshold)
	if err != nil {
		return nil, b.wrap("failed to search knowledge base", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		doc := fromPayload(r.Point.Payload)
		doc.Score = r.Score
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the number of stored chunks.
func (b *Base) Count(ctx context.Context) (uint64, error) {
	return b.store.Count(ctx, b.collection)
}

func (b *Base) wrap(msg string, err error) error {
	if errors.HasCode(err, errors.CodeKnowledgeError) {
		return err
	}
	return errors.New(errors.CodeKnowledgeError, msg, err).WithContext("collection", b.collection)
}

func payload(doc Document) map[string]any {
	p := map[string]any{
		"id":      doc.ID,
		"name":    doc.Name,
		"content": doc.Content,
	}
	if doc.Page > 0 {
		p["page"] = doc.Page
	}
	if len(doc.Metadata) > 0 {
		meta := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		p["meta"] = meta
	}
	return p
}

func fromPayload(p map[string]any) Document {
	doc := Document{}
	doc.ID, _ = p["id"].(string)
	doc.Name, _ = p["name"].(string)
	doc.Content, _ = p["content"].(string)
	switch page := p["page"].(type) {
	case int:
		doc.Page = page
	case int64:
		doc.Page = int(page)
	case float64:
		doc.Page = int(page)
	}
	if meta, ok := p["meta"].(map[string]any); ok {
		doc.Metadata = meta
	}
	return doc
}
