// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jllopis/agentdeck/internal/sqldb"
	"github.com/jllopis/agentdeck/pkg/errors"
	"github.com/jllopis/agentdeck/pkg/knowledge"
	"github.com/jllopis/agentdeck/pkg/memory"
	"github.com/jllopis/agentdeck/pkg/memory/pgvector"
	"github.com/jllopis/agentdeck/pkg/memory/qdrant"
	"github.com/jllopis/agentdeck/pkg/session"
)

const (
	defaultSQLitePath = "agentdeck.db"
	redisPrefix       = "agentdeck:"
)

// Sessions returns the run store and the conversation history selected by
// storage.backend. Both share one connection.
func (a *App) Sessions(ctx context.Context) (session.Store, memory.ConversationMemory, error) {
	cfg := a.Config.Storage
	switch strings.ToLower(cfg.Backend) {
	case "postgres", "postgresql":
		if sqldb.DialectFor(a.Config.DBURL) != sqldb.Postgres {
			return nil, nil, errors.New(errors.CodeInvalidInput, "storage.backend postgres needs a postgres:// db_url", nil)
		}
		return a.sqlSessions(ctx, a.Config.DBURL)
	case "sqlite":
		url := a.Config.DBURL
		if sqldb.DialectFor(url) != sqldb.SQLite {
			url = defaultSQLitePath
		}
		return a.sqlSessions(ctx, url)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, errors.New(errors.CodeMemoryError, "failed to connect to redis", err).
				WithContext("addr", cfg.RedisAddr)
		}
		a.onClose(func(context.Context) error { return client.Close() })
		store := session.NewRedisStore(client, redisPrefix)
		history := memory.NewRedisConversation(client, memory.RedisConversationConfig{Prefix: redisPrefix + "history:"})
		return store, history, nil
	case "memory":
		return session.NewMemoryStore(), memory.NewInMemoryConversation(memory.ConversationConfig{}), nil
	default:
		return nil, nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("unknown storage backend %q", cfg.Backend), nil)
	}
}

func (a *App) sqlSessions(ctx context.Context, url string) (session.Store, memory.ConversationMemory, error) {
	store, err := session.OpenSQLStore(ctx, url, session.WithTable(a.Config.Storage.RunsTable))
	if err != nil {
		return nil, nil, errors.New(errors.CodeMemoryError, "failed to open run store", err)
	}
	a.onClose(func(context.Context) error { return store.Close() })

	db, dialect := store.DB()
	history, err := memory.NewSQLConversation(memory.SQLConfig{
		DB:        db,
		Dialect:   dialect,
		TableName: a.Config.Storage.HistoryTable,
	})
	if err != nil {
		return nil, nil, errors.New(errors.CodeMemoryError, "failed to open history store", err)
	}
	if err := history.Initialize(ctx); err != nil {
		return nil, nil, errors.New(errors.CodeMemoryError, "failed to create history table", err)
	}
	a.Logger.InfoContext(ctx, "storage.open",
		slog.String("dialect", dialect.String()),
		slog.String("runs_table", a.Config.Storage.RunsTable),
	)
	return store, history, nil
}

// UseVectorStore makes VectorStore return vs instead of the configured one.
func (a *App) UseVectorStore(vs memory.VectorStore) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.vectors = vs
}

// VectorStore returns the store selected by knowledge.vector_store.
func (a *App) VectorStore(ctx context.Context) (memory.VectorStore, error) {
	a.mu.Lock()
	vs := a.vectors
	a.mu.Unlock()
	if vs != nil {
		return vs, nil
	}
	cfg := a.Config.Knowledge
	switch strings.ToLower(cfg.VectorStore) {
	case "pgvector":
		db, dialect, err := sqldb.Open(ctx, a.Config.DBURL)
		if err != nil {
			return nil, errors.New(errors.CodeKnowledgeError, "failed to open vector database", err)
		}
		if dialect != sqldb.Postgres {
			db.Close()
			return nil, errors.New(errors.CodeInvalidInput, "pgvector needs a postgres:// db_url", nil)
		}
		return a.pgvector(db)
	case "qdrant":
		store, err := qdrant.New(cfg.QdrantAddr)
		if err != nil {
			return nil, errors.New(errors.CodeKnowledgeError, "failed to connect to qdrant", err).
				WithContext("addr", cfg.QdrantAddr)
		}
		a.onClose(func(context.Context) error { return store.Close() })
		return store, nil
	case "memory":
		return memory.NewInMemoryVectorStore(), nil
	default:
		return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("unknown vector store %q", cfg.VectorStore), nil)
	}
}

func (a *App) pgvector(db *sql.DB) (memory.VectorStore, error) {
	a.onClose(func(context.Context) error { return db.Close() })
	store, err := pgvector.New(db)
	if err != nil {
		return nil, errors.New(errors.CodeKnowledgeError, "failed to prepare pgvector", err)
	}
	return store, nil
}

// Knowledge builds a knowledge base over collection with the configured
// vector store, embedder and chunking. Readers are loaded by Base.Load.
func (a *App) Knowledge(ctx context.Context, collection string, readers ...knowledge.Reader) (*knowledge.Base, error) {
	store, err := a.VectorStore(ctx)
	if err != nil {
		return nil, err
	}
	emb, err := a.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	cfg := a.Config.Knowledge
	if collection == "" {
		collection = cfg.Collection
	}

	var tok knowledge.Tokenizer
	if !strings.EqualFold(cfg.Tokenizer, "estimate") {
		tok = knowledge.NewTokenizer(cfg.Tokenizer)
	}
	opts := []knowledge.Option{
		knowledge.WithChunker(knowledge.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, tok)),
		knowledge.WithReaders(readers...),
	}
	if cfg.NumDocuments > 0 {
		opts = append(opts, knowledge.WithNumDocuments(cfg.NumDocuments))
	}
	if cfg.ScoreThreshold > 0 {
		opts = append(opts, knowledge.WithScoreThreshold(cfg.ScoreThreshold))
	}
	return knowledge.New(collection, store, emb, opts...), nil
}

// PDFReaders returns one URL reader per knowledge.pdf_urls entry.
func (a *App) PDFReaders() []knowledge.Reader {
	readers := make([]knowledge.Reader, 0, len(a.Config.Knowledge.PDFURLs))
	for _, u := range a.Config.Knowledge.PDFURLs {
		readers = append(readers, knowledge.PDFURLReader{URL: u})
	}
	return readers
}
