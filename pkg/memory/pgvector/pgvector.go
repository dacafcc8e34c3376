// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package pgvector implements memory.VectorStore on PostgreSQL with the
// pgvector extension. Each collection is its own table.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jllopis/agentdeck/internal/sqldb"
	"github.com/jllopis/agentdeck/pkg/memory"
)

// Store is a pgvector-backed vector store.
type Store struct {
	db     *sql.DB
	schema string
}

// Option configures the Store.
type Option func(*Store)

// WithSchema places collection tables in schema instead of "public".
func WithSchema(schema string) Option {
	return func(s *Store) {
		s.schema = schema
	}
}

// New creates a store over an open PostgreSQL connection.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, schema: "public"}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := sqldb.TableName(s.schema, ""); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return s, nil
}

func (s *Store) table(collection string) (string, error) {
	name, err := sqldb.TableName(collection, "")
	if err != nil {
		return "", err
	}
	return s.schema + "." + name, nil
}

// CreateCollection implements memory.VectorStore.
func (s *Store) CreateCollection(ctx context.Context, name string, vectorSize uint64) error {
	table, err := s.table(name)
	if err != nil {
		return err
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table, vectorSize),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}
	return nil
}

// CollectionExists implements memory.VectorStore.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	table, err := s.table(name)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return exists, nil
}

// DeleteCollection implements memory.VectorStore.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	table, err := s.table(name)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Count implements memory.VectorStore.
func (s *Store) Count(ctx context.Context, name string) (uint64, error) {
	table, err := s.table(name)
	if err != nil {
		return 0, err
	}
	var n uint64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// Upsert implements memory.VectorStore.
func (s *Store) Upsert(ctx context.Context, collection string, points []memory.Point) error {
	table, err := s.table(collection)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, payload) VALUES ($1, $2::vector, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`, table)
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, p.ID, Literal(p.Vector), string(payload)); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Search implements memory.VectorStore. Scores are cosine similarity.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]memory.SearchResult, error) {
	table, err := s.table(collection)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, payload, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2`, table)
	rows, err := s.db.QueryContext(ctx, query, Literal(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	defer rows.Close()

	var results []memory.SearchResult
	for rows.Next() {
		var id string
		var payload sql.NullString
		var score float64
		if err := rows.Scan(&id, &payload, &score); err != nil {
			return nil, err
		}
		if float32(score) < scoreThreshold {
			continue
		}
		point := memory.Point{ID: id}
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &point.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode payload for %s: %w", id, err)
			}
		}
		results = append(results, memory.SearchResult{ID: id, Score: float32(score), Point: point})
	}
	return results, rows.Err()
}

// Literal renders a vector in pgvector's text format, e.g. "[1,0.5]".
func Literal(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
