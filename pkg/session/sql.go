// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jllopis/agentdeck/internal/sqldb"
)

// SQLStore persists runs in PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect sqldb.Dialect
	table   string
	owned   bool
}

// SQLOption configures SQLStore.
type SQLOption func(*SQLStore)

// WithTable sets the runs table name. Default "agent_runs".
func WithTable(name string) SQLOption {
	return func(s *SQLStore) {
		s.table = name
	}
}

// NewSQLStore wraps an open connection and creates the runs table.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect sqldb.Dialect, opts ...SQLOption) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	for _, opt := range opts {
		opt(s)
	}
	table, err := sqldb.TableName(s.table, "agent_runs")
	if err != nil {
		return nil, err
	}
	s.table = table
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLStore opens url (postgres:// or a SQLite path) and returns a store
// that closes the connection on Close.
func OpenSQLStore(ctx context.Context, url string, opts ...SQLOption) (*SQLStore, error) {
	db, dialect, err := sqldb.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLStore(ctx, db, dialect, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// DB exposes the connection so history stores can share it.
func (s *SQLStore) DB() (*sql.DB, sqldb.Dialect) {
	return s.db, s.dialect
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq %s,
			run_id VARCHAR(64) NOT NULL UNIQUE,
			user_id VARCHAR(255) NOT NULL,
			agent_name VARCHAR(255),
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, s.table, s.dialect.SerialKey(), s.dialect.TimeType(), s.dialect.TimeType()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s (user_id, seq)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

// CreateRun implements Store.
func (s *SQLStore) CreateRun(ctx context.Context, run Run) error {
	query := s.dialect.Rebind(fmt.Sprintf(`
		INSERT INTO %s (run_id, user_id, agent_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`, s.table))
	_, err := s.db.ExecContext(ctx, query, run.RunID, run.UserID, run.AgentName, run.CreatedAt.UTC(), run.UpdatedAt.UTC())
	return err
}

// GetRun implements Store.
func (s *SQLStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := s.dialect.Rebind(fmt.Sprintf(`
		SELECT run_id, user_id, agent_name, created_at, updated_at
		FROM %s WHERE run_id = ?`, s.table))

	var run Run
	var agentName sql.NullString
	var created, updated sqldb.Time
	err := s.db.QueryRowContext(ctx, query, runID).Scan(&run.RunID, &run.UserID, &agentName, &created, &updated)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, err
	}
	run.AgentName = agentName.String
	run.CreatedAt = created.Time
	run.UpdatedAt = updated.Time
	return &run, nil
}

// ListRunIDs implements Store.
func (s *SQLStore) ListRunIDs(ctx context.Context, userID string) ([]string, error) {
	query := s.dialect.Rebind(fmt.Sprintf(`
		SELECT run_id FROM %s WHERE user_id = ? ORDER BY seq DESC`, s.table))
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TouchRun implements Store.
func (s *SQLStore) TouchRun(ctx context.Context, runID string) error {
	query := s.dialect.Rebind(fmt.Sprintf(`UPDATE %s SET updated_at = ? WHERE run_id = ?`, s.table))
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(runID)
	}
	return nil
}

// Close implements Store. Connections passed to NewSQLStore stay open.
func (s *SQLStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
