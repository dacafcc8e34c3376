// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jllopis/agentdeck/internal/sqldb"
)

// SQLConversation stores chat history in PostgreSQL or SQLite.
type SQLConversation struct {
	db      *sql.DB
	dialect sqldb.Dialect
	table   string
	config  ConversationConfig
}

// SQLConfig configures the SQL conversation store.
type SQLConfig struct {
	// DB is the database connection. Required.
	DB      *sql.DB
	Dialect sqldb.Dialect
	// TableName defaults to "conversation_messages".
	TableName          string
	ConversationConfig ConversationConfig
}

// NewSQLConversation creates a SQL conversation store.
// Call Initialize to create the table if it doesn't exist.
func NewSQLConversation(cfg SQLConfig) (*SQLConversation, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	table, err := sqldb.TableName(cfg.TableName, "conversation_messages")
	if err != nil {
		return nil, err
	}
	return &SQLConversation{
		db:      cfg.DB,
		dialect: cfg.Dialect,
		table:   table,
		config:  cfg.ConversationConfig,
	}, nil
}

// Initialize creates the conversation table and indexes if they don't exist.
func (s *SQLConversation) Initialize(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq %s,
			id VARCHAR(64) NOT NULL UNIQUE,
			run_id VARCHAR(255) NOT NULL,
			role VARCHAR(32) NOT NULL,
			content TEXT NOT NULL,
			tool_call_id VARCHAR(255),
			metadata %s,
			created_at %s NOT NULL
		)`, s.table, s.dialect.SerialKey(), s.dialect.JSONType(), s.dialect.TimeType()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_run ON %s (run_id, seq)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initialize %s: %w", s.table, err)
		}
	}
	return nil
}

// AppendMessage implements ConversationMemory.
func (s *SQLConversation) AppendMessage(ctx context.Context, runID string, msg ConversationMessage) error {
	msg = prepare(runID, msg)

	var metadata sql.NullString
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	query := s.dialect.Rebind(fmt.Sprintf(`
		INSERT INTO %s (id, run_id, role, content, tool_call_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, s.table))
	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		runID,
		msg.Role,
		msg.Content,
		sql.NullString{String: msg.ToolCallID, Valid: msg.ToolCallID != ""},
		metadata,
		msg.CreatedAt,
	)
	return err
}

// GetMessages implements ConversationMemory.
func (s *SQLConversation) GetMessages(ctx context.Context, runID string) ([]ConversationMessage, error) {
	query := s.dialect.Rebind(fmt.Sprintf(`
		SELECT id, run_id, role, content, tool_call_id, metadata, created_at
		FROM %s WHERE run_id = ? ORDER BY seq ASC`, s.table))
	messages, err := s.queryMessages(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	return s.config.apply(ctx, messages)
}

// GetRecentMessages implements ConversationMemory.
func (s *SQLConversation) GetRecentMessages(ctx context.Context, runID string, limit int) ([]ConversationMessage, error) {
	if limit <= 0 {
		return s.GetMessages(ctx, runID)
	}
	query := s.dialect.Rebind(fmt.Sprintf(`
		SELECT id, run_id, role, content, tool_call_id, metadata, created_at
		FROM (
			SELECT seq, id, run_id, role, content, tool_call_id, metadata, created_at
			FROM %s WHERE run_id = ? ORDER BY seq DESC LIMIT ?
		) sub
		ORDER BY seq ASC`, s.table))
	return s.queryMessages(ctx, query, runID, limit)
}

// Clear implements ConversationMemory.
func (s *SQLConversation) Clear(ctx context.Context, runID string) error {
	query := s.dialect.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE run_id = ?`, s.table))
	_, err := s.db.ExecContext(ctx, query, runID)
	return err
}

func (s *SQLConversation) queryMessages(ctx context.Context, query string, args ...any) ([]ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ConversationMessage
	for rows.Next() {
		var msg ConversationMessage
		var toolCallID, metadata sql.NullString
		var createdAt sqldb.Time
		if err := rows.Scan(&msg.ID, &msg.RunID, &msg.Role, &msg.Content, &toolCallID, &metadata, &createdAt); err != nil {
			return nil, err
		}
		msg.CreatedAt = createdAt.Time
		msg.ToolCallID = toolCallID.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				msg.Metadata = nil
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
