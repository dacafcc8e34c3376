// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqldb opens PostgreSQL or SQLite databases through database/sql and
// papers over the few dialect differences the stores care about.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavor of a connection.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "pgx"
}

// Rebind rewrites ? placeholders to $n for PostgreSQL.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SerialKey is an auto-incrementing primary key column definition.
func (d Dialect) SerialKey() string {
	if d == SQLite {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "BIGSERIAL PRIMARY KEY"
}

// TimeType is the column type used for timestamps.
func (d Dialect) TimeType() string {
	if d == SQLite {
		return "TIMESTAMP"
	}
	return "TIMESTAMPTZ"
}

// JSONType is the column type used for JSON documents.
func (d Dialect) JSONType() string {
	if d == SQLite {
		return "TEXT"
	}
	return "JSONB"
}

// DialectFor infers the dialect from a connection URL.
// postgres:// and postgresql:// select PostgreSQL; anything else is a SQLite path.
func DialectFor(url string) Dialect {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Open connects to url and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, Dialect, error) {
	dialect := DialectFor(url)
	dsn := url
	if dialect == SQLite {
		dsn = strings.TrimPrefix(url, "sqlite://")
		if dsn == "" {
			dsn = ":memory:"
		}
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, dialect, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// One connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dialect, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, dialect, nil
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TableName validates an identifier used in generated SQL.
func TableName(table, fallback string) (string, error) {
	if table == "" {
		table = fallback
	}
	if table == "" {
		return "", fmt.Errorf("table name is required")
	}
	if !tableNamePattern.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Time scans timestamp columns that drivers may return as time.Time or as text.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// Scan implements sql.Scanner.
func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (t *Time) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
