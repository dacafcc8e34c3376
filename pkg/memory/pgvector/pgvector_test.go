// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package pgvector

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/agentdeck/pkg/memory"
)

func TestLiteral(t *testing.T) {
	assert.Equal(t, "[]", Literal(nil))
	assert.Equal(t, "[1,0.5,-2]", Literal([]float32{1, 0.5, -2}))
}

func TestNew_RejectsBadSchema(t *testing.T) {
	_, err := New(nil, WithSchema("ai; drop"))
	assert.Error(t, err)
}

func TestStore_CreateCollection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := New(db, WithSchema("ai"))
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE EXTENSION IF NOT EXISTS vector")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS ai")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS ai.recipes")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.CreateCollection(context.Background(), "recipes", 768))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, store.CreateCollection(context.Background(), "bad-name", 3))
}

func TestStore_UpsertAndSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store, err := New(db)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO public.uploaded_pdf")).
		WithArgs("p1", "[1,0]", `{"content":"chunk"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	require.NoError(t, store.Upsert(ctx, "uploaded_pdf", []memory.Point{
		{ID: "p1", Vector: []float32{1, 0}, Payload: map[string]interface{}{"content": "chunk"}},
	}))

	mock.ExpectQuery(regexp.QuoteMeta("FROM public.uploaded_pdf")).
		WithArgs("[1,0]", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload", "score"}).
			AddRow("p1", `{"content":"chunk"}`, 0.98).
			AddRow("p2", `{"content":"far"}`, 0.1))
	results, err := store.Search(ctx, "uploaded_pdf", []float32{1, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)
	assert.Equal(t, "chunk", results[0].Point.Payload["content"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CountExistsDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store, err := New(db)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT to_regclass($1) IS NOT NULL")).
		WithArgs("public.recipes").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := store.CollectionExists(ctx, "recipes")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM public.recipes")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	n, err := store.Count(ctx, "recipes")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), n)

	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS public.recipes")).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.DeleteCollection(ctx, "recipes"))

	require.NoError(t, mock.ExpectationsWereMet())
}
