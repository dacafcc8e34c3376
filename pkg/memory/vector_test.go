// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestInMemoryVectorStore_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryVectorStore()
	require.NoError(t, store.CreateCollection(ctx, "recipes", 2))

	require.NoError(t, store.Upsert(ctx, "recipes", []Point{
		{ID: "curry", Vector: []float32{1, 0}, Payload: map[string]interface{}{"content": "green curry"}},
		{ID: "soup", Vector: []float32{0.7, 0.7}, Payload: map[string]interface{}{"content": "tom yum"}},
		{ID: "salad", Vector: []float32{0, 1}, Payload: map[string]interface{}{"content": "som tam"}},
	}))

	results, err := store.Search(ctx, "recipes", []float32{1, 0.1}, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "curry", results[0].ID)
	assert.Equal(t, "soup", results[1].ID)
	assert.Equal(t, "green curry", results[0].Point.Payload["content"])

	filtered, err := store.Search(ctx, "recipes", []float32{1, 0}, 10, 0.9)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestInMemoryVectorStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryVectorStore()

	exists, err := store.CollectionExists(ctx, "uploaded_pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateCollection(ctx, "uploaded_pdf", 3))
	require.NoError(t, store.CreateCollection(ctx, "uploaded_pdf", 3))
	require.NoError(t, store.Upsert(ctx, "uploaded_pdf", []Point{{ID: "a", Vector: []float32{1, 2, 3}}}))
	require.NoError(t, store.Upsert(ctx, "uploaded_pdf", []Point{{ID: "a", Vector: []float32{3, 2, 1}}}))

	n, err := store.Count(ctx, "uploaded_pdf")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	assert.Error(t, store.Upsert(ctx, "uploaded_pdf", []Point{{ID: "b", Vector: []float32{1}}}))
	assert.Error(t, store.Upsert(ctx, "missing", nil))

	require.NoError(t, store.DeleteCollection(ctx, "uploaded_pdf"))
	require.NoError(t, store.DeleteCollection(ctx, "uploaded_pdf"))
	_, err = store.Count(ctx, "uploaded_pdf")
	assert.Error(t, err)
}

func TestInMemoryVectorStore_SearchProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := NewInMemoryVectorStore()
		_ = store.CreateCollection(ctx, "c", 3)

		n := rapid.IntRange(0, 20).Draw(t, "n")
		points := make([]Point, n)
		for i := range points {
			vec := rapid.SliceOfN(rapid.Float32Range(-1, 1), 3, 3).Draw(t, "vec")
			points[i] = Point{ID: string(rune('a' + i)), Vector: vec}
		}
		if err := store.Upsert(ctx, "c", points); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		limit := rapid.IntRange(1, 25).Draw(t, "limit")
		query := rapid.SliceOfN(rapid.Float32Range(-1, 1), 3, 3).Draw(t, "query")
		results, err := store.Search(ctx, "c", query, limit, -2)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(results) > limit || len(results) > n {
			t.Fatalf("got %d results for limit %d and %d points", len(results), limit, n)
		}
		for i := 1; i < len(results); i++ {
			if results[i].Score > results[i-1].Score {
				t.Fatalf("results not sorted at %d", i)
			}
		}
	})
}
