// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryVectorStore is a brute-force cosine VectorStore for tests and
// single-process demos.
type InMemoryVectorStore struct {
	mu          sync.RWMutex
	collections map[string]*vectorCollection
}

type vectorCollection struct {
	size   uint64
	order  []string
	points map[string]Point
}

// NewInMemoryVectorStore creates an empty store.
func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{collections: make(map[string]*vectorCollection)}
}

// CreateCollection implements VectorStore.
func (s *InMemoryVectorStore) CreateCollection(_ context.Context, name string, vectorSize uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &vectorCollection{size: vectorSize, points: make(map[string]Point)}
	return nil
}

// CollectionExists implements VectorStore.
func (s *InMemoryVectorStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// DeleteCollection implements VectorStore.
func (s *InMemoryVectorStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// Count implements VectorStore.
func (s *InMemoryVectorStore) Count(_ context.Context, name string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %q not found", name)
	}
	return uint64(len(c.points)), nil
}

// Upsert implements VectorStore.
func (s *InMemoryVectorStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q not found", collection)
	}
	for _, p := range points {
		if c.size > 0 && uint64(len(p.Vector)) != c.size {
			return fmt.Errorf("point %s has dimension %d, collection expects %d", p.ID, len(p.Vector), c.size)
		}
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = p
	}
	return nil
}

// Search implements VectorStore.
func (s *InMemoryVectorStore) Search(_ context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", collection)
	}

	results := make([]SearchResult, 0, len(c.points))
	for _, id := range c.order {
		p := c.points[id]
		score := CosineSimilarity(vector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, SearchResult{ID: id, Score: score, Point: p})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
