// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package qdrant

import (
	"context"
	"net"
	"sync"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/jllopis/agentdeck/pkg/memory"
)

type fakeQdrant struct {
	pb.UnimplementedCollectionsServer

	mu          sync.Mutex
	collections map[string]bool
	created     int
	upserted    []*pb.PointStruct
}

func (f *fakeQdrant) CollectionExists(_ context.Context, req *pb.CollectionExistsRequest) (*pb.CollectionExistsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &pb.CollectionExistsResponse{Result: &pb.CollectionExists{Exists: f.collections[req.GetCollectionName()]}}, nil
}

func (f *fakeQdrant) Create(_ context.Context, req *pb.CreateCollection) (*pb.CollectionOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[req.GetCollectionName()] = true
	f.created++
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeQdrant) Delete(_ context.Context, req *pb.DeleteCollection) (*pb.CollectionOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections, req.GetCollectionName())
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeQdrant) Upsert(_ context.Context, req *pb.UpsertPoints) (*pb.PointsOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, req.GetPoints()...)
	return &pb.PointsOperationResponse{}, nil
}

func (f *fakeQdrant) Count(_ context.Context, _ *pb.CountPoints) (*pb.CountResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &pb.CountResponse{Result: &pb.CountResult{Count: uint64(len(f.upserted))}}, nil
}

func (f *fakeQdrant) Search(_ context.Context, _ *pb.SearchPoints) (*pb.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*pb.ScoredPoint, 0, len(f.upserted))
	for _, p := range f.upserted {
		out = append(out, &pb.ScoredPoint{Id: p.GetId(), Payload: p.GetPayload(), Score: 0.9})
	}
	return &pb.SearchResponse{Result: out}, nil
}

// fakePoints adapts fakeQdrant to PointsServer; the collections and points
// services share method names (Get, Delete) so one type cannot implement both.
type fakePoints struct {
	pb.UnimplementedPointsServer
	q *fakeQdrant
}

func (p *fakePoints) Upsert(ctx context.Context, req *pb.UpsertPoints) (*pb.PointsOperationResponse, error) {
	return p.q.Upsert(ctx, req)
}

func (p *fakePoints) Count(ctx context.Context, req *pb.CountPoints) (*pb.CountResponse, error) {
	return p.q.Count(ctx, req)
}

func (p *fakePoints) Search(ctx context.Context, req *pb.SearchPoints) (*pb.SearchResponse, error) {
	return p.q.Search(ctx, req)
}

func newTestStore(t *testing.T) (*Store, *fakeQdrant) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	fake := &fakeQdrant{collections: map[string]bool{}}
	srv := grpc.NewServer()
	pb.RegisterCollectionsServer(srv, fake)
	pb.RegisterPointsServer(srv, &fakePoints{q: fake})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	store := NewWithConn(conn)
	t.Cleanup(func() { store.Close() })
	return store, fake
}

func TestStore_CollectionLifecycle(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "recipes", 4))
	require.NoError(t, store.CreateCollection(ctx, "recipes", 4))
	assert.Equal(t, 1, fake.created)

	exists, err := store.CollectionExists(ctx, "recipes")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteCollection(ctx, "recipes"))
	require.NoError(t, store.DeleteCollection(ctx, "recipes"))
	exists, err = store.CollectionExists(ctx, "recipes")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_UpsertSearchRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, "recipes", []memory.Point{
		{ID: "ThaiRecipes-1", Vector: []float32{1, 0}, Payload: map[string]interface{}{
			"content": "Pad Thai", "page": 3, "meta": map[string]interface{}{"source": "pdf"},
		}},
	})
	require.NoError(t, err)

	n, err := store.Count(ctx, "recipes")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	results, err := store.Search(ctx, "recipes", []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ThaiRecipes-1", results[0].ID)
	assert.Equal(t, "Pad Thai", results[0].Point.Payload["content"])
	assert.Equal(t, int64(3), results[0].Point.Payload["page"])
	assert.NotContains(t, results[0].Point.Payload, idKey)
	assert.Equal(t, "pdf", results[0].Point.Payload["meta"].(map[string]interface{})["source"])
}
