// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jllopis/agentdeck/internal/sqldb"
	"github.com/jllopis/agentdeck/pkg/errors"
)

type storeFactory func(t testing.TB) Store

func stores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t testing.TB) Store { return NewMemoryStore() },
		"sqlite": func(t testing.TB) Store {
			s, err := OpenSQLStore(context.Background(), "sqlite://:memory:", WithTable("pdf_assistant"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"redis": func(t testing.TB) Store {
			mr := miniredis.NewMiniRedis()
			require.NoError(t, mr.Start())
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				client.Close()
				mr.Close()
			})
			return NewRedisStore(client, "")
		},
	}
}

func TestResolve_NoPriorRunCreatesOne(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			res, err := Resolve(ctx, store, "user", "pdf_assistant", false)
			require.NoError(t, err)
			assert.False(t, res.Resumed)
			assert.NotEmpty(t, res.RunID)

			run, err := store.GetRun(ctx, res.RunID)
			require.NoError(t, err)
			assert.Equal(t, "user", run.UserID)
			assert.Equal(t, "pdf_assistant", run.AgentName)
			assert.False(t, run.CreatedAt.IsZero())
		})
	}
}

func TestResolve_ResumesMostRecent(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			first, err := Resolve(ctx, store, "ana", "", true)
			require.NoError(t, err)
			second, err := Resolve(ctx, store, "ana", "", true)
			require.NoError(t, err)
			assert.NotEqual(t, first.RunID, second.RunID)

			resumed, err := Resolve(ctx, store, "ana", "", false)
			require.NoError(t, err)
			assert.True(t, resumed.Resumed)
			assert.Equal(t, second.RunID, resumed.RunID)

			ids, err := store.ListRunIDs(ctx, "ana")
			require.NoError(t, err)
			assert.Equal(t, []string{second.RunID, first.RunID}, ids)
		})
	}
}

func TestResolve_UsersAreIsolated(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			a, err := Resolve(ctx, store, "a", "", false)
			require.NoError(t, err)
			b, err := Resolve(ctx, store, "b", "", false)
			require.NoError(t, err)
			assert.False(t, b.Resumed)
			assert.NotEqual(t, a.RunID, b.RunID)
		})
	}
}

func TestStore_Errors(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			_, err := store.GetRun(ctx, "missing")
			assert.True(t, errors.HasCode(err, errors.CodeNotFound))
			assert.True(t, errors.HasCode(store.TouchRun(ctx, "missing"), errors.CodeNotFound))

			ids, err := store.ListRunIDs(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, ids)

			run := Run{RunID: "r1", UserID: "u"}
			require.NoError(t, store.CreateRun(ctx, run))
			assert.Error(t, store.CreateRun(ctx, run))
		})
	}
}

func TestRedisStore_CreateRunIsAtomic(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, "test:")
	ctx := context.Background()
	now := time.Now()

	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.CreateRun(ctx, Run{RunID: "r1", UserID: fmt.Sprintf("u%d", i), CreatedAt: now, UpdatedAt: now})
			if err == nil {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())

	run, err := store.GetRun(ctx, "r1")
	require.NoError(t, err)
	ids, err := store.ListRunIDs(ctx, run.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)
	assert.Equal(t, now.UTC().Format(time.RFC3339Nano), run.CreatedAt.UTC().Format(time.RFC3339Nano))

	seq, err := mr.Get("test:runs:seq")
	require.NoError(t, err)
	assert.Equal(t, "1", seq)
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "test:user:") {
			assert.Equal(t, "test:user:"+run.UserID+":runs", key)
		}
	}
}

func TestResolve_RequiresUser(t *testing.T) {
	_, err := Resolve(context.Background(), NewMemoryStore(), "", "", false)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestResolve_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS agent_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLStore(context.Background(), db, sqldb.Postgres)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT run_id FROM agent_runs WHERE user_id = $1 ORDER BY seq DESC")).
		WithArgs("user").
		WillReturnError(assert.AnError)

	_, err = Resolve(context.Background(), store, "user", "", false)
	assert.True(t, errors.HasCode(err, errors.CodeMemoryError))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pdf_assistant").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLStore(context.Background(), db, sqldb.Postgres, WithTable("pdf_assistant"))
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5)")).
		WithArgs("r1", "user", "pdf", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.CreateRun(context.Background(), Run{RunID: "r1", UserID: "user", AgentName: "pdf"}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pdf_assistant SET updated_at = $1 WHERE run_id = $2")).
		WithArgs(sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.TouchRun(context.Background(), "r1"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLStore_RejectsBadTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewSQLStore(context.Background(), db, sqldb.Postgres, WithTable("runs;--"))
	assert.Error(t, err)
}

// TestResolve_Properties checks resolution against a model of the latest
// run per user over random request sequences.
func TestResolve_Properties(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				store := factory(t)
				ctx := context.Background()
				latest := map[string]string{}
				seen := map[string]bool{}

				steps := rapid.IntRange(1, 15).Draw(rt, "steps")
				for i := 0; i < steps; i++ {
					user := rapid.SampledFrom([]string{"ana", "bo", "cy"}).Draw(rt, "user")
					startNew := rapid.Bool().Draw(rt, "startNew")

					res, err := Resolve(ctx, store, user, "agent", startNew)
					if err != nil {
						rt.Fatalf("resolve: %v", err)
					}

					prior, hasPrior := latest[user]
					switch {
					case !startNew && hasPrior:
						if !res.Resumed || res.RunID != prior {
							rt.Fatalf("expected resume of %s, got %+v", prior, res)
						}
					default:
						if res.Resumed || res.RunID == "" || seen[res.RunID] {
							rt.Fatalf("expected fresh run id, got %+v", res)
						}
						latest[user] = res.RunID
						seen[res.RunID] = true
					}
				}
			})
		})
	}
}
