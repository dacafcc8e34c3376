// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each run in a hash and each user's runs in a sorted set
// scored by a creation sequence.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis run store. Prefix defaults to "agentdeck:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "agentdeck:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) runKey(runID string) string   { return s.prefix + "run:" + runID }
func (s *RedisStore) userKey(userID string) string { return s.prefix + "user:" + userID + ":runs" }
func (s *RedisStore) seqKey() string               { return s.prefix + "runs:seq" }

// createRun stores the run hash and indexes it under its user in one step.
// KEYS: run hash, user index, sequence. Returns 0 when the run exists.
var createRun = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('HSET', KEYS[1],
	'run_id', ARGV[1], 'user_id', ARGV[2], 'agent_name', ARGV[3],
	'created_at', ARGV[4], 'updated_at', ARGV[5])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return 1
`)

// CreateRun implements Store.
func (s *RedisStore) CreateRun(ctx context.Context, run Run) error {
	keys := []string{s.runKey(run.RunID), s.userKey(run.UserID), s.seqKey()}
	created, err := createRun.Run(ctx, s.client, keys,
		run.RunID,
		run.UserID,
		run.AgentName,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
		run.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return stderrors.New("run " + run.RunID + " already exists")
	}
	return nil
}

// GetRun implements Store.
func (s *RedisStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	fields, err := s.client.HGetAll(ctx, s.runKey(runID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, notFound(runID)
	}
	run := &Run{
		RunID:     runID,
		UserID:    fields["user_id"],
		AgentName: fields["agent_name"],
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return run, nil
}

// ListRunIDs implements Store.
func (s *RedisStore) ListRunIDs(ctx context.Context, userID string) ([]string, error) {
	return s.client.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
}

// TouchRun implements Store.
func (s *RedisStore) TouchRun(ctx context.Context, runID string) error {
	exists, err := s.client.Exists(ctx, s.runKey(runID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return notFound(runID)
	}
	return s.client.HSet(ctx, s.runKey(runID), "updated_at", time.Now().UTC().Format(time.RFC3339Nano)).Err()
}

// Close implements Store. The client is owned by the caller.
func (s *RedisStore) Close() error { return nil }
