// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConversation stores each run's history as a Redis list of JSON messages.
type RedisConversation struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	config ConversationConfig
}

// RedisConversationConfig configures RedisConversation.
type RedisConversationConfig struct {
	// Prefix is prepended to run ids. Default "agentdeck:history:".
	Prefix string
	// TTL expires idle histories. Zero keeps them forever.
	TTL                time.Duration
	ConversationConfig ConversationConfig
}

// NewRedisConversation creates a Redis-backed conversation store.
func NewRedisConversation(client redis.UniversalClient, cfg RedisConversationConfig) *RedisConversation {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "agentdeck:history:"
	}
	return &RedisConversation{client: client, prefix: prefix, ttl: cfg.TTL, config: cfg.ConversationConfig}
}

func (r *RedisConversation) key(runID string) string {
	return r.prefix + runID
}

// AppendMessage implements ConversationMemory.
func (r *RedisConversation) AppendMessage(ctx context.Context, runID string, msg ConversationMessage) error {
	raw, err := json.Marshal(prepare(runID, msg))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.key(runID), raw)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(runID), r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// GetMessages implements ConversationMemory.
func (r *RedisConversation) GetMessages(ctx context.Context, runID string) ([]ConversationMessage, error) {
	messages, err := r.lrange(ctx, runID, 0, -1)
	if err != nil {
		return nil, err
	}
	return r.config.apply(ctx, messages)
}

// GetRecentMessages implements ConversationMemory.
func (r *RedisConversation) GetRecentMessages(ctx context.Context, runID string, limit int) ([]ConversationMessage, error) {
	if limit <= 0 {
		return r.lrange(ctx, runID, 0, -1)
	}
	return r.lrange(ctx, runID, int64(-limit), -1)
}

// Clear implements ConversationMemory.
func (r *RedisConversation) Clear(ctx context.Context, runID string) error {
	return r.client.Del(ctx, r.key(runID)).Err()
}

func (r *RedisConversation) lrange(ctx context.Context, runID string, start, stop int64) ([]ConversationMessage, error) {
	items, err := r.client.LRange(ctx, r.key(runID), start, stop).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]ConversationMessage, 0, len(items))
	for _, item := range items {
		var msg ConversationMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
