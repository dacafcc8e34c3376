// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRunIDKeepsExisting(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx, id := EnsureRunID(ctx)
	assert.Equal(t, "run-1", id)

	got, ok := RunID(ctx)
	require.True(t, ok)
	assert.Equal(t, "run-1", got)
}

func TestEnsureRunIDAllocates(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	require.NotEmpty(t, id)

	got, ok := RunID(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, other := EnsureRunID(context.Background())
	assert.NotEqual(t, id, other)
}

func TestUserID(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)

	got, ok := UserID(WithUserID(context.Background(), "ana"))
	require.True(t, ok)
	assert.Equal(t, "ana", got)
}
