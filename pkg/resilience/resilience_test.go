// Copyright 2026 © The Agentdeck Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jllopis/agentdeck/pkg/errors"
)

func fastRetry() RetryConfig {
	return DefaultRetryConfig().WithInitialDelay(time.Millisecond)
}

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := fastRetry().WithMaxAttempts(2).Do(context.Background(), func(context.Context) error {
		attempts++
		return stderrors.New("always fails")
	})
	assert.EqualError(t, err, "always fails")
	assert.Equal(t, 2, attempts)
}

func TestRetryStopsOnUnrecoverable(t *testing.T) {
	attempts := 0
	err := fastRetry().Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New(errors.CodeUnauthorized, "bad key", nil)
	})
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
	assert.Equal(t, 1, attempts)
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultRetryConfig().WithInitialDelay(time.Hour)
	attempts := 0
	err := cfg.Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return stderrors.New("transient")
	})
	assert.True(t, errors.HasCode(err, errors.CodeTimeout))
	assert.Equal(t, 1, attempts)
}

func TestIsRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(nil))
	assert.True(t, IsRecoverable(stderrors.New("plain")))
	assert.True(t, IsRecoverable(errors.New(errors.CodeToolFailure, "x", nil).WithRecoverable(true)))
	assert.False(t, IsRecoverable(errors.New(errors.CodeInternal, "x", nil)))
}

func TestPollCompletes(t *testing.T) {
	checks := 0
	polls, err := Poll(context.Background(), PollConfig{Interval: time.Millisecond}, func(context.Context) (bool, error) {
		checks++
		return checks == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
}

func TestPollMaxPolls(t *testing.T) {
	polls, err := Poll(context.Background(), PollConfig{Interval: time.Millisecond, MaxPolls: 4}, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.True(t, errors.HasCode(err, errors.CodeTimeout))
	assert.Equal(t, 4, polls)
}

func TestPollTimeout(t *testing.T) {
	start := time.Now()
	_, err := Poll(context.Background(), PollConfig{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.True(t, errors.HasCode(err, errors.CodeTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPollCheckError(t *testing.T) {
	boom := stderrors.New("boom")
	polls, err := Poll(context.Background(), PollConfig{Interval: time.Millisecond}, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, polls)
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute, Name: "yahoo"})
	cb.now = func() time.Time { return now }

	fail := func(context.Context) error { return stderrors.New("503") }
	ok := func(context.Context) error { return nil }
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.False(t, called)
	assert.True(t, errors.HasCode(err, errors.CodeToolFailure))

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerIgnoresNotFound(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	notFound := errors.New(errors.CodeNotFound, "symbol not found", nil)
	_ = cb.Execute(context.Background(), func(context.Context) error { return notFound })
	assert.Equal(t, StateClosed, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Second})
	cb.now = func() time.Time { return now }
	fail := func(context.Context) error { return stderrors.New("down") }

	_ = cb.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, cb.State())
	now = now.Add(2 * time.Second)
	_ = cb.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, cb.State())
}
