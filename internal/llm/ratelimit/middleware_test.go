package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ideate/internal/llm"
	"github.com/ahrav/go-ideate/internal/llm/llmerrors"
)

func countingHandler(calls *int) llm.Handler {
	return llm.HandlerFunc(func(context.Context, *llm.Request) (*llm.Response, error) {
		*calls++
		return &llm.Response{Content: "ok"}, nil
	})
}

func TestMiddleware_PassesWithinBurst(t *testing.T) {
	var calls int
	wrapped := NewMiddleware(Config{RequestsPerSecond: 100, Burst: 5}, nil)(countingHandler(&calls))

	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := wrapped.Handle(context.Background(), &llm.Request{})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, calls)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "burst passes without pacing")
}

func TestMiddleware_PacesBeyondBurst(t *testing.T) {
	var calls int
	wrapped := NewMiddleware(Config{RequestsPerSecond: 50, Burst: 1}, nil)(countingHandler(&calls))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := wrapped.Handle(context.Background(), &llm.Request{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
	// Two paced calls at 50 rps cost roughly 40ms of waiting.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestMiddleware_CancelledWaitBecomesRateLimitError(t *testing.T) {
	var calls int
	wrapped := NewMiddleware(Config{RequestsPerSecond: 0.1, Burst: 1}, nil)(countingHandler(&calls))

	// Drain the single burst token.
	_, err := wrapped.Handle(context.Background(), &llm.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = wrapped.Handle(ctx, &llm.Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var rateErr *llmerrors.RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.True(t, rateErr.LocalLimit)
	assert.Equal(t, "local", rateErr.Provider)
	assert.GreaterOrEqual(t, rateErr.RetryAfter, 1)
	assert.Equal(t, 1, calls, "handler not invoked for the cancelled call")
}

func TestMiddleware_ZeroConfigUsesDefaults(t *testing.T) {
	var calls int
	wrapped := NewMiddleware(Config{}, nil)(countingHandler(&calls))

	_, err := wrapped.Handle(context.Background(), &llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
