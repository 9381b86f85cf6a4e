package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisGuardRateLimit(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	guard := NewRedisGuard(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := guard.CheckRateLimit(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	allowed, err := guard.CheckRateLimit(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "fourth attempt should be blocked")

	// Another client has its own counter.
	allowed, err = guard.CheckRateLimit(ctx, "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// The counter expires with the window.
	s.FastForward(2 * time.Minute)
	allowed, err = guard.CheckRateLimit(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisGuardNilClient(t *testing.T) {
	guard := NewRedisGuard(nil)
	_, err := guard.CheckRateLimit(context.Background(), "x", 1, time.Minute)
	assert.Error(t, err)
}

func TestMemoryGuardRateLimit(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := guard.CheckRateLimit(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := guard.CheckRateLimit(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMemoryGuardWindowReset(t *testing.T) {
	guard := NewMemoryGuard()
	ctx := context.Background()

	allowed, err := guard.CheckRateLimit(ctx, "k", 1, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	time.Sleep(5 * time.Millisecond)

	allowed, err = guard.CheckRateLimit(ctx, "k", 1, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed, "expired window starts a fresh count")
}

type failingGuard struct {
	calls int
}

func (f *failingGuard) CheckRateLimit(context.Context, string, int, time.Duration) (bool, error) {
	f.calls++
	return false, errors.New("connection refused")
}

func TestFailoverGuardFallsBack(t *testing.T) {
	logger := zerolog.New(io.Discard)
	primary := &failingGuard{}
	guard := NewFailoverGuard(primary, NewMemoryGuard(), &logger)
	ctx := context.Background()

	allowed, err := guard.CheckRateLimit(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, primary.calls)

	// While the primary is marked down it is not retried.
	_, err = guard.CheckRateLimit(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
}

func TestFailoverGuardRecovers(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	logger := zerolog.New(io.Discard)
	guard := NewFailoverGuard(NewRedisGuard(client), NewMemoryGuard(), &logger)
	guard.markDown()
	guard.mu.Lock()
	guard.lastCheck = time.Now().Add(-2 * time.Minute)
	guard.mu.Unlock()

	allowed, err := guard.CheckRateLimit(context.Background(), "k", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	guard.mu.Lock()
	down := guard.down
	guard.mu.Unlock()
	assert.False(t, down, "successful probe marks the primary up again")
}
