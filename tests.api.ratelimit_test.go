package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClientLimiters(t *testing.T) {
	now := NewMockClocker().Now()

	t.Run("disabled", func(t *testing.T) {
		cl := NewClientLimiters(0, 5)
		assert.False(t, cl.Enabled())
		for i := 0; i < 100; i++ {
			assert.True(t, cl.Allow("10.0.0.1", now))
		}
		assert.Equal(t, 0, cl.Len())
	})

	t.Run("burst then refill", func(t *testing.T) {
		cl := NewClientLimiters(2, 3)
		assert.True(t, cl.Enabled())
		for i := 0; i < 3; i++ {
			assert.True(t, cl.Allow("10.0.0.1", now))
		}
		assert.False(t, cl.Allow("10.0.0.1", now))
		assert.True(t, cl.Allow("10.0.0.2", now))
		assert.True(t, cl.Allow("10.0.0.1", now.Add(500*time.Millisecond)))
	})

	t.Run("prune idle clients", func(t *testing.T) {
		cl := NewClientLimiters(1, 1)
		cl.Allow("old", now)
		cl.Allow("recent", now.Add(4*time.Minute))
		assert.Equal(t, 2, cl.Len())
		assert.Equal(t, 1, cl.Prune(now.Add(6*time.Minute), 5*time.Minute))
		assert.Equal(t, 1, cl.Len())
	})

	t.Run("zero burst is raised to one", func(t *testing.T) {
		cl := NewClientLimiters(1, 0)
		assert.True(t, cl.Allow("c", now))
		assert.False(t, cl.Allow("c", now))
	})
}

// TestPruneRateLimiters ensures the pruning loop returns once ctx is done.
func TestPruneRateLimiters(t *testing.T) {
	tc := newTestCatalog(t)
	tc.api.logger = zap.NewNop()
	clock := NewTickClock(NewClock(true))

	// disabled limiters return at once.
	assert.NoError(t, tc.api.PruneRateLimiters(context.Background(), clock, time.Millisecond))

	tc.api.limiters = NewClientLimiters(1, 1)
	tc.api.limiters.Allow("10.0.0.1", time.Now().Add(-time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tc.api.PruneRateLimiters(ctx, clock, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool { return tc.api.limiters.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
