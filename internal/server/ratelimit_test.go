package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, 0)
	defer rl.Stop()

	assert.Equal(t, 1, rl.burst, "burst is raised to one")
	assert.Equal(t, 0, rl.Clients())
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(0.001, 3)
	defer rl.Stop()

	for i := range 3 {
		_, ok := rl.Allow("client")
		assert.True(t, ok, "request %d within burst", i)
	}

	retry, ok := rl.Allow("client")
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	_, ok = rl.Allow("other")
	assert.True(t, ok)
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_RejectedRequestsDoNotConsumeTokens(t *testing.T) {
	rl := NewRateLimiter(50, 1)
	defer rl.Stop()

	_, ok := rl.Allow("client")
	assert.True(t, ok)
	for range 3 {
		_, ok = rl.Allow("client")
		assert.False(t, ok)
	}

	assert.Eventually(t, func() bool {
		_, ok := rl.Allow("client")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.Clients())

	rl.evictIdle(time.Now().Add(limiterIdleTTL / 2))
	assert.Equal(t, 2, rl.Clients())

	rl.evictIdle(time.Now().Add(2 * limiterIdleTTL))
	assert.Equal(t, 0, rl.Clients())
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
