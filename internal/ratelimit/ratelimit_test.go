package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracked(krl *KeyedRateLimiter) int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}

func TestPerInterval_BurstThenLimited(t *testing.T) {
	rl := PerInterval(20, time.Minute, 2)
	defer rl.Stop()

	require.True(t, rl.Allow("203.0.113.7"))
	require.True(t, rl.Allow("203.0.113.7"))
	assert.False(t, rl.Allow("203.0.113.7"), "third signin attempt inside the interval")
}

func TestPerInterval_ClientsAreIndependent(t *testing.T) {
	rl := PerInterval(1, time.Hour, 1)
	defer rl.Stop()

	require.True(t, rl.Allow("198.51.100.1"))
	assert.False(t, rl.Allow("198.51.100.1"))
	assert.True(t, rl.Allow("198.51.100.2"))
}

func TestPerInterval_ZeroCountDoesNotPanic(t *testing.T) {
	rl := PerInterval(0, time.Second, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("ip"))
}

func TestEvictIdle(t *testing.T) {
	rl := PerInterval(10, time.Minute, 1)
	defer rl.Stop()

	rl.Allow("stale")
	rl.Allow("fresh")
	require.Equal(t, 2, tracked(rl))

	rl.mu.Lock()
	rl.limiters["stale"].lastSeen = time.Now().Add(-2 * DefaultIdleTTL)
	rl.mu.Unlock()

	assert.Equal(t, 1, rl.evictIdle(time.Now()))
	assert.Equal(t, 1, tracked(rl))
	assert.True(t, rl.Allow("stale"), "evicted key starts with a fresh bucket")
}

func TestStop_Idempotent(t *testing.T) {
	rl := PerInterval(10, time.Minute, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
