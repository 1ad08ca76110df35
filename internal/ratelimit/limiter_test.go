package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_WithinLimit(t *testing.T) {
	l := NewPerMinute(5)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("client-a"), "request %d within burst", i+1)
	}
	assert.False(t, l.Allow("client-a"), "sixth request is rejected")
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	l := NewPerMinute(2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// A different client still has a full bucket.
	assert.True(t, l.Allow("b"))
	assert.True(t, l.Allow("b"))
}

func TestAllow_TokensRegenerate(t *testing.T) {
	l := NewPerMinute(60) // one token per second
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 60; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))

	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow("a"), "tokens regenerate over time")
}

func TestRetryAfter(t *testing.T) {
	l := NewPerMinute(60)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.Equal(t, time.Duration(0), l.RetryAfter("unknown"))

	for l.Allow("a") {
	}
	assert.Equal(t, time.Second, l.RetryAfter("a"))

	now = now.Add(2 * time.Second)
	assert.Equal(t, time.Duration(0), l.RetryAfter("a"))
}

func TestPrune(t *testing.T) {
	l := NewPerMinute(10)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("stale")
	now = now.Add(idleEvictAfter + time.Minute)
	l.Allow("fresh")

	removed := l.Prune()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())
}
