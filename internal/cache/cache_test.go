package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLGetSet(t *testing.T) {
	now := time.Now()
	c := NewTTLWithClock[string](func() time.Time { return now })

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v", time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestTTLExpiry(t *testing.T) {
	now := time.Now()
	c := NewTTLWithClock[int](func() time.Time { return now })

	c.Set("k", 42, time.Minute)

	now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLPurge(t *testing.T) {
	now := time.Now()
	c := NewTTLWithClock[int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Hour)

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestTTLNonPositiveTTL(t *testing.T) {
	c := NewTTL[string]()
	c.Set("k", "v", 0)
	_, ok := c.Get("k")
	assert.False(t, ok)
}
