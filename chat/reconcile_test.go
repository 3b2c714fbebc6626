// Package chat
package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileMatchesByContent(t *testing.T) {
	now := time.Now()
	c := newReconcileCache(func() time.Time { return now })
	c.insert("hello", "corr-1")

	e, ok := c.match("hello")
	require.True(t, ok)
	assert.Equal(t, "corr-1", e.correlationID)

	// an entry only matches once
	_, ok = c.match("hello")
	assert.False(t, ok)
}

func TestReconcileFirstMatchWins(t *testing.T) {
	now := time.Now()
	c := newReconcileCache(func() time.Time { return now })
	c.insert("hello", "corr-1")
	c.insert("hello", "corr-2")

	e, ok := c.match("hello")
	require.True(t, ok)
	assert.Equal(t, "corr-1", e.correlationID)

	e, ok = c.match("hello")
	require.True(t, ok)
	assert.Equal(t, "corr-2", e.correlationID)
}

func TestReconcileAlteredContentMisses(t *testing.T) {
	now := time.Now()
	c := newReconcileCache(func() time.Time { return now })
	c.insert("hello", "corr-1")

	_, ok := c.match("hello!")
	assert.False(t, ok)
}

func TestReconcileWindowExpiry(t *testing.T) {
	now := time.Now()
	c := newReconcileCache(func() time.Time { return now })
	c.insert("hello", "corr-1")

	now = now.Add(reconcileWindow + time.Second)
	_, ok := c.match("hello")
	assert.False(t, ok)
	assert.Empty(t, c.entries)
}

func TestReconcileReset(t *testing.T) {
	now := time.Now()
	c := newReconcileCache(func() time.Time { return now })
	c.insert("hello", "corr-1")
	c.reset()

	_, ok := c.match("hello")
	assert.False(t, ok)
}
