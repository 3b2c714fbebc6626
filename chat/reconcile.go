// Package chat
package chat

import "time"

// reconcileWindow bounds how long a self-sent message waits for its
// server echo. Entries past the window are evicted regardless of
// match state; a late echo then appends a duplicate rather than
// dropping silently.
const reconcileWindow = 10 * time.Second

type reconcileEntry struct {
	content       string
	createdAt     time.Time
	correlationID string
	matched       bool
}

// reconcileCache records recently self-sent messages so that server
// echoes update the optimistic entry instead of appending a second
// copy. The wire protocol does not round-trip a client-assigned id,
// so matching is by content equality and recency: the first live
// unmatched entry with equal content wins. Owned by the coordinator's
// run loop.
type reconcileCache struct {
	entries []*reconcileEntry
	now     func() time.Time
}

func newReconcileCache(now func() time.Time) *reconcileCache {
	return &reconcileCache{now: now}
}

func (c *reconcileCache) insert(content, correlationID string) {
	c.evict()
	c.entries = append(c.entries, &reconcileEntry{
		content:       content,
		createdAt:     c.now(),
		correlationID: correlationID,
	})
}

// match finds the first live unmatched entry with equal content and
// marks it matched.
func (c *reconcileCache) match(content string) (*reconcileEntry, bool) {
	c.evict()
	for _, e := range c.entries {
		if !e.matched && e.content == content {
			e.matched = true
			return e, true
		}
	}
	return nil, false
}

func (c *reconcileCache) reset() {
	c.entries = nil
}

func (c *reconcileCache) evict() {
	cutoff := c.now().Add(-reconcileWindow)
	live := c.entries[:0]
	for _, e := range c.entries {
		if e.createdAt.After(cutoff) {
			live = append(live, e)
		}
	}
	c.entries = live
}
