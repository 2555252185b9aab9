package cache

import (
	"sync"
	"time"

	"github.com/five82/tasksync/internal/api"
	"github.com/five82/tasksync/internal/query"
)

// DefaultFreshness is how long an entry counts as fresh.
const DefaultFreshness = 5 * time.Minute

// Entry is the latest complete result set for one signature.
type Entry struct {
	Signature query.Signature
	Rows      []api.Task
	FetchedAt time.Time
	Stale     bool
}

// Age returns how old the entry is relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// Options configure a Cache.
type Options struct {
	Freshness  time.Duration    // zero uses DefaultFreshness
	MaxEntries int              // zero or negative means unbounded
	Now        func() time.Time // nil uses time.Now
}

// Cache maps signatures to their last successful result set. It is safe for
// concurrent use; writes are last-write-wins.
type Cache struct {
	mu          sync.RWMutex
	entries     map[query.Signature]stored
	freshness   time.Duration
	maxEntries  int
	now         func() time.Time
	recoveredAt time.Time
}

type stored struct {
	rows      []api.Task
	fetchedAt time.Time
}

// New returns an empty Cache.
func New(opts Options) *Cache {
	c := &Cache{
		entries:    make(map[query.Signature]stored),
		freshness:  opts.Freshness,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
	}
	if c.freshness <= 0 {
		c.freshness = DefaultFreshness
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Get returns a copy of the entry for sig. Staleness is computed on read.
func (c *Cache) Get(sig query.Signature) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.entries[sig]
	if !ok {
		return Entry{}, false
	}
	now := c.now()
	return Entry{
		Signature: sig,
		Rows:      api.CloneTasks(s.rows),
		FetchedAt: s.fetchedAt,
		Stale:     now.Sub(s.fetchedAt) > c.freshness || s.fetchedAt.Before(c.recoveredAt),
	}, true
}

// Put stores rows as the complete result set for sig, replacing any previous
// entry wholesale.
func (c *Cache) Put(sig query.Signature, rows []api.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sig] = stored{rows: api.CloneTasks(rows), fetchedAt: c.now()}
	c.evictLocked(sig)
}

// Invalidate drops the entry for sig.
func (c *Cache) Invalidate(sig query.Signature) {
	c.mu.Lock()
	delete(c.entries, sig)
	c.mu.Unlock()
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// MarkRecovered records a connectivity recovery: every entry fetched before
// this instant reads as stale until it is rewritten.
func (c *Cache) MarkRecovered() {
	c.mu.Lock()
	c.recoveredAt = c.now()
	c.mu.Unlock()
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops oldest entries until the cap holds, never evicting keep.
func (c *Cache) evictLocked(keep query.Signature) {
	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		var (
			oldestSig query.Signature
			oldestAt  time.Time
			found     bool
		)
		for sig, s := range c.entries {
			if sig == keep {
				continue
			}
			if !found || s.fetchedAt.Before(oldestAt) || (s.fetchedAt.Equal(oldestAt) && sig < oldestSig) {
				oldestSig, oldestAt, found = sig, s.fetchedAt, true
			}
		}
		if !found {
			return
		}
		delete(c.entries, oldestSig)
	}
}
