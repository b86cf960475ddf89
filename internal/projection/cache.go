// Package projection keeps a transient, non-authoritative copy of opportunities keyed by id.
// The store is always the source of truth: entries are replaced with whatever the store
// returns after a mutation, and the whole list expires after a TTL.
package projection

import (
	"context"
	"sync"
	"time"

	"volunteermatch/internal/domain"
)

// Clock returns the current time.
type Clock func() time.Time

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	items    map[string]*domain.Opportunity
	loadedAt time.Time
	complete bool
	ttl      time.Duration
	now      Clock
}

// NewCache returns an empty cache whose full listing stays fresh for ttl.
// A zero ttl disables list caching; per-id entries are still maintained.
func NewCache(ttl time.Duration, now Clock) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		items: make(map[string]*domain.Opportunity),
		ttl:   ttl,
		now:   now,
	}
}

// Get returns a copy of the cached opportunity.
func (c *Cache) Get(id string) (*domain.Opportunity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// List returns copies of every cached opportunity if the last full load is still fresh.
func (c *Cache) List() ([]*domain.Opportunity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.complete || c.ttl <= 0 || c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	out := make([]*domain.Opportunity, 0, len(c.items))
	for _, o := range c.items {
		out = append(out, o.Clone())
	}
	return out, true
}

// ReplaceAll discards every entry and stores the given full listing.
func (c *Cache) ReplaceAll(opps []*domain.Opportunity) {
	items := make(map[string]*domain.Opportunity, len(opps))
	for _, o := range opps {
		items[o.ID] = o.Clone()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.loadedAt = c.now()
	c.complete = true
}

// Put stores a copy of o.
func (c *Cache) Put(o *domain.Opportunity) {
	if o == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[o.ID] = o.Clone()
}

// Remove drops the entry for id.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// Invalidate forces the next List to miss.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.complete = false
}

// Apply runs one optimistic mutation: mutate is applied to the cached entry (if any), then
// commit writes to the store. On a commit error the entry is restored to its prior value and
// the error is returned unchanged, unless another Apply replaced the entry in the meantime;
// then the entry is dropped and the listing invalidated. On success the entry is replaced with
// the committed record, or removed (and the listing invalidated) when commit returns nil.
func (c *Cache) Apply(
	ctx context.Context,
	id string,
	mutate func(*domain.Opportunity),
	commit func(context.Context) (*domain.Opportunity, error),
) (*domain.Opportunity, error) {
	c.mu.Lock()
	prior, had := c.items[id]
	var next *domain.Opportunity
	if had && mutate != nil {
		next = prior.Clone()
		mutate(next)
		c.items[id] = next
	}
	c.mu.Unlock()

	committed, err := commit(ctx)
	if err != nil {
		c.mu.Lock()
		c.rollback(id, prior, next)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	if committed == nil {
		delete(c.items, id)
		c.complete = false
	} else {
		c.items[id] = committed.Clone()
	}
	c.mu.Unlock()
	return committed, nil
}

// rollback undoes this call's optimistic change. The caller holds c.mu.
func (c *Cache) rollback(id string, prior, next *domain.Opportunity) {
	if next == nil {
		return
	}
	if cur, ok := c.items[id]; ok && cur == next {
		c.items[id] = prior
		return
	}
	// Another mutation has replaced the entry since; prior is no longer the confirmed state.
	delete(c.items, id)
	c.complete = false
}
