// Package cache holds the bot's only mutable shared state: the per-chat
// pending-confirmation entries.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long a pending entry stays confirmable.
const DefaultTTL = 5 * time.Minute

// Pending is a TTL store keyed by chat id with at most one entry per chat.
// Stale entries are discarded the next time they are touched.
type Pending[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[int64]pendingItem[T]
}

type pendingItem[T any] struct {
	data      T
	expiresAt time.Time
}

// NewPending creates a pending store with the given TTL. A zero ttl falls
// back to DefaultTTL.
func NewPending[T any](ttl time.Duration) *Pending[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Pending[T]{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[int64]pendingItem[T]),
	}
}

// Get retrieves the entry for a chat. Expired entries are removed and
// reported as absent.
func (p *Pending[T]) Get(chatID int64) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	item, ok := p.items[chatID]
	if !ok {
		return zero, false
	}
	if p.now().After(item.expiresAt) {
		delete(p.items, chatID)
		return zero, false
	}
	return item.data, true
}

// Set stores the entry for a chat, replacing any previous one.
func (p *Pending[T]) Set(chatID int64, data T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.items[chatID] = pendingItem[T]{
		data:      data,
		expiresAt: p.now().Add(p.ttl),
	}
}

// Take retrieves and removes the entry for a chat in one step.
func (p *Pending[T]) Take(chatID int64) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	item, ok := p.items[chatID]
	if !ok {
		return zero, false
	}
	delete(p.items, chatID)
	if p.now().After(item.expiresAt) {
		return zero, false
	}
	return item.data, true
}

// Delete removes the entry for a chat.
func (p *Pending[T]) Delete(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, chatID)
}

// CleanExpired removes all expired entries and returns how many were removed.
func (p *Pending[T]) CleanExpired() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	removed := 0
	for chatID, item := range p.items {
		if now.After(item.expiresAt) {
			delete(p.items, chatID)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (p *Pending[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// SetClock overrides the time source. Tests use this to control expiry.
func (p *Pending[T]) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}
