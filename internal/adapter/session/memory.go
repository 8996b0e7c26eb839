// Package session provides domain.SessionStore backends: an in-process LRU
// with idle expiry and a Redis store for multi-instance deployments.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/jonboulle/clockwork"
)

// MemoryStore keeps sessions in a bounded LRU. Entries neither read nor
// written for longer than ttl are treated as missing; a zero ttl disables
// expiry.
type MemoryStore struct {
	cache *lruCache
	ttl   time.Duration
	clock clockwork.Clock
}

// NewMemoryStore creates a store holding at most maxEntries sessions.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: newLRUCache(maxEntries),
		ttl:   ttl,
		clock: clockwork.NewRealClock(),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Session, error) {
	sess, seen, ok := s.cache.get(id)
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if s.ttl > 0 && s.clock.Since(seen) > s.ttl {
		s.cache.delete(id)
		return domain.Session{}, fmt.Errorf("%w: %s expired", domain.ErrSessionNotFound, id)
	}
	s.cache.touch(id, s.clock.Now())
	return sess, nil
}

func (s *MemoryStore) Put(_ context.Context, sess domain.Session) error {
	s.cache.put(sess.ID, sess, s.clock.Now())
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.delete(id)
	return nil
}

// Len reports the number of cached sessions, including expired ones not yet
// touched.
func (s *MemoryStore) Len() int {
	return s.cache.len()
}

// lruCache is a simple thread-safe LRU cache of sessions.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   domain.Session
	touched time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// get returns the session and when it was last used.
func (c *lruCache) get(key string) (domain.Session, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Session{}, time.Time{}, false
	}
	c.moveToFront(e)
	return e.value, e.touched, true
}

func (c *lruCache) put(key string, value domain.Session, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.touched = now
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, touched: now}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// touch marks the entry as used at now.
func (c *lruCache) touch(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.touched = now
	}
}

func (c *lruCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
