package restapi

import (
	"sync"
	"time"

	"github.com/codeready-toolchain/drafter/pkg/models"
)

// cacheEntry holds fetched history with a timestamp for TTL expiration.
type cacheEntry struct {
	entries   []models.HistoryEntry
	fetchedAt time.Time
}

// Cache is a thread-safe per-session history cache with TTL expiration.
// Expired entries are cleaned up lazily on Get(); no background goroutine.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

// NewCache creates a new cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// Get returns a copy of the cached history if present and not expired.
func (c *Cache) Get(sessionID string) ([]models.HistoryEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[sessionID]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Since(entry.fetchedAt) > c.ttl {
		// Re-check under the write lock: a concurrent Set may have stored a
		// fresh entry in between.
		c.mu.Lock()
		if current, ok := c.entries[sessionID]; ok && time.Since(current.fetchedAt) > c.ttl {
			delete(c.entries, sessionID)
		}
		c.mu.Unlock()
		return nil, false
	}

	return append([]models.HistoryEntry(nil), entry.entries...), true
}

// Set stores history with the current timestamp.
func (c *Cache) Set(sessionID string, entries []models.HistoryEntry) {
	c.mu.Lock()
	c.entries[sessionID] = &cacheEntry{
		entries:   append([]models.HistoryEntry(nil), entries...),
		fetchedAt: time.Now(),
	}
	c.mu.Unlock()
}

// Invalidate drops the cached history of a session.
func (c *Cache) Invalidate(sessionID string) {
	c.mu.Lock()
	delete(c.entries, sessionID)
	c.mu.Unlock()
}
