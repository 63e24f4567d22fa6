// Package cache keeps recent scrape results in memory so repeated requests
// for the same URL can skip the fetch.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/sectionscraper/models"
)

const (
	sweepInterval = time.Hour
	maxEntryAge   = time.Hour
)

// Entry is a cached scrape.
type Entry struct {
	// ID is the stored scrape id, empty when the result was not persisted.
	ID        string
	Result    *models.ScrapeResult
	CreatedAt time.Time
}

// Cache is an in-memory cache of scrape results keyed by URL.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*Entry
	maxEntries int
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a Cache holding at most maxEntries results. A background
// goroutine drops entries older than an hour; Close stops it.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*Entry),
		maxEntries: max(maxEntries, 1),
		now:        time.Now,
		done:       make(chan struct{}),
	}

	go c.sweepLoop()
	return c
}

// Key derives the cache key for a URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}

// Get returns the entry for url if it is younger than maxAgeMs milliseconds.
// maxAgeMs <= 0 disables the lookup.
func (c *Cache) Get(url string, maxAgeMs int) (*Entry, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[Key(url)]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().Sub(e.CreatedAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e, true
}

// Set stores result for url. At capacity the oldest entry is evicted.
func (c *Cache) Set(url, id string, result *models.ScrapeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(url)
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.store[key] = &Entry{
		ID:        id,
		Result:    result,
		CreatedAt: c.now(),
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Sweep drops entries older than an hour.
func (c *Cache) Sweep() {
	cutoff := c.now().Add(-maxEntryAge)
	c.mu.Lock()
	for k, e := range c.store {
		if e.CreatedAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

// Close stops the background sweep.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.store {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey, oldest = k, e.CreatedAt
		}
	}
	delete(c.store, oldestKey)
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.done:
			return
		}
	}
}
