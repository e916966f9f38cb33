package api

import (
	"os"
	"strconv"
	"sync"

	"github.com/exotriage/exotriage/internal/discovery"
)

// BatchCache is a thread-safe LRU cache of enriched batches keyed by source
// fingerprint. Filtering and paging a cached batch never re-runs inference.
type BatchCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*cacheEntry
	order   []string // oldest first
}

type cacheEntry struct {
	batch *discovery.Batch
	runID string
}

// NewBatchCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 8.
func NewBatchCache(maxSize int) *BatchCache {
	if maxSize <= 0 {
		maxSize = 8
	}
	return &BatchCache{
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
	}
}

// NewBatchCacheFromEnv creates a cache with size from BATCH_CACHE_SIZE.
func NewBatchCacheFromEnv() *BatchCache {
	size := 8
	if v := os.Getenv("BATCH_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return NewBatchCache(size)
}

// Get retrieves a batch and the ID of the run that produced it.
func (c *BatchCache) Get(fingerprint string) (*discovery.Batch, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil, "", false
	}

	c.moveToEnd(fingerprint)
	return entry.batch, entry.runID, true
}

// Put adds a batch, evicting the least recently used entry if full.
func (c *BatchCache) Put(fingerprint string, batch *discovery.Batch, runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[fingerprint]; ok {
		c.entries[fingerprint] = &cacheEntry{batch: batch, runID: runID}
		c.moveToEnd(fingerprint)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[fingerprint] = &cacheEntry{batch: batch, runID: runID}
	c.order = append(c.order, fingerprint)
}

// Len returns the number of cached batches.
func (c *BatchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *BatchCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
}

func (c *BatchCache) moveToEnd(fingerprint string) {
	for i, k := range c.order {
		if k == fingerprint {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, fingerprint)
			return
		}
	}
}
