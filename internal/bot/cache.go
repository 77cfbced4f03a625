package bot

import (
	"sync"
	"time"

	"scalper/internal/model"
)

type cacheKey struct {
	symbol string
	bucket int64
}

// AnalysisCache holds signals keyed by (symbol, time bucket). A signal is
// reused for every request in the same bucket; buckets older than the
// previous one are pruned after each cycle.
type AnalysisCache struct {
	mu      sync.Mutex
	entries map[cacheKey]model.Signal
}

// NewAnalysisCache creates an empty cache.
func NewAnalysisCache() *AnalysisCache {
	return &AnalysisCache{entries: make(map[cacheKey]model.Signal)}
}

// BucketOf returns floor(t / ttl). A non-positive ttl gives every instant
// its own bucket.
func BucketOf(t time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return t.UnixNano()
	}
	return t.UnixNano() / int64(ttl)
}

// Get returns the cached signal for symbol in bucket.
func (c *AnalysisCache) Get(symbol string, bucket int64) (model.Signal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sig, ok := c.entries[cacheKey{symbol, bucket}]
	return sig, ok
}

// Put stores sig for symbol in bucket.
func (c *AnalysisCache) Put(symbol string, bucket int64, sig model.Signal) {
	c.mu.Lock()
	c.entries[cacheKey{symbol, bucket}] = sig
	c.mu.Unlock()
}

// Prune drops every entry more than one bucket behind current and returns
// how many were removed.
func (c *AnalysisCache) Prune(current int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.bucket < current-1 {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of cached signals.
func (c *AnalysisCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
