package autrust

import (
	"sync"
	"time"
)

// ScoreCache caches computed trust scores to keep hot listing pages from
// re-reading seller aggregates on every render.
type ScoreCache interface {
	// Get retrieves a cached score.
	// Returns the score and true if found, false otherwise.
	Get(sellerID string) (Score, bool)

	// Set stores a score with TTL.
	Set(sellerID string, score Score, ttl time.Duration)

	// Invalidate removes a seller's score, e.g. after a verification event.
	Invalidate(sellerID string)

	// Clear removes all entries.
	Clear()

	// Stats returns cache statistics.
	Stats() ScoreCacheStats
}

// ScoreCacheStats holds cache performance statistics.
type ScoreCacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// NoopScoreCache disables caching.
type NoopScoreCache struct{}

func (c *NoopScoreCache) Get(_ string) (Score, bool)              { return Score{}, false }
func (c *NoopScoreCache) Set(_ string, _ Score, _ time.Duration)  {}
func (c *NoopScoreCache) Invalidate(_ string)                     {}
func (c *NoopScoreCache) Clear()                                  {}
func (c *NoopScoreCache) Stats() ScoreCacheStats                  { return ScoreCacheStats{} }

type scoreEntry struct {
	score      Score
	expiration time.Time
	accessTime time.Time // for LRU eviction
	sequence   int64     // tiebreaker when access times are equal
}

func (e *scoreEntry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// LRUScoreCache implements ScoreCache with an in-memory LRU map and TTL.
type LRUScoreCache struct {
	entries    map[string]*scoreEntry
	maxEntries int
	mu         sync.Mutex
	hits       int64
	misses     int64
	evictions  int64
	sequence   int64
}

// NewLRUScoreCache creates a score cache holding at most maxEntries scores.
func NewLRUScoreCache(maxEntries int) *LRUScoreCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &LRUScoreCache{
		entries:    make(map[string]*scoreEntry, maxEntries),
		maxEntries: maxEntries,
	}
}

func (c *LRUScoreCache) Get(sellerID string) (Score, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[sellerID]
	if !exists || entry.isExpired() {
		c.misses++
		return Score{}, false
	}

	entry.accessTime = time.Now()
	c.hits++
	return entry.score, true
}

func (c *LRUScoreCache) Set(sellerID string, score Score, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	_, exists := c.entries[sellerID]

	if len(c.entries) >= c.maxEntries && !exists {
		// Evict least recently used (oldest accessTime, then oldest sequence)
		var oldestKey string
		var oldestTime time.Time
		var oldestSeq int64
		first := true
		for key, entry := range c.entries {
			if first || entry.accessTime.Before(oldestTime) ||
				(entry.accessTime.Equal(oldestTime) && entry.sequence < oldestSeq) {
				oldestKey = key
				oldestTime = entry.accessTime
				oldestSeq = entry.sequence
				first = false
			}
		}
		if oldestKey != "" {
			delete(c.entries, oldestKey)
			c.evictions++
		}
	}

	seq := c.sequence
	c.sequence++
	c.entries[sellerID] = &scoreEntry{
		score:      score,
		expiration: now.Add(ttl),
		accessTime: now,
		sequence:   seq,
	}
}

func (c *LRUScoreCache) Invalidate(sellerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sellerID)
}

func (c *LRUScoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*scoreEntry, c.maxEntries)
}

func (c *LRUScoreCache) Stats() ScoreCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ScoreCacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}
