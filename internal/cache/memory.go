package cache

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is an in-memory cache with a bounded entry count and TTL
// eviction. Bounding the cache is a deliberate deviation from the original
// behavior, which never evicted; an unbounded response cache is a latent
// resource leak. A min-heap keyed by expiry keeps eviction cheap.
type MemoryCache struct {
	mu sync.RWMutex

	data map[string]*memoryEntry
	ttls map[string]int64 // key -> expiry (unix nano), mirrors heap entries

	expiryHeap expiryHeap

	maxEntries    int
	defaultTTL    time.Duration
	maxItemSize   int
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

type memoryEntry struct {
	value  []byte
	expiry int64
}

type expiryEntry struct {
	key    string
	expiry int64
	index  int
}

type expiryHeap []*expiryEntry

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].expiry < h[j].expiry }
func (h expiryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap) Push(x any) {
	entry, ok := x.(*expiryEntry)
	if !ok {
		return
	}
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}

// MemoryConfig holds configuration for MemoryCache.
type MemoryConfig struct {
	MaxEntries      int           // default 2048
	DefaultTTL      time.Duration // default 1 hour
	MaxItemSize     int           // default 1MB
	CleanupInterval time.Duration // default 1 minute
}

// NewMemoryCache creates a bounded in-memory cache and starts its
// background cleanup loop.
func NewMemoryCache(cfg MemoryConfig) *MemoryCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 2048
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.MaxItemSize <= 0 {
		cfg.MaxItemSize = 1 << 20
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	c := &MemoryCache{
		data:        make(map[string]*memoryEntry),
		ttls:        make(map[string]int64),
		expiryHeap:  make(expiryHeap, 0),
		maxEntries:  cfg.MaxEntries,
		defaultTTL:  cfg.DefaultTTL,
		maxItemSize: cfg.MaxItemSize,
		stopCleanup: make(chan struct{}),
	}
	heap.Init(&c.expiryHeap)

	c.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
	go c.cleanupLoop()

	return c
}

func (c *MemoryCache) cleanupLoop() {
	for {
		select {
		case <-c.cleanupTicker.C:
			c.evictExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *MemoryCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for c.expiryHeap.Len() > 0 {
		entry := c.expiryHeap[0]

		// Skip heap entries that were superseded by a later Set.
		if stored, ok := c.ttls[entry.key]; !ok || stored != entry.expiry {
			heap.Pop(&c.expiryHeap)
			continue
		}
		if entry.expiry <= now {
			heap.Pop(&c.expiryHeap)
			delete(c.data, entry.key)
			delete(c.ttls, entry.key)
		} else {
			break
		}
	}
}

// evictIfNeeded makes room when the cache is at capacity. Caller holds mu.
func (c *MemoryCache) evictIfNeeded() {
	for c.expiryHeap.Len() > 0 && len(c.data) >= c.maxEntries {
		entry := c.expiryHeap[0]

		if stored, ok := c.ttls[entry.key]; !ok || stored != entry.expiry {
			heap.Pop(&c.expiryHeap)
			continue
		}
		// Evict the soonest-to-expire entry, expired or not.
		heap.Pop(&c.expiryHeap)
		delete(c.data, entry.key)
		delete(c.ttls, entry.key)
	}
}

// Get retrieves a value. A read past expiry is a miss and deletes lazily.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, nil
	}

	if entry.expiry > 0 && entry.expiry <= time.Now().UnixNano() {
		c.misses.Add(1)
		c.mu.Lock()
		// A Set may have replaced the entry between the read and write
		// locks; only delete the generation this read actually saw.
		if cur, ok := c.data[key]; ok && cur.expiry == entry.expiry {
			delete(c.data, key)
			delete(c.ttls, key)
		}
		c.mu.Unlock()
		return nil, nil
	}

	c.hits.Add(1)
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value, replacing any previous entry wholesale.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if len(value) > c.maxItemSize {
		return nil // oversized items are silently skipped
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expiry := time.Now().Add(ttl).UnixNano()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.data) >= c.maxEntries {
		c.evictIfNeeded()
	}

	c.data[key] = &memoryEntry{value: valueCopy, expiry: expiry}
	c.ttls[key] = expiry
	heap.Push(&c.expiryHeap, &expiryEntry{key: key, expiry: expiry})

	c.sets.Add(1)
	return nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	delete(c.ttls, key)
	return nil
}

// Stats returns cache counters.
func (c *MemoryCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		HitRate: hitRate,
	}
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.cleanupTicker.Stop()
	close(c.stopCleanup)
	return nil
}
