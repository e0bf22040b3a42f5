// Package cache implements the application cache port in process
// memory. Diff results are the main tenant; entries are small JSON
// blobs keyed by version pairs.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache is a thread-safe LRU cache with per-entry TTLs, bounded
// by entry count and total payload bytes.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List
	maxSize int
	maxMem  int64
	usedMem int64

	hits      int64
	misses    int64
	evictions int64

	logger *zap.Logger

	janitorOn   bool
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

type entry struct {
	key     string
	value   []byte
	size    int64
	expiry  time.Time
	element *list.Element
}

// NewMemoryCache creates a cache bounded to maxSize entries and maxMem
// payload bytes.
func NewMemoryCache(maxSize int, maxMem int64, logger *zap.Logger) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryCache{
		entries:     make(map[string]*entry),
		order:       list.New(),
		maxSize:     maxSize,
		maxMem:      maxMem,
		logger:      logger,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Get returns the cached value for key. Expired entries count as
// misses and are dropped on sight.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		c.remove(e)
		c.misses++
		return nil, false, nil
	}

	c.order.MoveToFront(e.element)
	c.hits++

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Set stores value under key for ttl. A non-positive ttl stores the
// entry without expiry. Values larger than the memory bound are
// skipped, not an error.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	size := int64(len(key) + len(value))
	if size > c.maxMem {
		c.logger.Warn("Cache value exceeds memory bound, not cached",
			zap.String("key", key),
			zap.Int64("size", size),
		)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.remove(old)
	}

	for (c.usedMem+size > c.maxMem || len(c.entries) >= c.maxSize) && c.order.Len() > 0 {
		oldest := c.order.Back()
		c.remove(oldest.Value.(*entry))
		c.evictions++
	}

	e := &entry{
		key:   key,
		value: append([]byte(nil), value...),
		size:  size,
	}
	if ttl > 0 {
		e.expiry = time.Now().Add(ttl)
	}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
	c.usedMem += size
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.order.Init()
	c.usedMem = 0
	c.logger.Info("Cache cleared", zap.Int("entries", n))
	return nil
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
	UsedBytes int64
	HitRate   float64
}

// Stats returns hit and eviction counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	rate := 0.0
	if total := c.hits + c.misses; total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
		UsedBytes: c.usedMem,
		HitRate:   rate,
	}
}

// StartJanitor begins periodic expiry sweeps. Gets already drop
// expired entries lazily; the janitor reclaims entries nobody asks
// for again. Calling it twice is a no-op.
func (c *MemoryCache) StartJanitor(interval time.Duration) {
	c.mu.Lock()
	if c.janitorOn {
		c.mu.Unlock()
		return
	}
	c.janitorOn = true
	c.mu.Unlock()

	go c.janitorLoop(interval)
}

// StopJanitor stops the sweep loop and waits for it to exit. Safe to
// call without a prior StartJanitor.
func (c *MemoryCache) StopJanitor() {
	c.mu.Lock()
	if !c.janitorOn {
		c.mu.Unlock()
		return
	}
	c.janitorOn = false
	c.mu.Unlock()

	close(c.stopChan)
	<-c.stoppedChan
}

func (c *MemoryCache) janitorLoop(interval time.Duration) {
	defer close(c.stoppedChan)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.dropExpired()
		}
	}
}

func (c *MemoryCache) dropExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var stale []*entry
	for _, e := range c.entries {
		if e.expired(now) {
			stale = append(stale, e)
		}
	}
	for _, e := range stale {
		c.remove(e)
	}
	if len(stale) > 0 {
		c.logger.Debug("Expired cache entries dropped", zap.Int("count", len(stale)))
	}
}

// remove must run with the mutex held.
func (c *MemoryCache) remove(e *entry) {
	if e.element != nil {
		c.order.Remove(e.element)
	}
	delete(c.entries, e.key)
	c.usedMem -= e.size
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiry.IsZero() && now.After(e.expiry)
}
