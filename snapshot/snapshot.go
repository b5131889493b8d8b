package snapshot

import (
	"context"
	"sync"
	"time"
)

// Snapshot is a cached projection result at a known version. It is
// valid evidence of state only up to and including AsOfVersion; a stale
// snapshot is never wrong, only incomplete.
type Snapshot struct {
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	AsOfVersion   int       `json:"as_of_version"`
	State         []byte    `json:"state"`
	CapturedAt    time.Time `json:"captured_at"`
}

// Cache remembers snapshots to bound replay cost. The cache is
// advisory: it may be empty, stale or evicted at any time without
// affecting correctness, only cost.
type Cache interface {
	// Get returns the cached snapshot, or (nil, nil) on a miss.
	Get(ctx context.Context, aggregateType, aggregateID string) (*Snapshot, error)

	// Put stores a snapshot. Any prior snapshot for the aggregate is
	// replaced only when the new AsOfVersion is strictly greater; the
	// cached version never regresses.
	Put(ctx context.Context, snap Snapshot) error
}

// MemoryCache is a per-process snapshot cache.
type MemoryCache struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{snapshots: make(map[string]Snapshot)}
}

func cacheKey(aggregateType, aggregateID string) string {
	return aggregateType + "\x00" + aggregateID
}

// Get returns the cached snapshot, or (nil, nil) on a miss.
func (c *MemoryCache) Get(ctx context.Context, aggregateType, aggregateID string) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.snapshots[cacheKey(aggregateType, aggregateID)]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// Put stores the snapshot unless a newer or equal version is cached.
func (c *MemoryCache) Put(ctx context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(snap.AggregateType, snap.AggregateID)
	if existing, ok := c.snapshots[key]; ok && existing.AsOfVersion >= snap.AsOfVersion {
		return nil
	}
	c.snapshots[key] = snap
	return nil
}
