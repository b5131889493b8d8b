package snapshot

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Layered combines a fast advisory tier (typically Redis or memory)
// with a durable tier (the snapshots table). Reads prefer the fast
// tier and refresh it from the durable one on a miss.
type Layered struct {
	fast    Cache
	durable Cache
}

// NewLayered creates a two-tier snapshot cache.
func NewLayered(fast, durable Cache) *Layered {
	return &Layered{fast: fast, durable: durable}
}

// Get tries the fast tier first. Fast-tier failures count as misses:
// a missing snapshot only costs a longer replay.
func (c *Layered) Get(ctx context.Context, aggregateType, aggregateID string) (*Snapshot, error) {
	snap, err := c.fast.Get(ctx, aggregateType, aggregateID)
	if err != nil {
		log.Warn().Err(err).Msg("Fast snapshot tier read failed, falling back")
	} else if snap != nil {
		return snap, nil
	}

	snap, err = c.durable.Get(ctx, aggregateType, aggregateID)
	if err != nil || snap == nil {
		return snap, err
	}

	if err := c.fast.Put(ctx, *snap); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh fast snapshot tier")
	}
	return snap, nil
}

// Put writes through to both tiers.
func (c *Layered) Put(ctx context.Context, snap Snapshot) error {
	if err := c.fast.Put(ctx, snap); err != nil {
		log.Warn().Err(err).Msg("Fast snapshot tier write failed")
	}
	return c.durable.Put(ctx, snap)
}
