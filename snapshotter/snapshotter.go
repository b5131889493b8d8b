package snapshotter

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/naamaleah/CookSmart/store"
)

// aggregateLag is one aggregate whose event head has moved past its
// snapshot by at least the threshold.
type aggregateLag struct {
	AggregateType string
	AggregateID   string
	Head          int
	Snapped       int
}

// Snapshotter is the external maintenance process that keeps snapshots
// close to the event head so loads stay cheap. Everything it does is
// advisory; a skipped or failed pass only means longer replays.
type Snapshotter struct {
	db          *gorm.DB
	store       *store.Store
	threshold   int
	concurrency int
}

// New creates a snapshotter.
func New(db *gorm.DB, st *store.Store, threshold, concurrency int) *Snapshotter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Snapshotter{db: db, store: st, threshold: threshold, concurrency: concurrency}
}

// Run performs one maintenance pass: find lagging aggregates, reload
// each through the facade so it captures a fresh snapshot.
func (s *Snapshotter) Run(ctx context.Context) error {
	// A non-positive threshold disables snapshots; reloading aggregates
	// would replay everything without ever capturing.
	if s.threshold <= 0 {
		return nil
	}

	lagging, err := s.findLagging(ctx)
	if err != nil {
		return err
	}
	if len(lagging) == 0 {
		return nil
	}

	log.Info().Int("aggregates", len(lagging)).Msg("Refreshing snapshots")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, lag := range lagging {
		lag := lag
		g.Go(func() error {
			if _, _, err := s.store.Load(ctx, lag.AggregateType, lag.AggregateID); err != nil {
				// One bad aggregate should not stop the pass.
				log.Error().Err(err).
					Str("aggregateType", lag.AggregateType).
					Str("aggregateID", lag.AggregateID).
					Msg("Failed to refresh snapshot")
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Snapshotter) findLagging(ctx context.Context) ([]aggregateLag, error) {
	var lagging []aggregateLag
	err := s.db.WithContext(ctx).Raw(`
		SELECT e.aggregate_type, e.aggregate_id,
		       MAX(e.event_version) AS head,
		       COALESCE(s.as_of_version, 0) AS snapped
		FROM events e
		LEFT JOIN snapshots s
		  ON s.aggregate_type = e.aggregate_type
		 AND s.aggregate_id = e.aggregate_id
		GROUP BY e.aggregate_type, e.aggregate_id, s.as_of_version
		HAVING MAX(e.event_version) - COALESCE(s.as_of_version, 0) >= ?
	`, s.threshold).Scan(&lagging).Error
	if err != nil {
		return nil, err
	}
	return lagging, nil
}
