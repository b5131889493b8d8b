package snapshot

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/naamaleah/CookSmart/models"
)

// GormCache keeps snapshots in the snapshots table, at most one row per
// aggregate. Losing or truncating the table is always safe; replay
// rebuilds state from the event log.
type GormCache struct {
	db *gorm.DB
}

// NewGormCache creates a new database-backed snapshot store.
func NewGormCache(db *gorm.DB) *GormCache {
	return &GormCache{db: db}
}

// Get returns the stored snapshot, or (nil, nil) when none exists.
func (c *GormCache) Get(ctx context.Context, aggregateType, aggregateID string) (*Snapshot, error) {
	var row models.Snapshot
	err := c.db.WithContext(ctx).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, aggregateID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &Snapshot{
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		AsOfVersion:   row.AsOfVersion,
		State:         row.State,
		CapturedAt:    row.CapturedAt,
	}, nil
}

// Put upserts the snapshot row inside a transaction, only when the new
// version is strictly greater than the stored one.
func (c *GormCache) Put(ctx context.Context, snap Snapshot) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Snapshot
		err := tx.
			Where("aggregate_type = ? AND aggregate_id = ?", snap.AggregateType, snap.AggregateID).
			First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err == nil {
			if row.AsOfVersion >= snap.AsOfVersion {
				return nil
			}
			row.AsOfVersion = snap.AsOfVersion
			row.State = snap.State
			row.CapturedAt = snap.CapturedAt
			return tx.Save(&row).Error
		}

		row = models.Snapshot{
			AggregateType: snap.AggregateType,
			AggregateID:   snap.AggregateID,
			AsOfVersion:   snap.AsOfVersion,
			State:         snap.State,
			CapturedAt:    snap.CapturedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		log.Debug().
			Str("aggregateType", snap.AggregateType).
			Str("aggregateID", snap.AggregateID).
			Int("asOfVersion", snap.AsOfVersion).
			Msg("Snapshot stored")
		return nil
	})
}
