package models

import (
	"time"
)

// Snapshot is the durable form of a cached projection. At most one row
// exists per (aggregate_type, aggregate_id); replacement only happens
// when the new as_of_version is strictly greater.
type Snapshot struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AggregateType string    `gorm:"uniqueIndex:idx_snapshot_aggregate" json:"aggregate_type"`
	AggregateID   string    `gorm:"uniqueIndex:idx_snapshot_aggregate" json:"aggregate_id"`
	AsOfVersion   int       `json:"as_of_version"`
	State         []byte    `json:"state"`
	CapturedAt    time.Time `json:"captured_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the default table name
func (Snapshot) TableName() string {
	return "snapshots"
}
