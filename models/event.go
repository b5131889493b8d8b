package models

import (
	"time"
)

// Event is the persisted form of one event store record. The composite
// unique index on (aggregate_type, aggregate_id, event_version) is what
// keeps per-aggregate version sequences gapless under concurrent writers.
type Event struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       string    `gorm:"uniqueIndex" json:"event_id"`
	AggregateType string    `gorm:"uniqueIndex:idx_aggregate_version;index:idx_aggregate" json:"aggregate_type"`
	AggregateID   string    `gorm:"uniqueIndex:idx_aggregate_version;index:idx_aggregate" json:"aggregate_id"`
	EventType     string    `json:"event_type"`
	EventVersion  int       `gorm:"uniqueIndex:idx_aggregate_version" json:"event_version"`
	Payload       []byte    `json:"payload"`
	OccurredAt    time.Time `gorm:"index" json:"occurred_at"`
	UserID        *string   `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	Error         *string   `json:"error"`
	Processed     bool      `gorm:"index" json:"processed"`
}

// TableName overrides the default table name
func (Event) TableName() string {
	return "events"
}
