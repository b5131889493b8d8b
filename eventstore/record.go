package eventstore

import (
	"encoding/json"
	"time"
)

// EventRecord is one immutable state transition for one aggregate
// instance. Records are created once by Append and never mutated or
// deleted; replay correctness depends on that.
type EventRecord struct {
	// Sequence is the store-assigned surrogate ordering key. It is
	// globally increasing and never chosen by the caller.
	Sequence      uint   `json:"sequence"`
	EventID       string `json:"event_id"`
	AggregateType string `json:"aggregate_type"`
	AggregateID   string `json:"aggregate_id"`
	EventType     string `json:"event_type"`
	EventVersion  int    `json:"event_version"`
	// Payload is opaque to the log; encoding and decoding belong to
	// the collaborator that owns the aggregate type.
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
	UserID     *string         `json:"user_id,omitempty"`
}

// RecordDraft is a candidate event submitted to Append. EventVersion
// must equal the aggregate's current version plus one; the caller is
// expected to have read the current version before building the draft.
type RecordDraft struct {
	AggregateType string `validate:"required"`
	// AggregateID may be empty for aggregate-less events. Uniqueness
	// then reduces to (aggregate_type, event_version), so callers
	// should avoid relying on it.
	AggregateID  string
	EventType    string `validate:"required"`
	EventVersion int    `validate:"gt=0"`
	Payload      json.RawMessage
	UserID       *string
}
