package eventstore

import (
	"context"
)

// EventLog is durable, ordered, append-only storage of event records
// with per-aggregate version enforcement.
type EventLog interface {
	// Append validates and persists a candidate record atomically:
	// either the record is durably stored and visible to subsequent
	// reads, or nothing is stored. Returns the persisted record with
	// store-assigned sequence, event ID and timestamp. Fails with
	// *VersionConflictError when the submitted version is not the next
	// version, and *ValidationError for malformed drafts.
	Append(ctx context.Context, draft RecordDraft) (EventRecord, error)

	// ReadFrom returns all records for the aggregate with version
	// greater than afterVersion, ordered by version ascending. An
	// empty sequence is a valid result.
	ReadFrom(ctx context.Context, aggregateType, aggregateID string, afterVersion int) *RecordIterator

	// CurrentVersion returns the highest persisted version for the
	// aggregate, 0 when no events exist.
	CurrentVersion(ctx context.Context, aggregateType, aggregateID string) (int, error)
}
