package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog implements EventLog in process memory. It keeps the same
// conflict semantics as the database-backed log and is used for tests
// and embedded setups.
type MemoryLog struct {
	mu       sync.RWMutex
	sequence uint
	events   map[string][]EventRecord
}

// NewMemoryLog creates an empty in-memory event log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{events: make(map[string][]EventRecord)}
}

func aggregateKey(aggregateType, aggregateID string) string {
	return aggregateType + "\x00" + aggregateID
}

// Append validates the draft and stores the record under the mutex, so
// two racing appends with the same version see exactly one winner.
func (l *MemoryLog) Append(ctx context.Context, draft RecordDraft) (EventRecord, error) {
	if err := validateDraft(draft); err != nil {
		return EventRecord{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := aggregateKey(draft.AggregateType, draft.AggregateID)
	stream := l.events[key]
	current := len(stream)

	if draft.EventVersion != current+1 {
		return EventRecord{}, &VersionConflictError{
			AggregateType:    draft.AggregateType,
			AggregateID:      draft.AggregateID,
			SubmittedVersion: draft.EventVersion,
			ExpectedVersion:  current + 1,
		}
	}

	occurredAt := time.Now().UTC()
	if current > 0 && occurredAt.Before(stream[current-1].OccurredAt) {
		occurredAt = stream[current-1].OccurredAt
	}

	l.sequence++
	record := EventRecord{
		Sequence:      l.sequence,
		EventID:       uuid.New().String(),
		AggregateType: draft.AggregateType,
		AggregateID:   draft.AggregateID,
		EventType:     draft.EventType,
		EventVersion:  draft.EventVersion,
		Payload:       draft.Payload,
		OccurredAt:    occurredAt,
		UserID:        draft.UserID,
	}
	l.events[key] = append(stream, record)
	return record, nil
}

// ReadFrom iterates over a copy of the stream taken at call time.
func (l *MemoryLog) ReadFrom(ctx context.Context, aggregateType, aggregateID string, afterVersion int) *RecordIterator {
	l.mu.RLock()
	stream := l.events[aggregateKey(aggregateType, aggregateID)]
	records := make([]EventRecord, 0, len(stream))
	for _, record := range stream {
		if record.EventVersion > afterVersion {
			records = append(records, record)
		}
	}
	l.mu.RUnlock()

	index := 0
	return NewRecordIterator(func(ctx context.Context) (*EventRecord, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if index >= len(records) {
			return nil, nil
		}
		record := records[index]
		index++
		return &record, nil
	})
}

// CurrentVersion returns the highest stored version, 0 when empty.
func (l *MemoryLog) CurrentVersion(ctx context.Context, aggregateType, aggregateID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events[aggregateKey(aggregateType, aggregateID)]), nil
}
