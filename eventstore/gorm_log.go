package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/naamaleah/CookSmart/models"
)

const defaultReadBatchSize = 200

// GormEventLog implements EventLog on a relational database through
// GORM. The version check and the insert run in one transaction, and
// the composite unique index backs the check up: two concurrent appends
// for the same version cannot both land.
type GormEventLog struct {
	db            *gorm.DB
	readBatchSize int
}

// NewGormEventLog creates a new database-backed event log.
func NewGormEventLog(db *gorm.DB) *GormEventLog {
	return &GormEventLog{db: db, readBatchSize: defaultReadBatchSize}
}

// Append validates the draft, checks the expected version and inserts
// the record atomically.
func (l *GormEventLog) Append(ctx context.Context, draft RecordDraft) (EventRecord, error) {
	if err := validateDraft(draft); err != nil {
		return EventRecord{}, err
	}

	var saved models.Event
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current := 0
		occurredAt := time.Now().UTC()

		var last models.Event
		err := tx.
			Where("aggregate_type = ? AND aggregate_id = ?", draft.AggregateType, draft.AggregateID).
			Order("event_version DESC").
			First(&last).Error
		if err == nil {
			current = last.EventVersion
			// occurred_at is non-decreasing within one aggregate even
			// when the clock steps backwards.
			if occurredAt.Before(last.OccurredAt) {
				occurredAt = last.OccurredAt
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if draft.EventVersion != current+1 {
			return &VersionConflictError{
				AggregateType:    draft.AggregateType,
				AggregateID:      draft.AggregateID,
				SubmittedVersion: draft.EventVersion,
				ExpectedVersion:  current + 1,
			}
		}

		saved = models.Event{
			EventID:       uuid.New().String(),
			AggregateType: draft.AggregateType,
			AggregateID:   draft.AggregateID,
			EventType:     draft.EventType,
			EventVersion:  draft.EventVersion,
			Payload:       draft.Payload,
			OccurredAt:    occurredAt,
			UserID:        draft.UserID,
		}
		return tx.Create(&saved).Error
	})
	if err != nil {
		var conflict *VersionConflictError
		if errors.As(err, &conflict) {
			return EventRecord{}, conflict
		}
		if isUniqueViolation(err) {
			// A concurrent writer got the same version in first.
			conflict = &VersionConflictError{
				AggregateType:    draft.AggregateType,
				AggregateID:      draft.AggregateID,
				SubmittedVersion: draft.EventVersion,
			}
			if current, cerr := l.CurrentVersion(ctx, draft.AggregateType, draft.AggregateID); cerr == nil {
				conflict.ExpectedVersion = current + 1
			}
			return EventRecord{}, conflict
		}
		return EventRecord{}, &StorageError{Op: "append", Err: err}
	}

	log.Info().
		Str("aggregateType", saved.AggregateType).
		Str("aggregateID", saved.AggregateID).
		Str("eventType", saved.EventType).
		Int("version", saved.EventVersion).
		Msg("Event appended")

	return recordFromModel(saved), nil
}

// ReadFrom returns a lazy iterator over the aggregate's records with
// version greater than afterVersion, fetched in batches.
func (l *GormEventLog) ReadFrom(ctx context.Context, aggregateType, aggregateID string, afterVersion int) *RecordIterator {
	cursor := afterVersion
	var batch []models.Event
	index := 0
	done := false

	return NewRecordIterator(func(ctx context.Context) (*EventRecord, error) {
		if index >= len(batch) {
			if done {
				return nil, nil
			}
			batch = nil
			index = 0
			err := l.db.WithContext(ctx).
				Where("aggregate_type = ? AND aggregate_id = ? AND event_version > ?", aggregateType, aggregateID, cursor).
				Order("event_version ASC").
				Limit(l.readBatchSize).
				Find(&batch).Error
			if err != nil {
				return nil, &StorageError{Op: "read", Err: err}
			}
			if len(batch) < l.readBatchSize {
				done = true
			}
			if len(batch) == 0 {
				return nil, nil
			}
		}

		record := recordFromModel(batch[index])
		index++
		cursor = record.EventVersion
		return &record, nil
	})
}

// CurrentVersion returns the highest persisted version, 0 when the
// aggregate has no events.
func (l *GormEventLog) CurrentVersion(ctx context.Context, aggregateType, aggregateID string) (int, error) {
	var version int
	err := l.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, aggregateID).
		Select("COALESCE(MAX(event_version), 0)").
		Scan(&version).Error
	if err != nil {
		return 0, &StorageError{Op: "current version", Err: err}
	}
	return version, nil
}

// UnprocessedEvents returns events not yet relayed downstream, in
// occurred_at order. This is the operational access path; replay never
// uses it.
func (l *GormEventLog) UnprocessedEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	var rows []models.Event
	err := l.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, &StorageError{Op: "unprocessed events", Err: err}
	}

	records := make([]EventRecord, len(rows))
	for i, row := range rows {
		records[i] = recordFromModel(row)
	}
	return records, nil
}

// MarkProcessed flags an event as relayed and clears any prior error.
func (l *GormEventLog) MarkProcessed(ctx context.Context, eventID string) error {
	err := l.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{"processed": true, "error": nil}).Error
	if err != nil {
		return &StorageError{Op: "mark processed", Err: err}
	}
	return nil
}

// MarkFailed records the last relay error for an event.
func (l *GormEventLog) MarkFailed(ctx context.Context, eventID string, reason string) error {
	err := l.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("event_id = ?", eventID).
		Update("error", &reason).Error
	if err != nil {
		return &StorageError{Op: "mark failed", Err: err}
	}
	return nil
}

func recordFromModel(m models.Event) EventRecord {
	return EventRecord{
		Sequence:      m.ID,
		EventID:       m.EventID,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		EventType:     m.EventType,
		EventVersion:  m.EventVersion,
		Payload:       m.Payload,
		OccurredAt:    m.OccurredAt,
		UserID:        m.UserID,
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
