package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/naamaleah/CookSmart/eventstore"
	"github.com/naamaleah/CookSmart/projection"
	"github.com/naamaleah/CookSmart/snapshot"
)

// Store is the facade collaborators use. It composes the event log,
// the projector registry and the snapshot cache into append and load;
// no other subsystem writes to the events table directly.
type Store struct {
	log      eventstore.EventLog
	cache    snapshot.Cache
	registry *projection.Registry

	// snapshotThreshold is the replayed-event count past which Load
	// writes a fresh snapshot. Zero disables opportunistic snapshots.
	snapshotThreshold int
}

// New creates a store facade.
func New(eventLog eventstore.EventLog, cache snapshot.Cache, registry *projection.Registry, snapshotThreshold int) *Store {
	return &Store{
		log:               eventLog,
		cache:             cache,
		registry:          registry,
		snapshotThreshold: snapshotThreshold,
	}
}

// Append records one state transition for an aggregate. expectedVersion
// is the version the caller believes is current, typically from a prior
// Load; on a conflict the caller must reload and re-derive its intent
// from fresh state rather than resubmit the same draft.
func (s *Store) Append(ctx context.Context, aggregateType, aggregateID, eventType string, payload interface{}, expectedVersion int, userID *string) (eventstore.EventRecord, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return eventstore.EventRecord{}, &eventstore.ValidationError{Field: "Payload", Reason: err.Error()}
	}

	return s.log.Append(ctx, eventstore.RecordDraft{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		EventVersion:  expectedVersion + 1,
		Payload:       raw,
		UserID:        userID,
	})
}

// Load reconstructs current aggregate state from the best available
// snapshot plus the events recorded after it, and returns the state
// together with the version it reflects. A never-written aggregate
// yields the projector's zero state at version 0.
func (s *Store) Load(ctx context.Context, aggregateType, aggregateID string) (interface{}, int, error) {
	projector, policy, err := s.registry.Get(aggregateType)
	if err != nil {
		return nil, 0, err
	}

	base := projector.NewState()
	baseVersion := 0

	snap, err := s.cache.Get(ctx, aggregateType, aggregateID)
	if err != nil {
		// A failed snapshot read is a cache miss, not a load failure.
		log.Warn().Err(err).
			Str("aggregateType", aggregateType).
			Str("aggregateID", aggregateID).
			Msg("Snapshot read failed, replaying from the beginning")
	} else if snap != nil {
		if err := json.Unmarshal(snap.State, base); err != nil {
			// An unreadable snapshot body is a cache miss too; the
			// log stays authoritative.
			log.Warn().Err(err).
				Str("aggregateType", aggregateType).
				Str("aggregateID", aggregateID).
				Int("asOfVersion", snap.AsOfVersion).
				Msg("Snapshot state unreadable, replaying from the beginning")
			base = projector.NewState()
		} else {
			baseVersion = snap.AsOfVersion
		}
	}

	records := s.log.ReadFrom(ctx, aggregateType, aggregateID, baseVersion)
	state, lastVersion, replayed, err := projection.Replay(ctx, projector, base, records, policy)
	if err != nil {
		return nil, 0, err
	}

	version := baseVersion
	if lastVersion > 0 {
		version = lastVersion
	}

	if s.snapshotThreshold > 0 && replayed >= s.snapshotThreshold {
		s.capture(ctx, aggregateType, aggregateID, state, version)
	}

	return state, version, nil
}

// LoadSnapshot exposes the raw cached snapshot, for maintenance
// tooling. (nil, nil) when no snapshot exists.
func (s *Store) LoadSnapshot(ctx context.Context, aggregateType, aggregateID string) (*snapshot.Snapshot, error) {
	return s.cache.Get(ctx, aggregateType, aggregateID)
}

// CurrentVersion returns the aggregate's latest persisted version.
func (s *Store) CurrentVersion(ctx context.Context, aggregateType, aggregateID string) (int, error) {
	return s.log.CurrentVersion(ctx, aggregateType, aggregateID)
}

// capture writes an opportunistic snapshot. Failures cost replay time
// on the next load, nothing else.
func (s *Store) capture(ctx context.Context, aggregateType, aggregateID string, state interface{}, version int) {
	data, err := json.Marshal(state)
	if err != nil {
		log.Warn().Err(err).
			Str("aggregateType", aggregateType).
			Str("aggregateID", aggregateID).
			Msg("Failed to marshal state for snapshot")
		return
	}

	err = s.cache.Put(ctx, snapshot.Snapshot{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		AsOfVersion:   version,
		State:         data,
		CapturedAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).
			Str("aggregateType", aggregateType).
			Str("aggregateID", aggregateID).
			Msg("Failed to store snapshot")
	}
}

func encodePayload(payload interface{}) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(p)
	}
}
