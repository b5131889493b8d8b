package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/naamaleah/CookSmart/eventstore"
)

// Projector folds an ordered event sequence into aggregate state. Apply
// must be deterministic and must not mutate the passed-in state, since
// that state may be shared with a snapshot cache; it returns a fresh
// value instead.
type Projector interface {
	// NewState returns a pointer to the zero state, suitable for
	// unmarshaling a snapshot into.
	NewState() interface{}

	// Apply folds one record into the state and returns the new state.
	Apply(state interface{}, record eventstore.EventRecord) (interface{}, error)
}

// Policy controls how replay treats an event type the projector does
// not recognize.
type Policy int

const (
	// PolicyStrict fails replay on an unrecognized event type. Correct
	// when the catalog of event types is closed and versioned; an
	// unknown type then means a writer/reader deployment mismatch.
	PolicyStrict Policy = iota

	// PolicySkipUnknown skips unrecognized event types. For aggregate
	// types whose catalog may grow ahead of deployed readers.
	PolicySkipUnknown
)

// UnknownEventTypeError reports a stored event the projector cannot
// interpret. Fatal for the replay: silently skipping it outside an
// explicit forward-compatible policy would corrupt derived state.
type UnknownEventTypeError struct {
	AggregateType string
	EventType     string
	EventVersion  int
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q at version %d of aggregate type %q",
		e.EventType, e.EventVersion, e.AggregateType)
}

// Replay folds the iterator's records into base using the projector.
// Returns the final state, the version of the last record applied (0
// when none) and the number of records replayed.
func Replay(ctx context.Context, projector Projector, base interface{}, records *eventstore.RecordIterator, policy Policy) (interface{}, int, int, error) {
	state := base
	lastVersion := 0
	replayed := 0

	for records.Next(ctx) {
		record := records.Value()
		next, err := projector.Apply(state, *record)
		if err != nil {
			var unknown *UnknownEventTypeError
			if policy == PolicySkipUnknown && errors.As(err, &unknown) {
				lastVersion = record.EventVersion
				replayed++
				continue
			}
			return nil, 0, 0, err
		}
		state = next
		lastVersion = record.EventVersion
		replayed++
	}
	if err := records.Err(); err != nil {
		return nil, 0, 0, err
	}
	return state, lastVersion, replayed, nil
}
