package eventstore

import "context"

// RecordIterator is a lazy iterator over event records. Iteration is
// finite and restartable: a fresh iterator from ReadFrom replays the
// same sequence.
type RecordIterator struct {
	nextFunc func(ctx context.Context) (*EventRecord, error)
	current  *EventRecord
	err      error
}

// NewRecordIterator creates an iterator from a function producing the
// next record. The function returns (nil, nil) when the sequence is
// exhausted, or (nil, err) on error.
func NewRecordIterator(nextFunc func(ctx context.Context) (*EventRecord, error)) *RecordIterator {
	return &RecordIterator{nextFunc: nextFunc}
}

// Next advances the iterator. Returns false when done or on error.
func (it *RecordIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}

	it.current, it.err = it.nextFunc(ctx)
	return it.current != nil && it.err == nil
}

// Value returns the current record.
func (it *RecordIterator) Value() *EventRecord {
	return it.current
}

// Err returns the last error encountered during iteration.
func (it *RecordIterator) Err() error {
	return it.err
}

// All consumes the iterator and returns the remaining records.
func (it *RecordIterator) All(ctx context.Context) ([]EventRecord, error) {
	var records []EventRecord
	for it.Next(ctx) {
		records = append(records, *it.Value())
	}
	return records, it.Err()
}
