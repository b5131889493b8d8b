package eventstore

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed draft. The caller fixes the draft
// before resubmitting; the log never retries these.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid event draft: %s", e.Reason)
	}
	return fmt.Sprintf("invalid event draft: field %q %s", e.Field, e.Reason)
}

// VersionConflictError reports an optimistic-concurrency violation: the
// submitted version is not the next version for the aggregate. Another
// writer won the race; the caller must reload and regenerate the draft.
type VersionConflictError struct {
	AggregateType    string
	AggregateID      string
	SubmittedVersion int
	ExpectedVersion  int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s/%s: submitted version %d, expected %d",
		e.AggregateType, e.AggregateID, e.SubmittedVersion, e.ExpectedVersion)
}

// StorageError wraps a durable-storage failure. No partial state was
// committed, so the whole operation may be retried after backoff.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("event store %s: storage unavailable: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsVersionConflict reports whether err is an optimistic-concurrency failure.
func IsVersionConflict(err error) bool {
	var conflict *VersionConflictError
	return errors.As(err, &conflict)
}

// IsValidation reports whether err is a draft validation failure.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}
