package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naamaleah/CookSmart/eventstore"
)

// Mock source for testing
type MockSource struct {
	mock.Mock
}

func (m *MockSource) UnprocessedEvents(ctx context.Context, limit int) ([]eventstore.EventRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]eventstore.EventRecord), args.Error(1)
}

func (m *MockSource) MarkProcessed(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockSource) MarkFailed(ctx context.Context, eventID string, reason string) error {
	args := m.Called(ctx, eventID, reason)
	return args.Error(0)
}

// Mock publisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, body []byte) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

const (
	firstEventID  = "8a1f4c2e-0b3d-4e5f-9a6b-1c2d3e4f5a01"
	secondEventID = "8a1f4c2e-0b3d-4e5f-9a6b-1c2d3e4f5a02"
)

func relayRecord(eventID string, version int) eventstore.EventRecord {
	return eventstore.EventRecord{
		EventID:       eventID,
		AggregateType: "favorite",
		AggregateID:   "user-42",
		EventType:     "FAVORITE_ADDED",
		EventVersion:  version,
		Payload:       json.RawMessage(`{"recipe_id":7}`),
		OccurredAt:    time.Now().UTC(),
	}
}

func TestProcessBatchPublishesAndMarksProcessed(t *testing.T) {
	source := new(MockSource)
	publisher := new(MockPublisher)

	record := relayRecord(firstEventID, 1)
	source.On("UnprocessedEvents", mock.Anything, 10).Return([]eventstore.EventRecord{record}, nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	source.On("MarkProcessed", mock.Anything, firstEventID).Return(nil)

	r := New(source, publisher, 10, time.Second)
	require.NoError(t, r.ProcessBatch(context.Background()))

	source.AssertExpectations(t)
	publisher.AssertExpectations(t)

	// Envelope carries the record's identity and payload
	body := publisher.Calls[0].Arguments.Get(1).([]byte)
	var envelope Envelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.Equal(t, firstEventID, envelope.EventID)
	require.Equal(t, "FAVORITE_ADDED", envelope.EventType)
	require.Equal(t, 1, envelope.EventVersion)
}

func TestProcessBatchRecordsPublishFailure(t *testing.T) {
	source := new(MockSource)
	publisher := new(MockPublisher)

	record := relayRecord(firstEventID, 1)
	source.On("UnprocessedEvents", mock.Anything, 10).Return([]eventstore.EventRecord{record}, nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("queue unreachable"))
	source.On("MarkFailed", mock.Anything, firstEventID, "queue unreachable").Return(nil)

	r := New(source, publisher, 10, time.Second)
	require.NoError(t, r.ProcessBatch(context.Background()))

	source.AssertExpectations(t)
	source.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestProcessBatchContinuesAfterOneFailure(t *testing.T) {
	source := new(MockSource)
	publisher := new(MockPublisher)

	first := relayRecord(firstEventID, 1)
	second := relayRecord(secondEventID, 2)
	source.On("UnprocessedEvents", mock.Anything, 10).Return([]eventstore.EventRecord{first, second}, nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("boom")).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	source.On("MarkFailed", mock.Anything, firstEventID, "boom").Return(nil)
	source.On("MarkProcessed", mock.Anything, secondEventID).Return(nil)

	r := New(source, publisher, 10, time.Second)
	require.NoError(t, r.ProcessBatch(context.Background()))

	source.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestProcessBatchEmptyBacklog(t *testing.T) {
	source := new(MockSource)
	publisher := new(MockPublisher)

	source.On("UnprocessedEvents", mock.Anything, 10).Return([]eventstore.EventRecord{}, nil)

	r := New(source, publisher, 10, time.Second)
	require.NoError(t, r.ProcessBatch(context.Background()))

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestProcessBatchParksMalformedEventID(t *testing.T) {
	source := new(MockSource)
	publisher := new(MockPublisher)

	record := relayRecord("not-a-uuid", 1)
	source.On("UnprocessedEvents", mock.Anything, 10).Return([]eventstore.EventRecord{record}, nil)
	source.On("MarkFailed", mock.Anything, "not-a-uuid", "malformed event id").Return(nil)

	r := New(source, publisher, 10, time.Second)
	require.NoError(t, r.ProcessBatch(context.Background()))

	source.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}
