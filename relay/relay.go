package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/naamaleah/CookSmart/eventstore"
	"github.com/naamaleah/CookSmart/utils"
)

// Source hands out recorded events that have not been relayed yet.
// The durable event log implements it.
type Source interface {
	UnprocessedEvents(ctx context.Context, limit int) ([]eventstore.EventRecord, error)
	MarkProcessed(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, reason string) error
}

// Publisher delivers one serialized event envelope downstream.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Envelope is the wire form of a relayed event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	UserID        *string         `json:"user_id,omitempty"`
}

// Relay forwards recorded events to downstream consumers. It reads
// unprocessed events in occurred_at order, publishes them and marks
// them processed; publish failures are recorded per event and retried
// on the next pass.
type Relay struct {
	source    Source
	publisher Publisher
	batchSize int
	interval  time.Duration
}

// New creates a relay.
func New(source Source, publisher Publisher, batchSize int, interval time.Duration) *Relay {
	return &Relay{
		source:    source,
		publisher: publisher,
		batchSize: batchSize,
		interval:  interval,
	}
}

// Run processes batches until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				log.Error().Err(err).Msg("Relay batch failed")
			}
		}
	}
}

// ProcessBatch publishes one batch of unprocessed events.
func (r *Relay) ProcessBatch(ctx context.Context) error {
	events, err := r.source.UnprocessedEvents(ctx, r.batchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := r.relayOne(ctx, event); err != nil {
			log.Error().Err(err).
				Str("eventID", event.EventID).
				Str("eventType", event.EventType).
				Msg("Failed to relay event")
		}
	}

	return nil
}

func (r *Relay) relayOne(ctx context.Context, event eventstore.EventRecord) error {
	// The event id is the downstream dedup key; a malformed one would
	// poison the batch on every pass, so park it instead.
	if !utils.IsValidUUID(event.EventID) {
		return r.source.MarkFailed(ctx, event.EventID, "malformed event id")
	}

	body, err := json.Marshal(Envelope{
		EventID:       event.EventID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		EventVersion:  event.EventVersion,
		Payload:       event.Payload,
		OccurredAt:    event.OccurredAt,
		UserID:        event.UserID,
	})
	if err != nil {
		return err
	}

	if err := r.publisher.Publish(ctx, body); err != nil {
		if markErr := r.source.MarkFailed(ctx, event.EventID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Str("eventID", event.EventID).Msg("Failed to record relay error")
		}
		return err
	}

	return r.source.MarkProcessed(ctx, event.EventID)
}
