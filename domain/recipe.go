package domain

import (
	"github.com/naamaleah/CookSmart/eventstore"
	"github.com/naamaleah/CookSmart/projection"
)

// RecipeState is the current recipe document plus its edit history
// depth. Removed is projector-interpreted tombstoning; the event log
// keeps every revision.
type RecipeState struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Area         string   `json:"area"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Revision     int      `json:"revision"`
	Removed      bool     `json:"removed"`
}

// RecipeProjector folds recipe lifecycle events. The recipe catalog
// grows with the product, so it registers under the forward-compatible
// policy and readers skip event types they predate.
type RecipeProjector struct{}

// NewState returns an empty recipe document.
func (RecipeProjector) NewState() interface{} {
	return &RecipeState{}
}

// Apply returns a new state value; the input state is never mutated.
func (RecipeProjector) Apply(state interface{}, record eventstore.EventRecord) (interface{}, error) {
	current := state.(*RecipeState)

	switch record.EventType {
	case RecipeAdded, RecipeUpdated:
		payload, err := DecodePayload(record.EventType, record.Payload)
		if err != nil {
			return nil, err
		}
		doc := payload.(RecipePayload)
		next := *current
		next.Name = doc.Name
		next.Category = doc.Category
		next.Area = doc.Area
		next.ThumbnailURL = doc.ThumbnailURL
		next.Ingredients = append([]string(nil), doc.Ingredients...)
		next.Instructions = doc.Instructions
		next.Revision = current.Revision + 1
		next.Removed = false
		return &next, nil

	case RecipeRemoved:
		next := *current
		next.Revision = current.Revision + 1
		next.Removed = true
		return &next, nil

	default:
		return nil, &projection.UnknownEventTypeError{
			AggregateType: record.AggregateType,
			EventType:     record.EventType,
			EventVersion:  record.EventVersion,
		}
	}
}
