package domain

import (
	"sort"

	"github.com/naamaleah/CookSmart/eventstore"
	"github.com/naamaleah/CookSmart/projection"
)

// FavoritesState is a user's current set of favorited recipes, derived
// entirely from the favorite aggregate's event history. RecipeIDs stays
// sorted so serialized state is stable across replays.
type FavoritesState struct {
	RecipeIDs []int `json:"recipe_ids"`
}

// FavoritesProjector folds FAVORITE_ADDED / FAVORITE_REMOVED events.
// The favorite catalog is closed, so it registers under the strict
// policy: an unknown type means a deployment mismatch.
type FavoritesProjector struct{}

// NewState returns an empty favorites set.
func (FavoritesProjector) NewState() interface{} {
	return &FavoritesState{}
}

// Apply returns a new state value; the input state is never mutated.
func (FavoritesProjector) Apply(state interface{}, record eventstore.EventRecord) (interface{}, error) {
	current := state.(*FavoritesState)

	switch record.EventType {
	case FavoriteAdded:
		payload, err := DecodePayload(record.EventType, record.Payload)
		if err != nil {
			return nil, err
		}
		return current.with(payload.(FavoriteAddedPayload).RecipeID), nil

	case FavoriteRemoved:
		payload, err := DecodePayload(record.EventType, record.Payload)
		if err != nil {
			return nil, err
		}
		return current.without(payload.(FavoriteRemovedPayload).RecipeID), nil

	default:
		return nil, &projection.UnknownEventTypeError{
			AggregateType: record.AggregateType,
			EventType:     record.EventType,
			EventVersion:  record.EventVersion,
		}
	}
}

func (s *FavoritesState) with(recipeID int) *FavoritesState {
	for _, id := range s.RecipeIDs {
		if id == recipeID {
			return s
		}
	}
	ids := make([]int, len(s.RecipeIDs), len(s.RecipeIDs)+1)
	copy(ids, s.RecipeIDs)
	ids = append(ids, recipeID)
	sort.Ints(ids)
	return &FavoritesState{RecipeIDs: ids}
}

func (s *FavoritesState) without(recipeID int) *FavoritesState {
	ids := make([]int, 0, len(s.RecipeIDs))
	for _, id := range s.RecipeIDs {
		if id != recipeID {
			ids = append(ids, id)
		}
	}
	return &FavoritesState{RecipeIDs: ids}
}

// Contains reports whether the recipe is currently favorited.
func (s *FavoritesState) Contains(recipeID int) bool {
	for _, id := range s.RecipeIDs {
		if id == recipeID {
			return true
		}
	}
	return false
}
