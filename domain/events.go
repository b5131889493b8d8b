package domain

import (
	"encoding/json"
	"fmt"
)

// Aggregate types recorded by the platform's command services.
const (
	AggregateFavorite = "favorite"
	AggregateRecipe   = "recipe"
	AggregateUser     = "user"
)

// Event types, one tag per transition. Payloads form a tagged union
// keyed by these tags, with explicit (de)serialization per tag.
const (
	FavoriteAdded   = "FAVORITE_ADDED"
	FavoriteRemoved = "FAVORITE_REMOVED"
	RecipeAdded     = "RECIPE_ADDED"
	RecipeUpdated   = "RECIPE_UPDATED"
	RecipeRemoved   = "RECIPE_REMOVED"
	UserRegistered  = "USER_REGISTERED"
)

// FavoriteAddedPayload marks a recipe as favorited by a user.
type FavoriteAddedPayload struct {
	UserID   int `json:"user_id"`
	RecipeID int `json:"recipe_id"`
}

// FavoriteRemovedPayload removes a recipe from a user's favorites.
type FavoriteRemovedPayload struct {
	UserID   int `json:"user_id"`
	RecipeID int `json:"recipe_id"`
}

// RecipePayload carries the full recipe document. RECIPE_ADDED and
// RECIPE_UPDATED both use it; updates replace the document.
type RecipePayload struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Area         string   `json:"area"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
}

// RecipeRemovedPayload tombstones a recipe. The projector interprets
// the removal; the log itself has no deleted state.
type RecipeRemovedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// UserRegisteredPayload records a new account.
type UserRegisteredPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// DecodePayload deserializes a stored payload by its event type tag.
func DecodePayload(eventType string, raw json.RawMessage) (interface{}, error) {
	switch eventType {
	case FavoriteAdded:
		var p FavoriteAddedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", eventType, err)
		}
		return p, nil

	case FavoriteRemoved:
		var p FavoriteRemovedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", eventType, err)
		}
		return p, nil

	case RecipeAdded, RecipeUpdated:
		var p RecipePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", eventType, err)
		}
		return p, nil

	case RecipeRemoved:
		var p RecipeRemovedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", eventType, err)
		}
		return p, nil

	case UserRegistered:
		var p UserRegisteredPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", eventType, err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}
