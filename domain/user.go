package domain

import (
	"github.com/naamaleah/CookSmart/eventstore"
	"github.com/naamaleah/CookSmart/projection"
)

// UserState is the account profile derived from the user aggregate.
type UserState struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Registered bool   `json:"registered"`
}

// UserProjector folds USER_REGISTERED events.
type UserProjector struct{}

// NewState returns an empty profile.
func (UserProjector) NewState() interface{} {
	return &UserState{}
}

// Apply returns a new state value; the input state is never mutated.
func (UserProjector) Apply(state interface{}, record eventstore.EventRecord) (interface{}, error) {
	_ = state.(*UserState)

	switch record.EventType {
	case UserRegistered:
		payload, err := DecodePayload(record.EventType, record.Payload)
		if err != nil {
			return nil, err
		}
		account := payload.(UserRegisteredPayload)
		return &UserState{
			Username:   account.Username,
			Email:      account.Email,
			Phone:      account.Phone,
			Registered: true,
		}, nil

	default:
		return nil, &projection.UnknownEventTypeError{
			AggregateType: record.AggregateType,
			EventType:     record.EventType,
			EventVersion:  record.EventVersion,
		}
	}
}

// RegisterProjectors binds every platform aggregate to its projector
// and replay policy.
func RegisterProjectors(registry *projection.Registry) {
	registry.Register(AggregateFavorite, FavoritesProjector{}, projection.PolicyStrict)
	registry.Register(AggregateRecipe, RecipeProjector{}, projection.PolicySkipUnknown)
	registry.Register(AggregateUser, UserProjector{}, projection.PolicyStrict)
}
