package eventstore

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/naamaleah/CookSmart/utils"
)

// validateDraft checks a candidate record before it reaches storage.
func validateDraft(draft RecordDraft) error {
	if err := utils.ValidateStruct(draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return &ValidationError{
				Field:  fieldErrs[0].Field(),
				Reason: reasonForTag(fieldErrs[0].Tag()),
			}
		}
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

func reasonForTag(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "gt":
		return "must be positive"
	default:
		return "failed validation " + tag
	}
}
