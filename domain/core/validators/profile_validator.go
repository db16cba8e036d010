package validators

import (
	"strings"

	"sentinel/domain/core/entities"
	"sentinel/pkg/errors"
	"sentinel/pkg/utils"
)

// MissingFieldsMessage is shown to the user when setup is incomplete
const MissingFieldsMessage = "Please fill in all required fields (Name, Phone, and at least one emergency contact)."

// ProfileValidator validates the rules a profile must satisfy before arming
type ProfileValidator struct {
	maxContacts int
}

// NewProfileValidator creates a new profile validator with default rules
func NewProfileValidator() *ProfileValidator {
	return &ProfileValidator{maxContacts: 10}
}

// ValidateForArming checks name, phone and that at least one contact can be
// reached. Every failure is a validation AppError carrying the user message.
func (v *ProfileValidator) ValidateForArming(p entities.UserProfile) error {
	problems := make([]string, 0, 3)

	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(p.Phone) == "" {
		problems = append(problems, "phone is required")
	}
	if len(p.ReachableContacts()) == 0 {
		problems = append(problems, "at least one emergency contact needs a phone number")
	}
	if len(p.EmergencyContacts) > v.maxContacts {
		problems = append(problems, "too many emergency contacts")
	}

	if len(problems) == 0 {
		// Field formats are only worth checking once the required parts exist
		if err := utils.ValidateStruct(p); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.NewValidationError(MissingFieldsMessage).
			WithCode(errors.CodeProfileIncomplete).
			WithDetails(map[string]interface{}{"problems": problems})
	}
	return nil
}
