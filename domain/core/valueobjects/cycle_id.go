package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// CycleID identifies one arm-to-resolution cycle of the confirmation countdown.
// Value objects are immutable and have no identity beyond their value
type CycleID struct {
	value string
}

// NewCycleID creates a new random CycleID
func NewCycleID() CycleID {
	return CycleID{value: uuid.New().String()}
}

// NewCycleIDFromString creates a CycleID from an existing string
func NewCycleIDFromString(id string) (CycleID, error) {
	if id == "" {
		return CycleID{}, errors.New("cycle ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return CycleID{}, errors.New("cycle ID must be a valid UUID")
	}
	return CycleID{value: id}, nil
}

// String returns the string representation of the CycleID
func (id CycleID) String() string {
	return id.value
}

// Equals checks if two CycleIDs are equal
func (id CycleID) Equals(other CycleID) bool {
	return id.value == other.value
}

// IsZero checks if the CycleID is the zero value
func (id CycleID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id CycleID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *CycleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("CycleID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
