package entities

import "strings"

// Relation is how an emergency contact relates to the user
type Relation string

const (
	RelationFamily    Relation = "Family"
	RelationFriend    Relation = "Friend"
	RelationPolice    Relation = "Police"
	RelationVolunteer Relation = "Volunteer"
)

// TriggerModality is the deliberate gesture the user chose during setup
type TriggerModality string

const (
	TriggerTripleTap    TriggerModality = "triple-tap"
	TriggerPowerButton  TriggerModality = "power-button"
	TriggerVoiceCommand TriggerModality = "voice-command"
	TriggerShake        TriggerModality = "shake"
)

// Sensitivity selects how easily ambient audio raises an alert
type Sensitivity string

const (
	SensitivityHigh   Sensitivity = "high"
	SensitivityMedium Sensitivity = "medium"
	SensitivityLow    Sensitivity = "low"
)

// EmergencyContact is someone notified when an emergency is dispatched.
// Contacts have no identity beyond their position in the profile.
type EmergencyContact struct {
	Name     string   `json:"name" yaml:"name" validate:"max=100"`
	Phone    string   `json:"phone" yaml:"phone" validate:"omitempty,phone"`
	Relation Relation `json:"relation" yaml:"relation" validate:"omitempty,oneof=Family Friend Police Volunteer"`
}

// Reachable reports whether the contact can receive a notification
func (c EmergencyContact) Reachable() bool {
	return strings.TrimSpace(c.Phone) != ""
}

// DisplayName returns the name used in logs and alert messages
func (c EmergencyContact) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return c.Phone
}

// UserProfile is owned by the configuration layer and read-only to the engine.
type UserProfile struct {
	UserID            string             `json:"user_id,omitempty" yaml:"user_id"`
	Name              string             `json:"name" yaml:"name" validate:"required,max=100"`
	Phone             string             `json:"phone" yaml:"phone" validate:"required,phone"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts" yaml:"emergency_contacts" validate:"required,min=1,max=10,dive"`
	CustomTrigger     TriggerModality    `json:"custom_trigger" yaml:"custom_trigger" validate:"omitempty,oneof=triple-tap power-button voice-command shake"`
	AudioSensitivity  Sensitivity        `json:"audio_sensitivity" yaml:"audio_sensitivity" validate:"omitempty,oneof=high medium low"`
}

// DefaultProfile mirrors the blank setup form: one empty family contact,
// triple-tap trigger and high audio sensitivity.
func DefaultProfile() UserProfile {
	return UserProfile{
		EmergencyContacts: []EmergencyContact{{Relation: RelationFamily}},
		CustomTrigger:     TriggerTripleTap,
		AudioSensitivity:  SensitivityHigh,
	}
}

// ReachableContacts returns the contacts with a phone, in profile order
func (p UserProfile) ReachableContacts() []EmergencyContact {
	out := make([]EmergencyContact, 0, len(p.EmergencyContacts))
	for _, c := range p.EmergencyContacts {
		if c.Reachable() {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy so callers cannot mutate shared contact slices
func (p UserProfile) Clone() UserProfile {
	contacts := make([]EmergencyContact, len(p.EmergencyContacts))
	copy(contacts, p.EmergencyContacts)
	p.EmergencyContacts = contacts
	return p
}

// Owner returns the identifier used to partition stored history
func (p UserProfile) Owner() string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.Phone
}
