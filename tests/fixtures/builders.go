package fixtures

import (
	"sentinel/domain/core/entities"
)

// ProfileBuilder helps create test profiles with valid default values
type ProfileBuilder struct {
	userID      string
	name        string
	phone       string
	contacts    []entities.EmergencyContact
	trigger     entities.TriggerModality
	sensitivity entities.Sensitivity
}

func NewProfileBuilder() *ProfileBuilder {
	return &ProfileBuilder{
		userID: "test-user-123",
		name:   "Asha Rao",
		phone:  "+91 98200 00001",
		contacts: []entities.EmergencyContact{
			{Name: "Meera Rao", Phone: "+91 98200 00002", Relation: entities.RelationFamily},
		},
		trigger:     entities.TriggerTripleTap,
		sensitivity: entities.SensitivityMedium,
	}
}

func (b *ProfileBuilder) WithUserID(userID string) *ProfileBuilder {
	b.userID = userID
	return b
}

func (b *ProfileBuilder) WithName(name string) *ProfileBuilder {
	b.name = name
	return b
}

func (b *ProfileBuilder) WithPhone(phone string) *ProfileBuilder {
	b.phone = phone
	return b
}

func (b *ProfileBuilder) WithContacts(contacts ...entities.EmergencyContact) *ProfileBuilder {
	b.contacts = contacts
	return b
}

func (b *ProfileBuilder) AddContact(name, phone string, relation entities.Relation) *ProfileBuilder {
	b.contacts = append(b.contacts, entities.EmergencyContact{Name: name, Phone: phone, Relation: relation})
	return b
}

func (b *ProfileBuilder) WithSensitivity(s entities.Sensitivity) *ProfileBuilder {
	b.sensitivity = s
	return b
}

func (b *ProfileBuilder) WithTrigger(t entities.TriggerModality) *ProfileBuilder {
	b.trigger = t
	return b
}

func (b *ProfileBuilder) Build() entities.UserProfile {
	contacts := make([]entities.EmergencyContact, len(b.contacts))
	copy(contacts, b.contacts)
	return entities.UserProfile{
		UserID:            b.userID,
		Name:              b.name,
		Phone:             b.phone,
		EmergencyContacts: contacts,
		CustomTrigger:     b.trigger,
		AudioSensitivity:  b.sensitivity,
	}
}
