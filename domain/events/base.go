package events

import (
	"time"

	"sentinel/domain/core/valueobjects"

	"github.com/google/uuid"
)

// SourceEngine is the EventBridge source for everything the engine emits
const SourceEngine = "sentinel.engine"

// Event types
const (
	TypeProtectionActivated = "protection.activated"
	TypeCountdownArmed      = "countdown.armed"
	TypeCountdownCancelled  = "countdown.cancelled"
	TypeEmergencyDispatched = "emergency.dispatched"
	TypeContactNotifyFailed = "contact.notify_failed"
	TypeLocationShared      = "location.shared"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(aggregateID, eventType string, at time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.New().String(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   at,
		Version:     1,
	}
}

// ProtectionActivated is raised when a validated profile arms the engine
type ProtectionActivated struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Contacts int    `json:"contacts"`
}

// NewProtectionActivated creates a ProtectionActivated event
func NewProtectionActivated(userID string, contacts int, at time.Time) ProtectionActivated {
	return ProtectionActivated{
		BaseEvent: newBase(userID, TypeProtectionActivated, at),
		UserID:    userID,
		Contacts:  contacts,
	}
}

// CountdownArmed is raised when an urgent trigger starts a countdown
type CountdownArmed struct {
	BaseEvent
	CycleID  valueobjects.CycleID `json:"cycle_id"`
	Source   string               `json:"source"`
	Seconds  int                  `json:"seconds"`
	Deadline time.Time            `json:"deadline"`
}

// NewCountdownArmed creates a CountdownArmed event
func NewCountdownArmed(cycle valueobjects.CycleID, source string, seconds int, deadline, at time.Time) CountdownArmed {
	return CountdownArmed{
		BaseEvent: newBase(cycle.String(), TypeCountdownArmed, at),
		CycleID:   cycle,
		Source:    source,
		Seconds:   seconds,
		Deadline:  deadline,
	}
}

// CountdownCancelled is raised when the user cancels a pending countdown
type CountdownCancelled struct {
	BaseEvent
	CycleID   valueobjects.CycleID `json:"cycle_id"`
	Remaining int                  `json:"remaining"`
}

// NewCountdownCancelled creates a CountdownCancelled event
func NewCountdownCancelled(cycle valueobjects.CycleID, remaining int, at time.Time) CountdownCancelled {
	return CountdownCancelled{
		BaseEvent: newBase(cycle.String(), TypeCountdownCancelled, at),
		CycleID:   cycle,
		Remaining: remaining,
	}
}

// EmergencyDispatched is raised once per countdown that ran out
type EmergencyDispatched struct {
	BaseEvent
	CycleID   valueobjects.CycleID  `json:"cycle_id"`
	UserID    string                `json:"user_id"`
	Location  valueobjects.Location `json:"location"`
	Delivered int                   `json:"delivered"`
	Failed    int                   `json:"failed"`
}

// NewEmergencyDispatched creates an EmergencyDispatched event
func NewEmergencyDispatched(cycle valueobjects.CycleID, userID string, loc valueobjects.Location, delivered, failed int, at time.Time) EmergencyDispatched {
	return EmergencyDispatched{
		BaseEvent: newBase(cycle.String(), TypeEmergencyDispatched, at),
		CycleID:   cycle,
		UserID:    userID,
		Location:  loc,
		Delivered: delivered,
		Failed:    failed,
	}
}

// ContactNotifyFailed is raised for every contact the gateway could not reach
type ContactNotifyFailed struct {
	BaseEvent
	CycleID valueobjects.CycleID `json:"cycle_id"`
	Contact string               `json:"contact"`
	Reason  string               `json:"reason"`
}

// NewContactNotifyFailed creates a ContactNotifyFailed event
func NewContactNotifyFailed(cycle valueobjects.CycleID, contact, reason string, at time.Time) ContactNotifyFailed {
	return ContactNotifyFailed{
		BaseEvent: newBase(cycle.String(), TypeContactNotifyFailed, at),
		CycleID:   cycle,
		Contact:   contact,
		Reason:    reason,
	}
}

// LocationShared is raised when the user shares their location on demand
type LocationShared struct {
	BaseEvent
	UserID   string                `json:"user_id"`
	Location valueobjects.Location `json:"location"`
}

// NewLocationShared creates a LocationShared event
func NewLocationShared(userID string, loc valueobjects.Location, at time.Time) LocationShared {
	return LocationShared{
		BaseEvent: newBase(userID, TypeLocationShared, at),
		UserID:    userID,
		Location:  loc,
	}
}
