package entities

import (
	"time"

	"sentinel/domain/core/valueobjects"
)

// TriggerEvent is an ephemeral trigger candidate emitted by a signal source.
type TriggerEvent struct {
	Source    valueobjects.TriggerSource
	Magnitude float64
	// Severity is only set by the audio monitor, which classifies its own samples
	Severity  valueobjects.Severity
	Timestamp time.Time
}

// NewGestureEvent creates a gesture trigger
func NewGestureEvent(at time.Time) TriggerEvent {
	return TriggerEvent{Source: valueobjects.SourceGesture, Timestamp: at}
}

// NewManualEvent creates a manual panic trigger
func NewManualEvent(at time.Time) TriggerEvent {
	return TriggerEvent{Source: valueobjects.SourceManual, Timestamp: at}
}

// NewAudioEvent creates an audio trigger already tagged by the classifier
func NewAudioEvent(level float64, severity valueobjects.Severity, at time.Time) TriggerEvent {
	return TriggerEvent{Source: valueobjects.SourceAudio, Magnitude: level, Severity: severity, Timestamp: at}
}
