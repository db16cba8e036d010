package engine

import (
	"time"

	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
)

// Snapshot is the read-only view the presentation layer renders
type Snapshot struct {
	Active       bool                   `json:"active"`
	Confirmation ConfirmationState      `json:"confirmation"`
	Alerts       []entities.AlertRecord `json:"alerts"`
	AudioLevel   float64                `json:"audio_level"`
	AudioEnabled bool                   `json:"audio_enabled"`
	Sensitivity  entities.Sensitivity   `json:"audio_sensitivity"`
	TapCount     int                    `json:"tap_count"`
	TapsNeeded   int                    `json:"taps_needed"`
	Location     valueobjects.Location  `json:"location"`
	Tracking     bool                   `json:"tracking"`
	LastActivity time.Time              `json:"last_activity"`
	BatteryLevel int                    `json:"battery_level"`
	Connected    bool                   `json:"connected"`
	TakenAt      time.Time              `json:"taken_at"`
}

// Snapshot captures the current state of the engine
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	active := e.active
	sensitivity := e.profile.AudioSensitivity
	battery := e.battery
	connected := e.connected
	e.mu.RUnlock()

	loc := e.location.Current()
	return Snapshot{
		Active:       active,
		Confirmation: e.controller.State(),
		Alerts:       e.ledger.List(),
		AudioLevel:   e.audio.Level(),
		AudioEnabled: e.audio.Enabled(),
		Sensitivity:  sensitivity,
		TapCount:     len(e.gesture.Pattern()),
		TapsNeeded:   e.cfg.TapsToTrigger,
		Location:     loc,
		Tracking:     e.location.Continuous(),
		LastActivity: loc.UpdatedAt,
		BatteryLevel: battery,
		Connected:    connected,
		TakenAt:      e.sched.Now(),
	}
}
