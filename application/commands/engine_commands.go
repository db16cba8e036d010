// Package commands holds the user actions accepted by the engine.
package commands

import (
	"sentinel/domain/core/entities"
	"sentinel/pkg/errors"
	"sentinel/pkg/utils"
)

func validate(c interface{}) error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// ActivateProtectionCommand arms protection with the given profile.
// Profile problems are reported by the engine, which also logs them.
type ActivateProtectionCommand struct {
	Profile entities.UserProfile `json:"profile"`
}

func (c ActivateProtectionCommand) Validate() error { return nil }

// UpdateProfileCommand swaps the profile without re-activating
type UpdateProfileCommand struct {
	Profile entities.UserProfile `json:"profile"`
}

func (c UpdateProfileCommand) Validate() error { return nil }

// ManualPanicCommand is the panic button
type ManualPanicCommand struct{}

func (ManualPanicCommand) Validate() error { return nil }

// RegisterTapCommand feeds one tap to gesture detection
type RegisterTapCommand struct{}

func (RegisterTapCommand) Validate() error { return nil }

// CancelCountdownCommand aborts a pending countdown
type CancelCountdownCommand struct{}

func (CancelCountdownCommand) Validate() error { return nil }

// ToggleAudioCommand flips ambient audio detection
type ToggleAudioCommand struct{}

func (ToggleAudioCommand) Validate() error { return nil }

// ShareLocationCommand shares the current location on demand
type ShareLocationCommand struct{}

func (ShareLocationCommand) Validate() error { return nil }

// UpdateLocationCommand reports a real position from the device
type UpdateLocationCommand struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lng" validate:"longitude"`
	Address   string  `json:"address" validate:"max=200"`
}

func (c UpdateLocationCommand) Validate() error { return validate(c) }

// SetIndicatorsCommand reports battery and connectivity
type SetIndicatorsCommand struct {
	BatteryLevel int  `json:"battery_level" validate:"min=0,max=100"`
	Connected    bool `json:"connected"`
}

func (c SetIndicatorsCommand) Validate() error { return validate(c) }

// ReportAudioLevelCommand pushes an external meter reading
type ReportAudioLevelCommand struct {
	Level float64 `json:"level" validate:"gte=0,lte=100"`
}

func (c ReportAudioLevelCommand) Validate() error { return validate(c) }
