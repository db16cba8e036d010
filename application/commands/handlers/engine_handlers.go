// Package handlers binds engine commands to the command bus.
package handlers

import (
	"context"
	"time"

	"sentinel/application/commands"
	"sentinel/application/commands/bus"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	"sentinel/pkg/errors"

	"go.uber.org/zap"
)

// Engine is the part of the engine the command handlers drive
type Engine interface {
	Activate(ctx context.Context, profile entities.UserProfile) (entities.AlertRecord, error)
	UpdateProfile(ctx context.Context, profile entities.UserProfile) error
	ArmManualPanic(ctx context.Context) (entities.AlertRecord, error)
	RegisterTap(ctx context.Context) (bool, error)
	CancelCountdown(ctx context.Context) bool
	ToggleAudioDetection(ctx context.Context) (bool, error)
	ShareLocationNow(ctx context.Context) (entities.AlertRecord, error)
	SetIndicators(battery int, connected bool) error
}

// LocationUpdater accepts positions reported by the device
type LocationUpdater interface {
	Update(loc valueobjects.Location)
}

// AudioReporter accepts readings from an external audio meter
type AudioReporter interface {
	Push(level float64) error
}

// EngineHandlers handles every engine command
type EngineHandlers struct {
	engine   Engine
	location LocationUpdater
	audio    AudioReporter
	now      func() time.Time
	logger   *zap.Logger
}

// NewEngineHandlers creates the handler set. location and audio may be nil
// when the deployment has no device feed.
func NewEngineHandlers(engine Engine, location LocationUpdater, audio AudioReporter, now func() time.Time, logger *zap.Logger) *EngineHandlers {
	return &EngineHandlers{
		engine:   engine,
		location: location,
		audio:    audio,
		now:      now,
		logger:   logger,
	}
}

// Register registers every handler on b
func (h *EngineHandlers) Register(b *bus.CommandBus) error {
	routes := []struct {
		cmd     bus.Command
		handler bus.CommandHandlerFunc
	}{
		{commands.ActivateProtectionCommand{}, h.activate},
		{commands.UpdateProfileCommand{}, h.updateProfile},
		{commands.ManualPanicCommand{}, h.manualPanic},
		{commands.RegisterTapCommand{}, h.registerTap},
		{commands.CancelCountdownCommand{}, h.cancelCountdown},
		{commands.ToggleAudioCommand{}, h.toggleAudio},
		{commands.ShareLocationCommand{}, h.shareLocation},
		{commands.UpdateLocationCommand{}, h.updateLocation},
		{commands.SetIndicatorsCommand{}, h.setIndicators},
		{commands.ReportAudioLevelCommand{}, h.reportAudioLevel},
	}
	for _, r := range routes {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func (h *EngineHandlers) activate(ctx context.Context, cmd bus.Command) error {
	c := cmd.(commands.ActivateProtectionCommand)
	_, err := h.engine.Activate(ctx, c.Profile)
	return err
}

func (h *EngineHandlers) updateProfile(ctx context.Context, cmd bus.Command) error {
	c := cmd.(commands.UpdateProfileCommand)
	return h.engine.UpdateProfile(ctx, c.Profile)
}

func (h *EngineHandlers) manualPanic(ctx context.Context, _ bus.Command) error {
	_, err := h.engine.ArmManualPanic(ctx)
	return err
}

func (h *EngineHandlers) registerTap(ctx context.Context, _ bus.Command) error {
	triggered, err := h.engine.RegisterTap(ctx)
	if triggered {
		h.logger.Info("Tap pattern completed")
	}
	return err
}

func (h *EngineHandlers) cancelCountdown(ctx context.Context, _ bus.Command) error {
	if !h.engine.CancelCountdown(ctx) {
		h.logger.Debug("Cancel requested with no countdown pending")
	}
	return nil
}

func (h *EngineHandlers) toggleAudio(ctx context.Context, _ bus.Command) error {
	_, err := h.engine.ToggleAudioDetection(ctx)
	return err
}

func (h *EngineHandlers) shareLocation(ctx context.Context, _ bus.Command) error {
	_, err := h.engine.ShareLocationNow(ctx)
	return err
}

func (h *EngineHandlers) updateLocation(_ context.Context, cmd bus.Command) error {
	if h.location == nil {
		return errors.NewUnavailableError("location feed")
	}
	c := cmd.(commands.UpdateLocationCommand)
	h.location.Update(valueobjects.NewLocation(c.Latitude, c.Longitude, c.Address, h.now()))
	return nil
}

func (h *EngineHandlers) setIndicators(_ context.Context, cmd bus.Command) error {
	c := cmd.(commands.SetIndicatorsCommand)
	return h.engine.SetIndicators(c.BatteryLevel, c.Connected)
}

func (h *EngineHandlers) reportAudioLevel(_ context.Context, cmd bus.Command) error {
	if h.audio == nil {
		return errors.NewUnavailableError("audio meter")
	}
	c := cmd.(commands.ReportAudioLevelCommand)
	return h.audio.Push(c.Level)
}
