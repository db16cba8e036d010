// Package handlers implements the REST endpoints over the command and query buses.
package handlers

import (
	"net/http"

	"sentinel/application/commands"
	"sentinel/application/commands/bus"
	"sentinel/application/queries"
	querybus "sentinel/application/queries/bus"
	"sentinel/domain/core/entities"
	"sentinel/pkg/common"
	"sentinel/pkg/errors"

	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// EngineHandler handles user actions and the live snapshot
type EngineHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *errors.ErrorHandler
	logger     *zap.Logger
}

// NewEngineHandler creates a new engine handler
func NewEngineHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *errors.ErrorHandler,
	logger *zap.Logger,
) *EngineHandler {
	return &EngineHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		logger:     logger,
	}
}

// Activate handles POST /protection/activate
func (h *EngineHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var profile entities.UserProfile
	if !h.decode(w, r, &profile) {
		return
	}
	h.send(w, r, commands.ActivateProtectionCommand{Profile: profile})
}

// UpdateProfile handles PUT /profile
func (h *EngineHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var profile entities.UserProfile
	if !h.decode(w, r, &profile) {
		return
	}
	h.send(w, r, commands.UpdateProfileCommand{Profile: profile})
}

// Panic handles POST /panic
func (h *EngineHandler) Panic(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.ManualPanicCommand{})
}

// Tap handles POST /taps
func (h *EngineHandler) Tap(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.RegisterTapCommand{})
}

// CancelCountdown handles POST /countdown/cancel
func (h *EngineHandler) CancelCountdown(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.CancelCountdownCommand{})
}

// ToggleAudio handles POST /audio/toggle
func (h *EngineHandler) ToggleAudio(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.ToggleAudioCommand{})
}

// ReportAudioLevel handles POST /audio/level
func (h *EngineHandler) ReportAudioLevel(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ReportAudioLevelCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	h.send(w, r, cmd)
}

// ShareLocation handles POST /location/share
func (h *EngineHandler) ShareLocation(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.ShareLocationCommand{})
}

// UpdateLocation handles PUT /location
func (h *EngineHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var cmd commands.UpdateLocationCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	h.send(w, r, cmd)
}

// SetIndicators handles PUT /indicators
func (h *EngineHandler) SetIndicators(w http.ResponseWriter, r *http.Request) {
	var cmd commands.SetIndicatorsCommand
	if !h.decode(w, r, &cmd) {
		return
	}
	h.send(w, r, cmd)
}

// Snapshot handles GET /snapshot
func (h *EngineHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.queryBus.Ask(r.Context(), queries.GetSnapshotQuery{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondWithMeta(w, http.StatusOK, snapshot, common.NewMeta(r))
}

func (h *EngineHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, errors.NewValidationError("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

// send dispatches cmd and replies with the snapshot taken right after it
func (h *EngineHandler) send(w http.ResponseWriter, r *http.Request, cmd bus.Command) {
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.Snapshot(w, r)
}
