package handlers

import (
	"net/http"
	"strconv"
	"time"

	"sentinel/application/queries"
	querybus "sentinel/application/queries/bus"
	"sentinel/pkg/auth"
	"sentinel/pkg/common"
	"sentinel/pkg/errors"

	"go.uber.org/zap"
)

// IncidentHandler serves archived alert records
type IncidentHandler struct {
	queryBus *querybus.QueryBus
	errors   *errors.ErrorHandler
	logger   *zap.Logger
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(queryBus *querybus.QueryBus, errs *errors.ErrorHandler, logger *zap.Logger) *IncidentHandler {
	return &IncidentHandler{queryBus: queryBus, errors: errs, logger: logger}
}

// ListIncidents handles GET /incidents?since=RFC3339&severity=urgent&limit=50
func (h *IncidentHandler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, errors.NewUnauthorizedError("Unauthorized"))
		return
	}

	q := queries.ListIncidentsQuery{
		Owner:    user.UserID,
		Severity: r.URL.Query().Get("severity"),
	}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.errors.Handle(w, r, errors.NewValidationError("since must be an RFC3339 timestamp"))
			return
		}
		q.Since = since
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			h.errors.Handle(w, r, errors.NewValidationError("limit must be a number"))
			return
		}
		q.Limit = limit
	}

	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	res := result.(queries.ListIncidentsResult)
	meta := common.NewMeta(r)
	meta.Count = &res.Count
	common.RespondWithMeta(w, http.StatusOK, res.Items, meta)
}
