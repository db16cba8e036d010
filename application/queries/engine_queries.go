// Package queries holds the read side: engine snapshots and incident history.
package queries

import (
	"time"

	"sentinel/domain/core/valueobjects"
	"sentinel/pkg/errors"
)

// GetSnapshotQuery reads the live engine state
type GetSnapshotQuery struct{}

func (GetSnapshotQuery) Validate() error { return nil }

// ListIncidentsQuery reads archived alert records
type ListIncidentsQuery struct {
	Owner    string
	Since    time.Time
	Severity string
	Limit    int
}

// Validate validates the ListIncidentsQuery
func (q ListIncidentsQuery) Validate() error {
	if q.Owner == "" {
		return errors.NewValidationError("owner is required")
	}
	if q.Limit < 0 || q.Limit > 500 {
		return errors.NewValidationError("limit must be between 0 and 500")
	}
	if q.Severity != "" {
		if _, err := valueobjects.ParseSeverity(q.Severity); err != nil {
			return errors.NewValidationError(err.Error())
		}
	}
	return nil
}

// IncidentView is one archived record as returned to clients
type IncidentView struct {
	ID               uint64  `json:"id"`
	Message          string  `json:"message"`
	Severity         string  `json:"severity"`
	Source           string  `json:"source,omitempty"`
	LeadsToCountdown bool    `json:"leads_to_countdown"`
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lng"`
	Address          string  `json:"address,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// ListIncidentsResult is the ListIncidentsQuery result
type ListIncidentsResult struct {
	Items []IncidentView `json:"items"`
	Count int            `json:"count"`
}
