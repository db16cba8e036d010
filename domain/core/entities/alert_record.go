package entities

import (
	"time"

	"sentinel/domain/core/valueobjects"
)

// AlertID is the monotonic identity of an alert record
type AlertID uint64

// AlertRecord is one entry of the alert ledger
type AlertRecord struct {
	ID               AlertID               `json:"id"`
	Message          string                `json:"message"`
	Severity         valueobjects.Severity `json:"severity"`
	CreatedAt        time.Time             `json:"created_at"`
	Location         valueobjects.Location `json:"location"`
	LeadsToCountdown bool                  `json:"leads_to_countdown"`
	// Source is empty for system records such as activation or cancellation
	Source string `json:"source,omitempty"`
}

// ExpiresAt returns when the record leaves the ledger for the given retention
func (r AlertRecord) ExpiresAt(retention time.Duration) time.Time {
	return r.CreatedAt.Add(retention)
}
