// Package memory keeps incident history in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/pkg/errors"
)

const defaultLimit = 50

// AlertArchive implements ports.AlertArchive with a per-owner slice.
// It is used in development and when no DynamoDB table is configured.
type AlertArchive struct {
	mu      sync.RWMutex
	byOwner map[string][]entities.AlertRecord
	max     int
}

// NewAlertArchive creates an archive keeping at most max records per owner
// (0 means unbounded).
func NewAlertArchive(max int) *AlertArchive {
	return &AlertArchive{byOwner: make(map[string][]entities.AlertRecord), max: max}
}

// Save implements ports.AlertArchive
func (a *AlertArchive) Save(_ context.Context, owner string, record entities.AlertRecord) error {
	if owner == "" {
		return errors.NewValidationError("archive owner is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	records := append(a.byOwner[owner], record)
	if a.max > 0 && len(records) > a.max {
		records = records[len(records)-a.max:]
	}
	a.byOwner[owner] = records
	return nil
}

// List implements ports.AlertArchive. Records come back newest first.
func (a *AlertArchive) List(_ context.Context, query ports.IncidentQuery) ([]entities.AlertRecord, error) {
	if query.Owner == "" {
		return nil, errors.NewValidationError("owner is required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	a.mu.RLock()
	stored := a.byOwner[query.Owner]
	out := make([]entities.AlertRecord, 0, len(stored))
	for _, r := range stored {
		if !query.Since.IsZero() && r.CreatedAt.Before(query.Since) {
			continue
		}
		if query.Severity != 0 && r.Severity != query.Severity {
			continue
		}
		out = append(out, r)
	}
	a.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
