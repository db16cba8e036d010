// Package handlers binds queries to the query bus.
package handlers

import (
	"context"
	"time"

	"sentinel/application/engine"
	"sentinel/application/ports"
	"sentinel/application/queries"
	"sentinel/application/queries/bus"
	"sentinel/domain/core/valueobjects"
)

// SnapshotSource provides the live engine state
type SnapshotSource interface {
	Snapshot() engine.Snapshot
}

// Register registers the snapshot and incident handlers. snapshots may be
// nil in processes that only serve history, such as the Lambda.
func Register(b *bus.QueryBus, snapshots SnapshotSource, archive ports.AlertArchive) error {
	if snapshots != nil {
		if err := b.Register(queries.GetSnapshotQuery{}, NewGetSnapshotHandler(snapshots)); err != nil {
			return err
		}
	}
	return b.Register(queries.ListIncidentsQuery{}, NewListIncidentsHandler(archive))
}

// GetSnapshotHandler handles GetSnapshotQuery
type GetSnapshotHandler struct {
	source SnapshotSource
}

// NewGetSnapshotHandler creates a new snapshot handler
func NewGetSnapshotHandler(source SnapshotSource) *GetSnapshotHandler {
	return &GetSnapshotHandler{source: source}
}

// Handle implements bus.QueryHandler
func (h *GetSnapshotHandler) Handle(_ context.Context, _ bus.Query) (interface{}, error) {
	return h.source.Snapshot(), nil
}

// ListIncidentsHandler handles ListIncidentsQuery
type ListIncidentsHandler struct {
	archive ports.AlertArchive
}

// NewListIncidentsHandler creates a new incident history handler
func NewListIncidentsHandler(archive ports.AlertArchive) *ListIncidentsHandler {
	return &ListIncidentsHandler{archive: archive}
}

// Handle implements bus.QueryHandler
func (h *ListIncidentsHandler) Handle(ctx context.Context, q bus.Query) (interface{}, error) {
	query := q.(queries.ListIncidentsQuery)

	var severity valueobjects.Severity
	if query.Severity != "" {
		severity, _ = valueobjects.ParseSeverity(query.Severity)
	}

	records, err := h.archive.List(ctx, ports.IncidentQuery{
		Owner:    query.Owner,
		Since:    query.Since,
		Severity: severity,
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]queries.IncidentView, 0, len(records))
	for _, r := range records {
		items = append(items, queries.IncidentView{
			ID:               uint64(r.ID),
			Message:          r.Message,
			Severity:         r.Severity.String(),
			Source:           r.Source,
			LeadsToCountdown: r.LeadsToCountdown,
			Latitude:         r.Location.Latitude,
			Longitude:        r.Location.Longitude,
			Address:          r.Location.Address,
			CreatedAt:        r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return queries.ListIncidentsResult{Items: items, Count: len(items)}, nil
}
