package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel/application/engine"
	"sentinel/application/ports"
	"sentinel/application/queries"
	"sentinel/application/queries/bus"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	apperrors "sentinel/pkg/errors"
	"sentinel/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticSnapshot engine.Snapshot

func (s staticSnapshot) Snapshot() engine.Snapshot { return engine.Snapshot(s) }

func TestGetSnapshot(t *testing.T) {
	b := bus.NewQueryBus()
	require.NoError(t, Register(b, staticSnapshot{Active: true, BatteryLevel: 85}, new(mocks.MockAlertArchive)))

	out, err := b.Ask(context.Background(), queries.GetSnapshotQuery{})
	require.NoError(t, err)
	snap := out.(engine.Snapshot)
	assert.True(t, snap.Active)
	assert.Equal(t, 85, snap.BatteryLevel)
}

func TestListIncidents(t *testing.T) {
	archive := new(mocks.MockAlertArchive)
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	archive.On("List", mock.Anything, ports.IncidentQuery{
		Owner:    "u1",
		Since:    since,
		Severity: valueobjects.SeverityUrgent,
		Limit:    10,
	}).Return([]entities.AlertRecord{{
		ID:        3,
		Message:   "Emergency gesture detected! Starting countdown...",
		Severity:  valueobjects.SeverityUrgent,
		CreatedAt: since.Add(time.Minute),
		Location:  valueobjects.NewLocation(19.076, 72.8777, "Mumbai, Maharashtra", since),
		Source:    "gesture",
	}}, nil)

	b := bus.NewQueryBus(bus.LoggingMiddleware(zap.NewNop(), time.Second))
	require.NoError(t, Register(b, nil, archive))

	out, err := b.Ask(context.Background(), queries.ListIncidentsQuery{Owner: "u1", Since: since, Severity: "urgent", Limit: 10})
	require.NoError(t, err)
	res := out.(queries.ListIncidentsResult)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "urgent", res.Items[0].Severity)
	assert.Equal(t, "2024-01-01T00:01:00Z", res.Items[0].CreatedAt)
	assert.Equal(t, "Mumbai, Maharashtra", res.Items[0].Address)
}

func TestListIncidents_Validation(t *testing.T) {
	b := bus.NewQueryBus()
	require.NoError(t, Register(b, nil, new(mocks.MockAlertArchive)))

	_, err := b.Ask(context.Background(), queries.ListIncidentsQuery{})
	assert.True(t, apperrors.IsValidation(err))

	_, err = b.Ask(context.Background(), queries.ListIncidentsQuery{Owner: "u1", Severity: "loud"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = b.Ask(context.Background(), queries.GetSnapshotQuery{})
	assert.ErrorIs(t, err, bus.ErrHandlerNotFound)
}

func TestListIncidents_ArchiveError(t *testing.T) {
	archive := new(mocks.MockAlertArchive)
	archive.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("dynamo down"))

	b := bus.NewQueryBus()
	require.NoError(t, Register(b, nil, archive))
	_, err := b.Ask(context.Background(), queries.ListIncidentsQuery{Owner: "u1"})
	assert.EqualError(t, err, "dynamo down")
}
