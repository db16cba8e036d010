package memory

import (
	"context"
	"testing"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	apperrors "sentinel/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func rec(id entities.AlertID, sev valueobjects.Severity) entities.AlertRecord {
	return entities.AlertRecord{ID: id, Severity: sev, CreatedAt: base.Add(time.Duration(id) * time.Second)}
}

func TestAlertArchive_ListFilters(t *testing.T) {
	ctx := context.Background()
	a := NewAlertArchive(0)
	require.NoError(t, a.Save(ctx, "u1", rec(1, valueobjects.SeverityInfo)))
	require.NoError(t, a.Save(ctx, "u1", rec(2, valueobjects.SeverityUrgent)))
	require.NoError(t, a.Save(ctx, "u1", rec(3, valueobjects.SeverityUrgent)))
	require.NoError(t, a.Save(ctx, "u2", rec(4, valueobjects.SeverityUrgent)))

	all, err := a.List(ctx, ports.IncidentQuery{Owner: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, entities.AlertID(3), all[0].ID)

	urgent, _ := a.List(ctx, ports.IncidentQuery{Owner: "u1", Severity: valueobjects.SeverityUrgent, Limit: 1})
	require.Len(t, urgent, 1)
	assert.Equal(t, entities.AlertID(3), urgent[0].ID)

	since, _ := a.List(ctx, ports.IncidentQuery{Owner: "u1", Since: base.Add(2 * time.Second)})
	assert.Len(t, since, 2)
}

func TestAlertArchive_Bounded(t *testing.T) {
	ctx := context.Background()
	a := NewAlertArchive(2)
	for i := 1; i <= 4; i++ {
		require.NoError(t, a.Save(ctx, "u1", rec(entities.AlertID(i), valueobjects.SeverityInfo)))
	}
	out, _ := a.List(ctx, ports.IncidentQuery{Owner: "u1"})
	require.Len(t, out, 2)
	assert.Equal(t, entities.AlertID(4), out[0].ID)
	assert.Equal(t, entities.AlertID(3), out[1].ID)
}

func TestAlertArchive_RequiresOwner(t *testing.T) {
	_, err := NewAlertArchive(0).List(context.Background(), ports.IncidentQuery{})
	assert.True(t, apperrors.IsValidation(err))
}
