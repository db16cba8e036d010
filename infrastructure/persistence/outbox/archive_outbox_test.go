package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	"sentinel/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func record(id entities.AlertID) entities.AlertRecord {
	return entities.AlertRecord{ID: id, Message: "m", Severity: valueobjects.SeverityInfo}
}

func TestArchiveOutbox_DrainsOnStop(t *testing.T) {
	store := new(mocks.MockAlertArchive)
	store.On("Save", mock.Anything, "u1", mock.Anything).Return(nil)

	o := NewArchiveOutbox(store, 10, zap.NewNop())
	o.Start()
	for i := 1; i <= 3; i++ {
		require.NoError(t, o.Save(context.Background(), "u1", record(entities.AlertID(i))))
	}
	o.Stop()

	store.AssertNumberOfCalls(t, "Save", 3)
}

func TestArchiveOutbox_Retries(t *testing.T) {
	store := new(mocks.MockAlertArchive)
	store.On("Save", mock.Anything, "u1", mock.Anything).Return(errors.New("throttled")).Twice()
	store.On("Save", mock.Anything, "u1", mock.Anything).Return(nil).Once()

	o := NewArchiveOutbox(store, 10, zap.NewNop())
	o.retryDelay = time.Millisecond
	o.Start()
	require.NoError(t, o.Save(context.Background(), "u1", record(1)))
	o.Stop()

	store.AssertNumberOfCalls(t, "Save", 3)
}

func TestArchiveOutbox_GivesUp(t *testing.T) {
	store := new(mocks.MockAlertArchive)
	store.On("Save", mock.Anything, "u1", mock.Anything).Return(errors.New("down"))

	o := NewArchiveOutbox(store, 10, zap.NewNop())
	o.retryDelay = time.Millisecond
	o.Start()
	require.NoError(t, o.Save(context.Background(), "u1", record(1)))
	o.Stop()

	store.AssertNumberOfCalls(t, "Save", 3)
}

func TestArchiveOutbox_DropsWhenFull(t *testing.T) {
	store := new(mocks.MockAlertArchive)
	o := NewArchiveOutbox(store, 1, zap.NewNop())

	require.NoError(t, o.Save(context.Background(), "u1", record(1)))
	require.NoError(t, o.Save(context.Background(), "u1", record(2)))
	assert.Equal(t, 1, o.Pending())

	store.On("Save", mock.Anything, "u1", record(1)).Return(nil).Once()
	o.Start()
	o.Stop()
	store.AssertExpectations(t)
}

func TestArchiveOutbox_SaveAfterStopIsDropped(t *testing.T) {
	store := new(mocks.MockAlertArchive)
	o := NewArchiveOutbox(store, 1, zap.NewNop())
	o.Start()
	o.Stop()

	assert.NoError(t, o.Save(context.Background(), "u1", record(1)))
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestArchiveOutbox_ListPassesThrough(t *testing.T) {
	store := new(mocks.MockAlertArchive)
	q := ports.IncidentQuery{Owner: "u1", Limit: 5}
	store.On("List", mock.Anything, q).Return([]entities.AlertRecord{record(9)}, nil)

	out, err := NewArchiveOutbox(store, 1, zap.NewNop()).List(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
