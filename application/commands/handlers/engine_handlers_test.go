package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel/application/commands"
	"sentinel/application/commands/bus"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	apperrors "sentinel/pkg/errors"
	"sentinel/tests/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Activate(ctx context.Context, p entities.UserProfile) (entities.AlertRecord, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(entities.AlertRecord), args.Error(1)
}

func (m *mockEngine) UpdateProfile(ctx context.Context, p entities.UserProfile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockEngine) ArmManualPanic(ctx context.Context) (entities.AlertRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.AlertRecord), args.Error(1)
}

func (m *mockEngine) RegisterTap(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockEngine) CancelCountdown(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockEngine) ToggleAudioDetection(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockEngine) ShareLocationNow(ctx context.Context) (entities.AlertRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).(entities.AlertRecord), args.Error(1)
}

func (m *mockEngine) SetIndicators(battery int, connected bool) error {
	return m.Called(battery, connected).Error(0)
}

type recordingLocation struct {
	got []valueobjects.Location
}

func (r *recordingLocation) Update(loc valueobjects.Location) { r.got = append(r.got, loc) }

type recordingAudio struct {
	levels []float64
}

func (r *recordingAudio) Push(level float64) error {
	r.levels = append(r.levels, level)
	return nil
}

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newBus(t *testing.T, eng Engine, loc LocationUpdater, audio AudioReporter) *bus.CommandBus {
	t.Helper()
	b := bus.NewCommandBus(bus.RecoveryMiddleware(zap.NewNop()), bus.LoggingMiddleware(zap.NewNop()))
	h := NewEngineHandlers(eng, loc, audio, func() time.Time { return fixedNow }, zap.NewNop())
	require.NoError(t, h.Register(b))
	return b
}

func TestEngineHandlers_RouteToEngine(t *testing.T) {
	ctx := context.Background()
	eng := new(mockEngine)
	profile := fixtures.NewProfileBuilder().Build()

	eng.On("Activate", ctx, profile).Return(entities.AlertRecord{}, nil).Once()
	eng.On("ArmManualPanic", ctx).Return(entities.AlertRecord{}, nil).Once()
	eng.On("RegisterTap", ctx).Return(true, nil).Once()
	eng.On("CancelCountdown", ctx).Return(false).Once()
	eng.On("ToggleAudioDetection", ctx).Return(false, nil).Once()
	eng.On("ShareLocationNow", ctx).Return(entities.AlertRecord{}, nil).Once()
	eng.On("SetIndicators", 40, false).Return(nil).Once()
	eng.On("UpdateProfile", ctx, profile).Return(nil).Once()

	b := newBus(t, eng, nil, nil)
	require.NoError(t, b.Send(ctx, commands.ActivateProtectionCommand{Profile: profile}))
	require.NoError(t, b.Send(ctx, commands.ManualPanicCommand{}))
	require.NoError(t, b.Send(ctx, commands.RegisterTapCommand{}))
	require.NoError(t, b.Send(ctx, commands.CancelCountdownCommand{}))
	require.NoError(t, b.Send(ctx, commands.ToggleAudioCommand{}))
	require.NoError(t, b.Send(ctx, commands.ShareLocationCommand{}))
	require.NoError(t, b.Send(ctx, commands.SetIndicatorsCommand{BatteryLevel: 40}))
	require.NoError(t, b.Send(ctx, commands.UpdateProfileCommand{Profile: profile}))

	eng.AssertExpectations(t)
}

func TestEngineHandlers_EngineErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	eng := new(mockEngine)
	inactive := apperrors.NewProtectionInactiveError("Protection is not active")
	eng.On("RegisterTap", ctx).Return(false, inactive)

	err := newBus(t, eng, nil, nil).Send(ctx, commands.RegisterTapCommand{})
	assert.Same(t, inactive, apperrors.GetAppError(err))
}

func TestEngineHandlers_ValidationRejectsBeforeEngine(t *testing.T) {
	ctx := context.Background()
	eng := new(mockEngine)
	b := newBus(t, eng, &recordingLocation{}, &recordingAudio{})

	err := b.Send(ctx, commands.SetIndicatorsCommand{BatteryLevel: 101})
	assert.True(t, apperrors.IsValidation(err))

	err = b.Send(ctx, commands.UpdateLocationCommand{Latitude: 91})
	assert.True(t, apperrors.IsValidation(err))

	err = b.Send(ctx, commands.ReportAudioLevelCommand{Level: -1})
	assert.True(t, apperrors.IsValidation(err))

	eng.AssertNotCalled(t, "SetIndicators", mock.Anything, mock.Anything)
}

func TestEngineHandlers_DeviceFeeds(t *testing.T) {
	ctx := context.Background()
	loc := &recordingLocation{}
	audio := &recordingAudio{}
	b := newBus(t, new(mockEngine), loc, audio)

	require.NoError(t, b.Send(ctx, commands.UpdateLocationCommand{Latitude: 19.1, Longitude: 72.9, Address: "Bandra"}))
	require.Len(t, loc.got, 1)
	assert.Equal(t, valueobjects.NewLocation(19.1, 72.9, "Bandra", fixedNow), loc.got[0])

	require.NoError(t, b.Send(ctx, commands.ReportAudioLevelCommand{Level: 64}))
	assert.Equal(t, []float64{64}, audio.levels)
}

func TestEngineHandlers_MissingFeeds(t *testing.T) {
	b := newBus(t, new(mockEngine), nil, nil)
	err := b.Send(context.Background(), commands.ReportAudioLevelCommand{Level: 10})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
}

func TestCommandBus_UnknownAndDuplicate(t *testing.T) {
	b := bus.NewCommandBus()
	err := b.Send(context.Background(), commands.ManualPanicCommand{})
	assert.ErrorIs(t, err, bus.ErrHandlerNotFound)

	noop := bus.CommandHandlerFunc(func(context.Context, bus.Command) error { return nil })
	require.NoError(t, b.Register(commands.ManualPanicCommand{}, noop))
	assert.ErrorIs(t, b.Register(commands.ManualPanicCommand{}, noop), bus.ErrHandlerDuplicate)
}

func TestCommandBus_RecoversPanics(t *testing.T) {
	b := bus.NewCommandBus(bus.RecoveryMiddleware(zap.NewNop()))
	require.NoError(t, b.Register(commands.ManualPanicCommand{}, bus.CommandHandlerFunc(
		func(context.Context, bus.Command) error { panic("boom") })))

	err := b.Send(context.Background(), commands.ManualPanicCommand{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, bus.ErrHandlerNotFound))
}
