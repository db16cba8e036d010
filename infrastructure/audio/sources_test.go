package audio

import (
	"context"
	"testing"
	"time"

	apperrors "sentinel/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedSource_Range(t *testing.T) {
	src := NewSimulatedSource(42)
	for i := 0; i < 1000; i++ {
		level, err := src.Sample(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, level, 0.0)
		assert.Less(t, level, 100.0)
	}
}

func TestSimulatedSource_SeedIsDeterministic(t *testing.T) {
	a, b := NewSimulatedSource(7), NewSimulatedSource(7)
	for i := 0; i < 10; i++ {
		x, _ := a.Sample(context.Background())
		y, _ := b.Sample(context.Background())
		assert.Equal(t, x, y)
	}
}

func TestPushedSource(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := NewPushedSource(5 * time.Second)
	src.now = func() time.Time { return now }

	_, err := src.Sample(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))

	assert.True(t, apperrors.IsValidation(src.Push(101)))
	require.NoError(t, src.Push(72.5))

	level, err := src.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 72.5, level)

	now = now.Add(6 * time.Second)
	_, err = src.Sample(context.Background())
	require.Error(t, err)
	assert.Equal(t, "STALE_READING", apperrors.GetAppError(err).Code)
}
