package di

import (
	"testing"
	"time"

	"sentinel/infrastructure/audio"
	"sentinel/infrastructure/config"
	memarchive "sentinel/infrastructure/persistence/memory"
	"sentinel/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		LogLevel:    "debug",
		AudioInput:  "simulated",
		AudioMaxAge: 3 * time.Second,
		JWTIssuer:   "sentinel",
	}
}

func TestProvideLogger(t *testing.T) {
	cfg := testConfig()
	logger, err := ProvideLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.LogLevel = "loud"
	_, err = ProvideLogger(cfg)
	assert.Error(t, err)
}

func TestProvideAudioInput(t *testing.T) {
	cfg := testConfig()
	in := ProvideAudioInput(cfg)
	assert.IsType(t, &audio.SimulatedSource{}, in.Source)
	assert.Nil(t, in.Reporter)

	cfg.AudioInput = "device"
	in = ProvideAudioInput(cfg)
	pushed, ok := in.Source.(*audio.PushedSource)
	require.True(t, ok)
	assert.Same(t, pushed, in.Reporter)
}

func TestProvideMetrics(t *testing.T) {
	collector := observability.NewCollector("di_test")
	metrics := ProvideMetrics(collector, nil)
	fanout, ok := metrics.(observability.Fanout)
	require.True(t, ok)
	assert.Len(t, fanout, 1)

	cw := observability.NewCloudWatchMetrics("Sentinel/test", nil, zap.NewNop())
	fanout = ProvideMetrics(collector, cw).(observability.Fanout)
	assert.Len(t, fanout, 2)
}

func TestProvideArchiveStore_MemoryWhenDynamoDisabled(t *testing.T) {
	store := ProvideArchiveStore(nil, testConfig(), zap.NewNop())
	assert.IsType(t, &memarchive.AlertArchive{}, store)
	assert.Nil(t, ProvideLeaseManager(nil, testConfig(), zap.NewNop()))
}

func TestProvideJWTValidator(t *testing.T) {
	cfg := testConfig()
	v, err := ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, v)

	cfg.Environment = "production"
	_, err = ProvideJWTValidator(cfg)
	assert.Error(t, err, "production never falls back to the development secret")
}
