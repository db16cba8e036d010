package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentinel/domain/core/entities"
	apperrors "sentinel/pkg/errors"
	"sentinel/tests/mocks"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var meera = entities.EmergencyContact{Name: "Meera Rao", Phone: "+91 98200 00002", Relation: entities.RelationFamily}

func TestLogGateway_LogsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gw := NewLogGateway(zap.New(core))

	require.NoError(t, gw.Send(context.Background(), meera, "EMERGENCY!"))

	entries := logs.FilterMessage("SMS sent").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Meera Rao", fields["to"])
	assert.Equal(t, "+91 98200 00002", fields["phone"])
	assert.Equal(t, "EMERGENCY!", fields["message"])
}

func TestLogGateway_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewLogGateway(zap.NewNop()).Send(ctx, meera, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebhookGateway_PostsPayload(t *testing.T) {
	var got WebhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	gw := NewWebhookGateway(srv.URL, "secret", time.Second, zap.NewNop())
	require.NoError(t, gw.Send(context.Background(), meera, "help"))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "+91 98200 00002", got.To)
	assert.Equal(t, "Meera Rao", got.Name)
	assert.Equal(t, "Family", got.Relation)
	assert.Equal(t, "help", got.Message)
}

func TestWebhookGateway_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookGateway(srv.URL, "", time.Second, zap.NewNop()).Send(context.Background(), meera, "help")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestResilientGateway_PassesThrough(t *testing.T) {
	inner := new(mocks.MockNotificationGateway)
	inner.On("Send", mock.Anything, meera, "help").Return(nil).Once()

	gw := NewResilientGateway(inner, DefaultResilienceConfig("sms"), zap.NewNop())
	require.NoError(t, gw.Send(context.Background(), meera, "help"))
	inner.AssertExpectations(t)
}

func TestResilientGateway_OpensAfterFailures(t *testing.T) {
	boom := errors.New("provider down")
	inner := new(mocks.MockNotificationGateway)
	inner.On("Send", mock.Anything, meera, "help").Return(boom)

	cfg := DefaultResilienceConfig("sms")
	cfg.RatePerSecond = 1000
	cfg.Burst = 100
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	gw := NewResilientGateway(inner, cfg, zap.NewNop())

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, gw.Send(context.Background(), meera, "help"), boom)
	}
	assert.Equal(t, gobreaker.StateOpen, gw.State())

	err := gw.Send(context.Background(), meera, "help")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	inner.AssertNumberOfCalls(t, "Send", 3)
}

func TestResilientGateway_RateLimitHonoursContext(t *testing.T) {
	inner := new(mocks.MockNotificationGateway)
	inner.On("Send", mock.Anything, meera, "help").Return(nil)

	cfg := DefaultResilienceConfig("sms")
	cfg.RatePerSecond = 0.001
	cfg.Burst = 1
	gw := NewResilientGateway(inner, cfg, zap.NewNop())

	require.NoError(t, gw.Send(context.Background(), meera, "help"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := gw.Send(ctx, meera, "help")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
	inner.AssertNumberOfCalls(t, "Send", 1)
}
