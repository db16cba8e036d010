package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConstructors_StatusAndType(t *testing.T) {
	cases := []struct {
		err    *AppError
		typ    ErrorType
		status int
	}{
		{NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest},
		{NewConflictError("busy"), ErrorTypeConflict, http.StatusConflict},
		{NewUnauthorizedError(""), ErrorTypeUnauthorized, http.StatusUnauthorized},
		{NewTimeoutError("send"), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{NewUnavailableError("sms"), ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{NewDeliveryError("Mom", stderrors.New("boom")), ErrorTypeDelivery, http.StatusBadGateway},
		{NewDatabaseError("put", stderrors.New("boom")), ErrorTypeDatabase, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.typ, tc.err.Type)
		assert.Equal(t, tc.status, tc.err.HTTPStatus, string(tc.typ))
	}
	assert.Equal(t, "unauthorized", NewUnauthorizedError("").Message)
}

func TestProtectionInactiveError(t *testing.T) {
	err := NewProtectionInactiveError("Protection is not active")

	assert.True(t, IsType(err, ErrorTypeConflict))
	assert.True(t, HasCode(err, CodeProtectionInactive))
	assert.False(t, HasCode(stderrors.New("plain"), CodeProtectionInactive))
}

func TestSchedulerOverrun_HasNoStack(t *testing.T) {
	err := NewSchedulerOverrunError("countdown", 1500*time.Millisecond)

	assert.Empty(t, err.StackTrace)
	assert.Equal(t, int64(1500), err.Details["late_ms"])
	assert.NotEmpty(t, NewInternalError("x").StackTrace)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ctx"))

	wrapped := Wrap(NewValidationError("phone missing"), "activate")
	assert.True(t, IsValidation(wrapped))
	assert.Equal(t, "activate: phone missing", GetAppError(wrapped).Message)

	cause := stderrors.New("disk full")
	wrapped = Wrapf(cause, "save %d", 3)
	assert.True(t, IsType(wrapped, ErrorTypeInternal))
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "save 3")
}

func TestDeliveryError_Unwraps(t *testing.T) {
	cause := stderrors.New("carrier rejected")
	err := NewDeliveryError("Dad", cause)

	assert.True(t, IsDelivery(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Dad", err.Details["contact"])
}

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandle_AppError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewErrorHandler(zap.New(core), false)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/panic", nil)
	r.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	h.Handle(w, r, Wrap(NewProtectionInactiveError("Protection is not active"), "panic"))

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.True(t, body.Error)
	assert.Equal(t, CodeProtectionInactive, body.Code)
	assert.Equal(t, "req-1", body.RequestID)
	assert.NotContains(t, body.Details, "stack_trace")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestHandle_PlainErrorHidesText(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	w := httptest.NewRecorder()
	h.Handle(w, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("secret detail"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(ErrorTypeInternal), body.Type)
	assert.NotContains(t, body.Message, "secret")

	debug := NewErrorHandler(zap.NewNop(), true)
	w = httptest.NewRecorder()
	debug.Handle(w, httptest.NewRequest(http.MethodGet, "/", nil), stderrors.New("secret detail"))
	body = decode(t, w)
	assert.Equal(t, "secret detail", body.Message)
	assert.Contains(t, body.Details, "stack_trace")
}

func TestHandleStatus_Types(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	cases := map[int]ErrorType{
		http.StatusNotFound:        ErrorTypeNotFound,
		http.StatusTooManyRequests: ErrorTypeUnavailable,
		http.StatusBadRequest:      ErrorTypeValidation,
		http.StatusTeapot:          ErrorTypeInternal,
	}
	for status, want := range cases {
		w := httptest.NewRecorder()
		h.HandleStatus(w, httptest.NewRequest(http.MethodGet, "/x", nil), status, "nope")
		assert.Equal(t, status, w.Code)
		assert.Equal(t, string(want), decode(t, w).Type)
	}
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w).Message, "kaboom")
}
