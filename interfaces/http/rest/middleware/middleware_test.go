package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentinel/pkg/auth"
	"sentinel/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.GetUserFromContext(r.Context())
		require.NoError(t, err)
		_, _ = w.Write([]byte(user.UserID))
	})
}

func newValidator(t *testing.T) (*auth.JWTValidator, string) {
	cfg := auth.JWTConfig{SecretKey: "s3cret", Issuer: "sentinel"}
	v, err := auth.NewJWTValidator(cfg)
	require.NoError(t, err)
	g, err := auth.NewJWTGenerator(cfg, time.Hour)
	require.NoError(t, err)
	token, err := g.GenerateToken("u1", "", nil)
	require.NoError(t, err)
	return v, token
}

func TestAuthenticate(t *testing.T) {
	validator, token := newValidator(t)
	limits := Limits{IP: auth.NewIPRateLimiter(600), User: auth.NewUserRateLimiter(600)}
	h := Authenticate(validator, limits, errors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(echoUser(t))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"query token", func(r *http.Request) { r.URL.RawQuery = "token=" + token }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer x.y.z") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u1", w.Body.String())
			}
		})
	}
}

func TestAuthenticate_RateLimited(t *testing.T) {
	validator, token := newValidator(t)
	limits := Limits{IP: auth.NewKeyedLimiter(1, 1), User: auth.NewUserRateLimiter(600)}
	h := Authenticate(validator, limits, errors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())(echoUser(t))

	call := func() int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, call())
	assert.Equal(t, http.StatusTooManyRequests, call())
}

func TestAuthenticateForLambda(t *testing.T) {
	h := AuthenticateForLambda(DefaultLimits(), errors.NewErrorHandler(zap.NewNop(), false))(echoUser(t))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-API-Gateway-Authorized", "true")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-API-Gateway-Authorized", "true")
	r.Header.Set("X-User-ID", "u9")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u9", w.Body.String())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/panic", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/v1/panic", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, 1, logs.Len(), "health probes log below info")
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", getClientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", getClientIP(r))
}
