package middleware

import (
	"net/http"
	"strings"
	"time"

	"sentinel/pkg/auth"
	"sentinel/pkg/common"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger logs one line per request. Health probes log at debug so they do
// not drown out engine traffic.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := common.WithStartTime(r.Context(), time.Now())
			reqID := middleware.GetReqID(ctx)
			if reqID != "" {
				ctx = common.WithRequestID(ctx, reqID)
			}
			r = r.WithContext(ctx)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := zapcore.InfoLevel
			switch {
			case ww.Status() >= 500:
				level = zapcore.ErrorLevel
			case strings.HasSuffix(r.URL.Path, "/health"):
				level = zapcore.DebugLevel
			}
			if ce := logger.Check(level, "HTTP Request"); ce != nil {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", common.GetElapsedTime(ctx)),
					zap.String("requestID", reqID),
				}
				if user, err := auth.GetUserFromContext(ctx); err == nil {
					fields = append(fields, zap.String("userID", user.UserID))
				}
				ce.Write(fields...)
			}
		})
	}
}
