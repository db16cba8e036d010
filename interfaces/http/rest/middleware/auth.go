package middleware

import (
	"net/http"
	"strings"

	"sentinel/pkg/auth"
	"sentinel/pkg/errors"

	"go.uber.org/zap"
)

// Limits are the per-minute request budgets applied by the auth middleware
type Limits struct {
	IP   auth.RateLimiter
	User auth.RateLimiter
}

// DefaultLimits allows 100 requests per minute per IP and 200 per user
func DefaultLimits() Limits {
	return Limits{
		IP:   auth.NewIPRateLimiter(100),
		User: auth.NewUserRateLimiter(200),
	}
}

// Authenticate validates bearer tokens and rate limits callers
func Authenticate(validator *auth.JWTValidator, limits Limits, errs *errors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			if allowed, _ := limits.IP.Allow(r.Context(), clientIP); !allowed {
				errs.HandleStatus(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			token := extractToken(r)
			if token == "" {
				errs.Handle(w, r, errors.NewUnauthorizedError("Missing authentication token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				switch err {
				case auth.ErrExpiredToken:
					errs.Handle(w, r, errors.NewUnauthorizedError("Token has expired"))
				case auth.ErrInvalidSignature:
					errs.Handle(w, r, errors.NewUnauthorizedError("Invalid token signature"))
				default:
					errs.Handle(w, r, errors.NewUnauthorizedError("Invalid token"))
				}
				return
			}

			if allowed, _ := limits.User.Allow(r.Context(), claims.UserID); !allowed {
				errs.HandleStatus(w, r, http.StatusTooManyRequests, "User rate limit exceeded")
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateForLambda trusts the user headers set by the Lambda adapter
// after API Gateway has validated the token
func AuthenticateForLambda(limits Limits, errs *errors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed, _ := limits.IP.Allow(r.Context(), getClientIP(r)); !allowed {
				errs.HandleStatus(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			if r.Header.Get("X-API-Gateway-Authorized") != "true" {
				errs.Handle(w, r, errors.NewUnauthorizedError("Request not authorized by API Gateway"))
				return
			}

			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				errs.Handle(w, r, errors.NewUnauthorizedError("Missing user context from API Gateway"))
				return
			}
			if allowed, _ := limits.User.Allow(r.Context(), userID); !allowed {
				errs.HandleStatus(w, r, http.StatusTooManyRequests, "User rate limit exceeded")
				return
			}

			roles := []string{"authenticated"}
			if v := r.Header.Get("X-User-Roles"); v != "" {
				roles = strings.Split(v, ",")
			}
			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: userID,
				Email:  r.Header.Get("X-User-Email"),
				Roles:  roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the bearer token from the header, or from the token
// query parameter for browsers opening a websocket
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
