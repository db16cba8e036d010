package notification

import (
	"context"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ResilienceConfig tunes the circuit breaker and rate limit around a gateway
type ResilienceConfig struct {
	Name             string
	RatePerSecond    float64
	Burst            int
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultResilienceConfig returns defaults suited to an SMS provider
func DefaultResilienceConfig(name string) ResilienceConfig {
	return ResilienceConfig{
		Name:             name,
		RatePerSecond:    10,
		Burst:            10,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ResilientGateway guards another gateway with a rate limiter and a circuit
// breaker, so a failing provider is not hammered during an emergency.
type ResilientGateway struct {
	next    ports.NotificationGateway
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewResilientGateway wraps next
func NewResilientGateway(next ports.NotificationGateway, cfg ResilienceConfig, logger *zap.Logger) *ResilientGateway {
	logger = logger.Named("gateway")
	return &ResilientGateway{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.MinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		logger: logger,
	}
}

// Send implements ports.NotificationGateway
func (g *ResilientGateway) Send(ctx context.Context, contact entities.EmergencyContact, message string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return errors.NewTimeoutError("notification rate limit")
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.next.Send(ctx, contact, message)
	})
	switch err {
	case nil:
		return nil
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return errors.NewUnavailableError("notification gateway").WithCause(err)
	default:
		return err
	}
}

// State returns the breaker state for health reporting
func (g *ResilientGateway) State() gobreaker.State {
	return g.breaker.State()
}
