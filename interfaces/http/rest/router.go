// Package rest exposes the engine over HTTP.
package rest

import (
	"net/http"

	"sentinel/application/commands/bus"
	querybus "sentinel/application/queries/bus"
	"sentinel/interfaces/http/rest/handlers"
	"sentinel/interfaces/http/rest/middleware"
	"sentinel/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig selects the optional parts of the router
type RouterConfig struct {
	// Authenticate guards /api/v1; nil leaves the API open
	Authenticate   func(http.Handler) http.Handler
	AllowedOrigins []string
	EnableCORS     bool
	// Metrics wraps every route and serves /metrics when set
	Metrics MetricsProvider
	// Stream serves GET /api/v1/stream when set
	Stream http.HandlerFunc
	// HistoryOnly mounts just the incident routes, for the Lambda
	HistoryOnly bool
	Debug       bool
}

// MetricsProvider is the HTTP side of the metrics collector
type MetricsProvider interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	config     RouterConfig
	errors     *errors.ErrorHandler
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		config:     config,
		errors:     errors.NewErrorHandler(logger, config.Debug),
		logger:     logger,
	}
}

// ErrorHandler returns the handler used to render errors
func (rt *Router) ErrorHandler() *errors.ErrorHandler {
	return rt.errors
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.config.Metrics != nil {
		router.Use(rt.config.Metrics.Middleware)
	}

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.config.Metrics != nil {
		router.Handle("/metrics", rt.config.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.config.Authenticate != nil {
			r.Use(rt.config.Authenticate)
		}

		r.Get("/incidents", handlers.NewIncidentHandler(rt.queryBus, rt.errors, rt.logger).ListIncidents)
		if rt.config.HistoryOnly {
			return
		}

		h := handlers.NewEngineHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
		r.Get("/snapshot", h.Snapshot)
		r.Post("/protection/activate", h.Activate)
		r.Put("/profile", h.UpdateProfile)
		r.Post("/panic", h.Panic)
		r.Post("/taps", h.Tap)
		r.Post("/countdown/cancel", h.CancelCountdown)
		r.Post("/audio/toggle", h.ToggleAudio)
		r.Post("/audio/level", h.ReportAudioLevel)
		r.Post("/location/share", h.ShareLocation)
		r.Put("/location", h.UpdateLocation)
		r.Put("/indicators", h.SetIndicators)

		if rt.config.Stream != nil {
			r.Get("/stream", rt.config.Stream)
		}
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "Route not found")
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
