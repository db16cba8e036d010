// Package observability wires metrics and tracing for the engine and the
// HTTP surfaces.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/valueobjects"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// It implements ports.Metrics.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Engine metrics
	Triggers        *prometheus.CounterVec
	CountdownsArmed prometheus.Counter
	Countdowns      *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	NotifyLatency   prometheus.Histogram
	LedgerRecords   prometheus.Gauge
	AudioLevelGauge prometheus.Gauge
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_total",
				Help:      "Trigger candidates by source and severity",
			},
			[]string{"source", "severity"},
		),
		CountdownsArmed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "countdowns_armed_total",
				Help:      "Confirmation countdowns started",
			},
		),
		Countdowns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "countdowns_resolved_total",
				Help:      "Confirmation countdowns by outcome",
			},
			[]string{"outcome"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Contact notifications by result",
			},
			[]string{"result"},
		),
		NotifyLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_duration_seconds",
				Help:      "Time taken to notify one contact",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
			},
		),
		LedgerRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_records",
				Help:      "Records currently visible in the alert ledger",
			},
		),
		AudioLevelGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "audio_level",
				Help:      "Last sampled ambient audio level",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Triggers,
		c.CountdownsArmed,
		c.Countdowns,
		c.Notifications,
		c.NotifyLatency,
		c.LedgerRecords,
		c.AudioLevelGauge,
	)
	return c
}

// TriggerClassified implements ports.Metrics
func (c *Collector) TriggerClassified(source valueobjects.TriggerSource, severity valueobjects.Severity) {
	c.Triggers.WithLabelValues(source.String(), severity.String()).Inc()
}

// CountdownArmed implements ports.Metrics
func (c *Collector) CountdownArmed() {
	c.CountdownsArmed.Inc()
}

// CountdownResolved implements ports.Metrics
func (c *Collector) CountdownResolved(outcome string) {
	c.Countdowns.WithLabelValues(outcome).Inc()
}

// NotificationSent implements ports.Metrics
func (c *Collector) NotificationSent(delivered bool, latency time.Duration) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	c.Notifications.WithLabelValues(result).Inc()
	c.NotifyLatency.Observe(latency.Seconds())
}

// LedgerSize implements ports.Metrics
func (c *Collector) LedgerSize(n int) {
	c.LedgerRecords.Set(float64(n))
}

// AudioLevel implements ports.Metrics
func (c *Collector) AudioLevel(level float64) {
	c.AudioLevelGauge.Set(level)
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per chi route pattern
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Fanout forwards every observation to several sinks
type Fanout []ports.Metrics

func (f Fanout) TriggerClassified(source valueobjects.TriggerSource, severity valueobjects.Severity) {
	for _, m := range f {
		m.TriggerClassified(source, severity)
	}
}

func (f Fanout) CountdownArmed() {
	for _, m := range f {
		m.CountdownArmed()
	}
}

func (f Fanout) CountdownResolved(outcome string) {
	for _, m := range f {
		m.CountdownResolved(outcome)
	}
}

func (f Fanout) NotificationSent(delivered bool, latency time.Duration) {
	for _, m := range f {
		m.NotificationSent(delivered, latency)
	}
}

func (f Fanout) LedgerSize(n int) {
	for _, m := range f {
		m.LedgerSize(n)
	}
}

func (f Fanout) AudioLevel(level float64) {
	for _, m := range f {
		m.AudioLevel(level)
	}
}
