package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/policy"

	"go.uber.org/zap"
)

// AudioMonitor samples ambient audio on a fixed period while enabled and
// emits classified trigger events.
type AudioMonitor struct {
	mu         sync.Mutex
	sched      ports.Scheduler
	source     ports.AudioSource
	interval   time.Duration
	classifier policy.Classifier
	enabled    bool
	ticker     ports.Handle
	level      float64

	emit    func(entities.TriggerEvent)
	metrics ports.Metrics
	logger  *zap.Logger
}

// NewAudioMonitor creates a disabled monitor
func NewAudioMonitor(
	sched ports.Scheduler,
	source ports.AudioSource,
	interval time.Duration,
	classifier policy.Classifier,
	emit func(entities.TriggerEvent),
	metrics ports.Metrics,
	logger *zap.Logger,
) *AudioMonitor {
	return &AudioMonitor{
		sched:      sched,
		source:     source,
		interval:   interval,
		classifier: classifier,
		emit:       emit,
		metrics:    metrics,
		logger:     logger,
	}
}

// Enable starts periodic sampling; it is a no-op when already enabled
func (a *AudioMonitor) Enable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled {
		return
	}
	a.enabled = true
	a.ticker = a.sched.Every(a.interval, a.sample)
}

// Disable stops sampling. The last level stays visible.
func (a *AudioMonitor) Disable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled {
		return
	}
	a.enabled = false
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
}

// Toggle flips sampling and returns the new state
func (a *AudioMonitor) Toggle() bool {
	if a.Enabled() {
		a.Disable()
		return false
	}
	a.Enable()
	return true
}

// Enabled reports whether the monitor is sampling
func (a *AudioMonitor) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Level returns the most recent sampled level
func (a *AudioMonitor) Level() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.level
}

// SetClassifier swaps the detection policy, e.g. after a sensitivity change
func (a *AudioMonitor) SetClassifier(c policy.Classifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.classifier = c
}

func (a *AudioMonitor) sample() {
	ctx, cancel := context.WithTimeout(context.Background(), a.interval)
	defer cancel()

	level, err := a.source.Sample(ctx)
	if err != nil {
		a.logger.Warn("Audio sample failed, skipping tick", zap.Error(err))
		return
	}
	level = math.Max(0, math.Min(100, level))

	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return
	}
	a.level = level
	classifier := a.classifier
	a.mu.Unlock()

	a.metrics.AudioLevel(level)

	if severity, ok := classifier.Classify(level); ok {
		a.emit(entities.NewAudioEvent(level, severity, a.sched.Now()))
	}
}
