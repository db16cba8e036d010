// Package location provides location feeds for the engine.
package location

import (
	"math/rand"
	"sync"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/valueobjects"

	"go.uber.org/zap"
)

// Default starting point of the simulated feed
const (
	DefaultLatitude  = 19.0760
	DefaultLongitude = 72.8777
	DefaultAddress   = "Mumbai, Maharashtra"

	// DefaultJitter is the full width of one random-walk step in degrees
	DefaultJitter = 0.001
)

// SimulatedFeed random-walks the last known position while continuous mode
// is on. Real positions can be pushed with Update at any time.
type SimulatedFeed struct {
	mu       sync.RWMutex
	sched    ports.Scheduler
	interval time.Duration
	jitter   float64
	rng      *rand.Rand
	current  valueobjects.Location
	ticker   ports.Handle
	logger   *zap.Logger
}

// NewSimulatedFeed creates a feed starting at start; seed 0 uses the clock
func NewSimulatedFeed(sched ports.Scheduler, interval time.Duration, start valueobjects.Location, seed int64, logger *zap.Logger) *SimulatedFeed {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if start.UpdatedAt.IsZero() {
		start.UpdatedAt = sched.Now()
	}
	return &SimulatedFeed{
		sched:    sched,
		interval: interval,
		jitter:   DefaultJitter,
		rng:      rand.New(rand.NewSource(seed)),
		current:  start,
		logger:   logger,
	}
}

// DefaultStart returns the default starting location
func DefaultStart() valueobjects.Location {
	return valueobjects.Location{
		Latitude:  DefaultLatitude,
		Longitude: DefaultLongitude,
		Address:   DefaultAddress,
	}
}

// Current implements ports.LocationFeed
func (f *SimulatedFeed) Current() valueobjects.Location {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// SetContinuous implements ports.LocationFeed
func (f *SimulatedFeed) SetContinuous(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case on && f.ticker == nil:
		f.ticker = f.sched.Every(f.interval, f.step)
		f.logger.Info("Location tracking started", zap.Duration("interval", f.interval))
	case !on && f.ticker != nil:
		f.ticker.Stop()
		f.ticker = nil
		f.logger.Info("Location tracking stopped")
	}
}

// Continuous implements ports.LocationFeed
func (f *SimulatedFeed) Continuous() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ticker != nil
}

// Update replaces the position with a real fix
func (f *SimulatedFeed) Update(loc valueobjects.Location) {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = f.sched.Now()
	}
	f.mu.Lock()
	f.current = loc
	f.mu.Unlock()
}

func (f *SimulatedFeed) step() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ticker == nil {
		return
	}
	dLat := (f.rng.Float64() - 0.5) * f.jitter
	dLng := (f.rng.Float64() - 0.5) * f.jitter
	f.current = f.current.Moved(dLat, dLng, f.sched.Now())
}
