// Package audio provides ambient audio level sources.
package audio

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"sentinel/pkg/errors"
)

// SimulatedSource returns a uniformly random level in [0, 100) per sample,
// the way the demo app fakes a microphone.
type SimulatedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSource creates a simulated source; seed 0 uses the clock
func NewSimulatedSource(seed int64) *SimulatedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedSource{rng: rand.New(rand.NewSource(seed))}
}

// Sample implements ports.AudioSource
func (s *SimulatedSource) Sample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() * 100, nil
}

// PushedSource holds the last level reported by an external meter, for
// example a phone posting readings to the REST API.
type PushedSource struct {
	mu      sync.RWMutex
	level   float64
	at      time.Time
	maxAge  time.Duration
	now     func() time.Time
	started bool
}

// NewPushedSource creates a pushed source. Readings older than maxAge are
// reported as unavailable; maxAge 0 keeps readings forever.
func NewPushedSource(maxAge time.Duration) *PushedSource {
	return &PushedSource{maxAge: maxAge, now: time.Now}
}

// Push records a reading
func (s *PushedSource) Push(level float64) error {
	if level < 0 || level > 100 {
		return errors.NewValidationError("audio level must be between 0 and 100")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	s.at = s.now()
	s.started = true
	return nil
}

// Sample implements ports.AudioSource
func (s *PushedSource) Sample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0, errors.NewUnavailableError("audio meter")
	}
	if s.maxAge > 0 && s.now().Sub(s.at) > s.maxAge {
		return 0, errors.NewUnavailableError("audio meter").WithCode("STALE_READING")
	}
	return s.level, nil
}
