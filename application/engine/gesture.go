package engine

import (
	"sync"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
)

// GestureDetector recognises a burst of taps inside a sliding window.
type GestureDetector struct {
	mu        sync.Mutex
	sched     ports.Scheduler
	window    time.Duration
	needed    int
	pattern   []time.Time
	prunes    map[uint64]ports.Handle
	nextPrune uint64
	emit      func(entities.TriggerEvent)
}

// NewGestureDetector creates a detector that calls emit when needed taps
// land within window of each other.
func NewGestureDetector(sched ports.Scheduler, window time.Duration, needed int, emit func(entities.TriggerEvent)) *GestureDetector {
	return &GestureDetector{
		sched:  sched,
		window: window,
		needed: needed,
		prunes: make(map[uint64]ports.Handle),
		emit:   emit,
	}
}

// RegisterTap records a tap and reports whether it completed the gesture.
// Only taps younger than the window count; a tap exactly window old does not.
func (g *GestureDetector) RegisterTap() bool {
	now := g.sched.Now()

	g.mu.Lock()
	g.pattern = append(g.pattern, now)

	recent := 0
	for _, tap := range g.pattern {
		if now.Sub(tap) < g.window {
			recent++
		}
	}

	if recent >= g.needed {
		g.resetLocked()
		g.mu.Unlock()
		g.emit(entities.NewGestureEvent(now))
		return true
	}

	g.nextPrune++
	id := g.nextPrune
	g.prunes[id] = g.sched.After(g.window, func() { g.prune(id) })
	g.mu.Unlock()
	return false
}

func (g *GestureDetector) prune(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.prunes, id)
	now := g.sched.Now()
	kept := g.pattern[:0]
	for _, tap := range g.pattern {
		if now.Sub(tap) < g.window {
			kept = append(kept, tap)
		}
	}
	g.pattern = kept
}

// Pattern returns the taps currently held, oldest first
func (g *GestureDetector) Pattern() []time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]time.Time, len(g.pattern))
	copy(out, g.pattern)
	return out
}

// Reset forgets every tap and cancels outstanding prune timers
func (g *GestureDetector) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
}

func (g *GestureDetector) resetLocked() {
	for id, h := range g.prunes {
		h.Stop()
		delete(g.prunes, id)
	}
	g.pattern = nil
}
