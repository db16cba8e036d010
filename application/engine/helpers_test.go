package engine

import (
	"context"
	"sync"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	"sentinel/infrastructure/scheduler"
)

var epoch = time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// since returns how far the clock has moved from epoch
func since(clock *scheduler.Manual) time.Duration { return clock.Now().Sub(epoch) }

type fakeFeed struct {
	mu         sync.Mutex
	loc        valueobjects.Location
	continuous bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{loc: valueobjects.NewLocation(19.076, 72.8777, "Mumbai, Maharashtra", epoch)}
}

func (f *fakeFeed) Current() valueobjects.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loc
}

func (f *fakeFeed) SetContinuous(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continuous = on
}

func (f *fakeFeed) Continuous() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.continuous
}

// scriptedAudio returns its levels in order, then zero
type scriptedAudio struct {
	mu     sync.Mutex
	levels []float64
	err    error
}

func (s *scriptedAudio) Sample(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	if len(s.levels) == 0 {
		return 0, nil
	}
	level := s.levels[0]
	s.levels = s.levels[1:]
	return level, nil
}

// recordingGateway records sends and fails for the listed phones
type recordingGateway struct {
	mu     sync.Mutex
	sent   []string
	fail   map[string]error
	sentAt []time.Time
	clock  ports.Scheduler
}

func (g *recordingGateway) Send(_ context.Context, contact entities.EmergencyContact, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.fail[contact.Phone]; ok {
		return err
	}
	g.sent = append(g.sent, contact.Phone+": "+message)
	if g.clock != nil {
		g.sentAt = append(g.sentAt, g.clock.Now())
	}
	return nil
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

// countdownRecorder is a CountdownObserver that counts transitions
type countdownRecorder struct {
	mu        sync.Mutex
	armed     int
	ticks     []int
	expired   []valueobjects.CycleID
	cancelled []int
	onExpire  func()
}

func (r *countdownRecorder) CountdownArmed(ConfirmationState, valueobjects.TriggerSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed++
}

func (r *countdownRecorder) CountdownTicked(s ConfirmationState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, s.Remaining)
}

func (r *countdownRecorder) CountdownExpired(cycle valueobjects.CycleID) {
	r.mu.Lock()
	r.expired = append(r.expired, cycle)
	fn := r.onExpire
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *countdownRecorder) CountdownCancelled(_ valueobjects.CycleID, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, remaining)
}

func (r *countdownRecorder) dispatches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expired)
}
