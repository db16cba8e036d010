package scheduler

import (
	"sort"
	"sync"
	"time"

	"sentinel/application/ports"
)

// Manual is a virtual clock. Time only moves when Advance is called, and
// due callbacks run on the caller's goroutine in due order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	owner  *Manual
	due    time.Time
	period time.Duration
	seq    uint64
	fn     func()
	active bool
}

// NewManual creates a virtual clock starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements ports.Scheduler
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After implements ports.Scheduler
func (m *Manual) After(d time.Duration, fn func()) ports.Handle {
	return m.add(d, 0, fn)
}

// Every implements ports.Scheduler
func (m *Manual) Every(d time.Duration, fn func()) ports.Handle {
	return m.add(d, d, fn)
}

func (m *Manual) add(d, period time.Duration, fn func()) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, due: m.now.Add(d), period: period, seq: m.seq, fn: fn, active: true}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, running every callback that falls
// due on the way. Callbacks scheduled by callbacks run too if they fall due
// before the target time.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.due
		if t.period > 0 {
			m.seq++
			t.seq = m.seq
			t.due = t.due.Add(t.period)
		} else {
			t.active = false
			m.remove(t)
		}
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

// Pending returns the number of scheduled callbacks
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due.Equal(m.timers[j].due) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].due.Before(m.timers[j].due)
	})
	if len(m.timers) == 0 || m.timers[0].due.After(target) {
		return nil
	}
	return m.timers[0]
}

func (m *Manual) remove(t *manualTimer) {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

func (t *manualTimer) Stop() bool {
	m := t.owner
	m.mu.Lock()
	defer m.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	m.remove(t)
	return true
}
