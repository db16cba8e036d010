package engine

import (
	"sync"
	"testing"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/valueobjects"
	"sentinel/infrastructure/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestController(sched ports.Scheduler) (*Controller, *countdownRecorder) {
	rec := &countdownRecorder{}
	return NewController(sched, 3, time.Second, rec, zap.NewNop()), rec
}

func TestController_DispatchesOnceAtDeadline(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	c, rec := newTestController(clock)

	cycle, armed := c.Arm(valueobjects.SourceManual)
	require.True(t, armed)
	assert.Equal(t, Pending(cycle, 3, epoch.Add(3*time.Second)), c.State())

	clock.Advance(ms(2999))
	assert.Zero(t, rec.dispatches())
	assert.Equal(t, []int{2, 1}, rec.ticks)

	clock.Advance(ms(1))
	assert.Equal(t, []valueobjects.CycleID{cycle}, rec.expired)
	assert.Equal(t, Idle(), c.State())
	assert.Zero(t, clock.Pending(), "ticker is cancelled on exit")

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, rec.dispatches())
}

func TestController_ArmIsIdempotentWhilePending(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	c, rec := newTestController(clock)

	first, _ := c.Arm(valueobjects.SourceGesture)
	clock.Advance(ms(1500))

	_, armed := c.Arm(valueobjects.SourceManual)
	assert.False(t, armed)
	_, armed = c.Arm(valueobjects.SourceAudio)
	assert.False(t, armed)

	state := c.State()
	assert.Equal(t, first, state.Cycle)
	assert.Equal(t, 2, state.Remaining, "remaining time is not reset")
	assert.Equal(t, 1, rec.armed)

	clock.Advance(ms(1500))
	assert.Equal(t, 1, rec.dispatches())
	assert.Equal(t, epoch.Add(3*time.Second), clock.Now())
}

// Property: cancelling at any point of the countdown, including right
// before the final tick, never dispatches.
func TestController_CancelAtEveryTickNeverDispatches(t *testing.T) {
	for _, at := range []int{0, 1, 500, 999, 1000, 1001, 1500, 1999, 2000, 2001, 2500, 2999} {
		clock := scheduler.NewManual(epoch)
		c, rec := newTestController(clock)
		c.Arm(valueobjects.SourceManual)

		clock.Advance(ms(at))
		require.True(t, c.State().IsPending(), "at=%d", at)
		assert.True(t, c.Cancel(), "at=%d", at)

		clock.Advance(time.Minute)
		assert.Zero(t, rec.dispatches(), "at=%d", at)
		assert.Equal(t, Idle(), c.State())
		assert.Zero(t, clock.Pending())
	}
}

func TestController_CancelReportsRemaining(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	c, rec := newTestController(clock)

	c.Arm(valueobjects.SourceManual)
	clock.Advance(ms(1200))
	assert.True(t, c.Cancel())
	assert.False(t, c.Cancel(), "second cancel is ignored")
	assert.Equal(t, []int{2}, rec.cancelled)
}

func TestController_CancelAfterDispatchIsNoop(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	c, rec := newTestController(clock)

	c.Arm(valueobjects.SourceManual)
	clock.Advance(3 * time.Second)
	require.Equal(t, 1, rec.dispatches())

	assert.False(t, c.Cancel())
	assert.Empty(t, rec.cancelled)
}

func TestController_FreshArmStartsNewCycle(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	c, rec := newTestController(clock)

	first, _ := c.Arm(valueobjects.SourceManual)
	clock.Advance(time.Second)
	c.Cancel()

	second, armed := c.Arm(valueobjects.SourceManual)
	require.True(t, armed)
	assert.False(t, first.Equals(second))

	clock.Advance(3 * time.Second)
	assert.Equal(t, []valueobjects.CycleID{second}, rec.expired)
}

func TestController_StaleTickIsIgnored(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	c, rec := newTestController(clock)

	first, _ := c.Arm(valueobjects.SourceManual)
	c.Cancel()
	c.Arm(valueobjects.SourceManual)

	clock.Advance(5 * time.Second)
	c.onTick(first)
	assert.Equal(t, 1, rec.dispatches())
	assert.NotContains(t, rec.expired, first)
}

// stubScheduler hands out its callbacks so tests can fire them late
type stubScheduler struct {
	mu    sync.Mutex
	now   time.Time
	every []func()
}

type stubHandle struct{}

func (stubHandle) Stop() bool { return true }

func (s *stubScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *stubScheduler) set(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = epoch.Add(d)
}

func (s *stubScheduler) After(time.Duration, func()) ports.Handle { return stubHandle{} }

func (s *stubScheduler) Every(_ time.Duration, fn func()) ports.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.every = append(s.every, fn)
	return stubHandle{}
}

func TestController_LateTicksUseAbsoluteDeadline(t *testing.T) {
	sched := &stubScheduler{now: epoch}
	c, rec := newTestController(sched)
	c.Arm(valueobjects.SourceManual)
	require.Len(t, sched.every, 1)
	tick := sched.every[0]

	// first tick lands 1.6s late: one second left, not one tick's worth fewer
	sched.set(ms(2600))
	tick()
	assert.Equal(t, 1, c.State().Remaining)
	assert.Zero(t, rec.dispatches())

	// a tick arriving early never dispatches before the deadline
	sched.set(ms(2999))
	tick()
	assert.Zero(t, rec.dispatches())

	sched.set(ms(3400))
	tick()
	assert.Equal(t, 1, rec.dispatches())

	sched.set(ms(4400))
	tick()
	assert.Equal(t, 1, rec.dispatches(), "ticks after the timeout are stale")
}

func TestController_ConcurrentCancelAndTimeoutDispatchAtMostOnce(t *testing.T) {
	for i := 0; i < 200; i++ {
		sched := &stubScheduler{now: epoch}
		c, rec := newTestController(sched)
		c.Arm(valueobjects.SourceManual)
		tick := sched.every[0]
		sched.set(3 * time.Second)

		var wg sync.WaitGroup
		var cancelled bool
		wg.Add(3)
		go func() { defer wg.Done(); tick() }()
		go func() { defer wg.Done(); tick() }()
		go func() { defer wg.Done(); cancelled = c.Cancel() }()
		wg.Wait()

		if cancelled {
			assert.Zero(t, rec.dispatches())
		} else {
			assert.Equal(t, 1, rec.dispatches())
		}
	}
}
