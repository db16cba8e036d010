package engine

import (
	"math"
	"sync"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/valueobjects"
	"sentinel/pkg/errors"

	"go.uber.org/zap"
)

// CountdownObserver receives the transitions of the confirmation controller.
// Calls happen outside the controller lock, after the state has changed.
type CountdownObserver interface {
	CountdownArmed(state ConfirmationState, source valueobjects.TriggerSource)
	CountdownTicked(state ConfirmationState)
	CountdownExpired(cycle valueobjects.CycleID)
	CountdownCancelled(cycle valueobjects.CycleID, remaining int)
}

// Controller owns the single confirmation countdown of the engine.
//
// Idle --arm--> Pending(n) --tick--> Pending(n-1) ... --timeout--> Idle
// and Pending(n) --cancel--> Idle. Only the timeout transition reaches the
// observer's CountdownExpired, and only once per cycle: the state leaves
// Pending under the lock before the observer is called.
type Controller struct {
	mu       sync.Mutex
	sched    ports.Scheduler
	seconds  int
	tick     time.Duration
	state    ConfirmationState
	ticker   ports.Handle
	lastTick time.Time
	observer CountdownObserver
	logger   *zap.Logger
}

// NewController creates an idle controller
func NewController(sched ports.Scheduler, seconds int, tick time.Duration, observer CountdownObserver, logger *zap.Logger) *Controller {
	return &Controller{
		sched:    sched,
		seconds:  seconds,
		tick:     tick,
		state:    Idle(),
		observer: observer,
		logger:   logger,
	}
}

// State returns the current confirmation state
func (c *Controller) State() ConfirmationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Arm starts a countdown if the controller is idle. While a countdown is
// pending it does nothing and returns false; the running cycle keeps its
// deadline.
func (c *Controller) Arm(source valueobjects.TriggerSource) (valueobjects.CycleID, bool) {
	c.mu.Lock()
	if c.state.IsPending() {
		c.mu.Unlock()
		return valueobjects.CycleID{}, false
	}

	now := c.sched.Now()
	cycle := valueobjects.NewCycleID()
	c.state = Pending(cycle, c.seconds, now.Add(time.Duration(c.seconds)*c.tick))
	c.lastTick = now
	c.ticker = c.sched.Every(c.tick, func() { c.onTick(cycle) })
	state := c.state
	c.mu.Unlock()

	c.observer.CountdownArmed(state, source)
	return cycle, true
}

// onTick recomputes the remaining seconds from the absolute deadline, so a
// late or skipped tick never shifts the dispatch time.
func (c *Controller) onTick(cycle valueobjects.CycleID) {
	c.mu.Lock()
	if !c.state.IsPending() || !c.state.Cycle.Equals(cycle) {
		c.mu.Unlock()
		return
	}

	now := c.sched.Now()
	if late := now.Sub(c.lastTick) - c.tick; late > c.tick/2 {
		c.logger.Warn("Countdown tick overran",
			zap.Error(errors.NewSchedulerOverrunError("countdown", late)),
			zap.String("cycle_id", cycle.String()),
		)
	}
	c.lastTick = now

	remaining := c.remainingAt(now)
	if remaining > 0 {
		c.state.Remaining = remaining
		state := c.state
		c.mu.Unlock()
		c.observer.CountdownTicked(state)
		return
	}

	c.stopLocked()
	c.mu.Unlock()
	c.observer.CountdownExpired(cycle)
}

func (c *Controller) remainingAt(now time.Time) int {
	left := c.state.Deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(float64(left) / float64(c.tick)))
}

// Cancel returns a pending countdown to idle without dispatching. It reports
// whether there was a countdown to cancel.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	if !c.state.IsPending() {
		c.mu.Unlock()
		return false
	}
	cycle := c.state.Cycle
	remaining := c.state.Remaining
	c.stopLocked()
	c.mu.Unlock()

	c.observer.CountdownCancelled(cycle, remaining)
	return true
}

// Stop abandons any countdown without notifying the observer
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	c.state = Idle()
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}
