// Package scheduler provides the clocks that drive the alerting engine.
//
// Loop runs every callback on one goroutine, so engine callbacks never race
// each other. Manual is a virtual clock for tests.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sentinel/application/ports"
	"sentinel/pkg/errors"

	"go.uber.org/zap"
)

const defaultQueueSize = 64

// Loop is a cooperative scheduler backed by wall-clock timers.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewLoop creates a loop; call Run to start executing callbacks
func NewLoop(logger *zap.Logger) *Loop {
	return &Loop{
		queue:  make(chan func(), defaultQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run executes queued callbacks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) {
	l.wg.Add(1)
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			l.Close()
			return
		case <-l.done:
			return
		case fn := <-l.queue:
			l.execute(fn)
		}
	}
}

// Close stops the loop. Pending timers are dropped when they fire.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Wait blocks until Run has returned
func (l *Loop) Wait() {
	l.wg.Wait()
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Scheduled callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

func (l *Loop) post(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Now implements ports.Scheduler
func (l *Loop) Now() time.Time {
	return time.Now()
}

// After implements ports.Scheduler
func (l *Loop) After(d time.Duration, fn func()) ports.Handle {
	h := &loopHandle{}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timer = time.AfterFunc(d, func() {
		l.post(func() {
			if h.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return h
}

// Every implements ports.Scheduler. Each run is scheduled against the
// original start time so the period does not drift; a run that lands more
// than one period late is logged and the missed runs are skipped.
func (l *Loop) Every(d time.Duration, fn func()) ports.Handle {
	h := &loopHandle{}
	start := time.Now()
	var n int64

	var arm func(next time.Time)
	arm = func(next time.Time) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.stopped.Load() {
			return
		}
		h.timer = time.AfterFunc(time.Until(next), func() {
			l.post(func() {
				if h.stopped.Load() {
					return
				}
				now := time.Now()
				n++
				if late := now.Sub(next); late > d {
					l.logger.Warn("Periodic timer overran",
						zap.Error(errors.NewSchedulerOverrunError("every", late)),
						zap.Duration("period", d),
					)
					n = int64(now.Sub(start) / d)
				}
				fn()
				arm(start.Add(time.Duration(n+1) * d))
			})
		})
	}
	arm(start.Add(d))
	return h
}

type loopHandle struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped atomic.Bool
}

func (h *loopHandle) Stop() bool {
	if !h.stopped.CompareAndSwap(false, true) {
		return false
	}
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()
	return true
}
