// Package engine turns raw safety signals into a dispatched emergency.
//
// Signal sources (gesture, audio, manual panic) feed the Evaluator, which
// records every classified trigger in the Ledger and arms the Controller for
// urgent ones. When a countdown runs out the Dispatcher notifies the user's
// emergency contacts. All timing goes through a ports.Scheduler.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/config"
	"sentinel/domain/core/entities"
	"sentinel/domain/core/policy"
	"sentinel/domain/core/validators"
	"sentinel/domain/core/valueobjects"
	"sentinel/domain/events"
	"sentinel/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName     = "sentinel/engine"
	publishTimeout = 5 * time.Second
	eventQueueSize = 256
)

// Dependencies are the collaborators of an Engine. Publisher, Archive,
// Metrics, Confirmer and Logger are optional.
type Dependencies struct {
	Scheduler ports.Scheduler
	Location  ports.LocationFeed
	Audio     ports.AudioSource
	Gateway   ports.NotificationGateway
	Publisher ports.EventPublisher
	Archive   ports.AlertArchive
	Metrics   ports.Metrics
	Confirmer policy.Confirmer
	Logger    *zap.Logger
}

// Engine is the explicit context that owns the confirmation state, the
// ledger and every signal source. It is safe for concurrent use.
type Engine struct {
	cfg       *config.DomainConfig
	sched     ports.Scheduler
	location  ports.LocationFeed
	publisher ports.EventPublisher
	archive   ports.AlertArchive
	metrics   ports.Metrics
	confirmer policy.Confirmer
	validator *validators.ProfileValidator
	tracer    trace.Tracer
	logger    *zap.Logger

	ledger     *Ledger
	gesture    *GestureDetector
	audio      *AudioMonitor
	evaluator  *Evaluator
	controller *Controller
	dispatcher *Dispatcher

	mu        sync.RWMutex
	profile   entities.UserProfile
	active    bool
	battery   int
	connected bool

	listenersMu  sync.Mutex
	listeners    map[int]func()
	nextListener int

	// pending feeds the single publishing goroutine so events leave in
	// the order they were raised
	pending chan events.DomainEvent
	drained chan struct{}

	dispatches sync.WaitGroup
	closeMu    sync.Mutex
	closing    bool
	closed     bool
}

// New wires an engine. It starts inactive; call Activate with a valid
// profile to start protection.
func New(cfg *config.DomainConfig, deps Dependencies) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid domain config")
	}
	switch {
	case deps.Scheduler == nil:
		return nil, errors.NewValidationError("engine requires a scheduler")
	case deps.Location == nil:
		return nil, errors.NewValidationError("engine requires a location feed")
	case deps.Audio == nil:
		return nil, errors.NewValidationError("engine requires an audio source")
	case deps.Gateway == nil:
		return nil, errors.NewValidationError("engine requires a notification gateway")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Confirmer == nil {
		deps.Confirmer = policy.NewRandomConfirmer(0)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	profile := entities.DefaultProfile()
	e := &Engine{
		cfg:       cfg,
		sched:     deps.Scheduler,
		location:  deps.Location,
		publisher: deps.Publisher,
		archive:   deps.Archive,
		metrics:   deps.Metrics,
		confirmer: deps.Confirmer,
		validator: validators.NewProfileValidator(),
		tracer:    otel.Tracer(tracerName),
		logger:    deps.Logger.Named("engine"),
		profile:   profile,
		battery:   cfg.DefaultBatteryLevel,
		connected: true,
		listeners: make(map[int]func()),
	}

	e.ledger = NewLedger(e.sched, cfg.LedgerCapacity, cfg.AlertRetention, e)
	e.controller = NewController(e.sched, cfg.CountdownSeconds, cfg.CountdownTick, e, e.logger)
	e.evaluator = NewEvaluator(e.ledger, e.controller, e.location, e.metrics, e.logger)
	e.dispatcher = NewDispatcher(deps.Gateway, e.location, cfg.DispatchTimeout, cfg.MaxParallelSends, e.metrics, e.tracer, e.logger)
	e.gesture = NewGestureDetector(e.sched, cfg.TapWindow, cfg.TapsToTrigger, e.onTrigger)
	e.audio = NewAudioMonitor(
		e.sched,
		deps.Audio,
		cfg.AudioSampleInterval,
		policy.NewThresholdClassifier(cfg, profile.AudioSensitivity, e.confirmer),
		e.onTrigger,
		e.metrics,
		e.logger,
	)
	if e.publisher != nil {
		e.pending = make(chan events.DomainEvent, eventQueueSize)
		e.drained = make(chan struct{})
		go e.drainEvents()
	}
	return e, nil
}

func (e *Engine) onTrigger(event entities.TriggerEvent) {
	e.evaluator.Evaluate(event)
}

// Activate validates the profile and, if it is complete, turns on location
// tracking, audio detection and gesture detection. A rejected profile is
// recorded as an advisory alert and the engine stays as it was.
func (e *Engine) Activate(ctx context.Context, profile entities.UserProfile) (entities.AlertRecord, error) {
	_, span := e.tracer.Start(ctx, "engine.Activate")
	defer span.End()

	if err := e.validator.ValidateForArming(profile); err != nil {
		e.logger.Info("Activation rejected", zap.Error(err))
		return e.advisory(validators.MissingFieldsMessage), err
	}

	e.mu.Lock()
	e.profile = profile.Clone()
	e.active = true
	e.mu.Unlock()

	e.audio.SetClassifier(policy.NewThresholdClassifier(e.cfg, profile.AudioSensitivity, e.confirmer))
	e.location.SetContinuous(true)
	e.audio.Enable()

	e.logger.Info("Protection activated",
		zap.String("user", profile.Owner()),
		zap.Int("contacts", len(profile.ReachableContacts())),
		zap.String("sensitivity", string(profile.AudioSensitivity)),
	)
	record := e.ledger.Append(entities.AlertRecord{
		Message:  ActivatedMessage,
		Severity: valueobjects.SeveritySuccess,
		Location: e.location.Current(),
	})
	e.publish(events.NewProtectionActivated(profile.Owner(), len(profile.ReachableContacts()), e.sched.Now()))
	return record, nil
}

// UpdateProfile replaces the profile of an engine, e.g. after the profile
// file changed. An invalid profile is rejected and the previous one kept.
func (e *Engine) UpdateProfile(ctx context.Context, profile entities.UserProfile) error {
	if err := e.validator.ValidateForArming(profile); err != nil {
		e.advisory(validators.MissingFieldsMessage)
		return err
	}

	e.mu.Lock()
	e.profile = profile.Clone()
	active := e.active
	e.mu.Unlock()

	e.audio.SetClassifier(policy.NewThresholdClassifier(e.cfg, profile.AudioSensitivity, e.confirmer))
	if active {
		e.ledger.Append(entities.AlertRecord{
			Message:  ProfileUpdatedMessage,
			Severity: valueobjects.SeverityInfo,
			Location: e.location.Current(),
		})
	}
	return nil
}

// ArmManualPanic raises an urgent manual trigger
func (e *Engine) ArmManualPanic(ctx context.Context) (entities.AlertRecord, error) {
	if err := e.requireActive(); err != nil {
		return entities.AlertRecord{}, err
	}
	record, _ := e.evaluator.Evaluate(entities.NewManualEvent(e.sched.Now()))
	return record, nil
}

// RegisterTap feeds one tap to the gesture detector and reports whether it
// completed the gesture.
func (e *Engine) RegisterTap(ctx context.Context) (bool, error) {
	if err := e.requireActive(); err != nil {
		return false, err
	}
	triggered := e.gesture.RegisterTap()
	e.changed()
	return triggered, nil
}

// CancelCountdown stops a pending countdown. It reports false when nothing
// was pending, including when the countdown already dispatched.
func (e *Engine) CancelCountdown(ctx context.Context) bool {
	return e.controller.Cancel()
}

// ToggleAudioDetection flips audio sampling and returns the new state
func (e *Engine) ToggleAudioDetection(ctx context.Context) (bool, error) {
	if err := e.requireActive(); err != nil {
		return false, err
	}
	on := e.audio.Toggle()
	e.logger.Info("Audio detection toggled", zap.Bool("enabled", on))
	e.changed()
	return on, nil
}

// ShareLocationNow records and publishes the current location without
// arming anything.
func (e *Engine) ShareLocationNow(ctx context.Context) (entities.AlertRecord, error) {
	if err := e.requireActive(); err != nil {
		return entities.AlertRecord{}, err
	}
	loc := e.location.Current()
	record := e.ledger.Append(entities.AlertRecord{
		Message:  LocationSharedMessage,
		Severity: valueobjects.SeverityInfo,
		Location: loc,
	})
	e.publish(events.NewLocationShared(e.Profile().Owner(), loc, e.sched.Now()))
	return record, nil
}

// SetIndicators stores the battery and connectivity values reported by the
// host. They are passed through to snapshots untouched.
func (e *Engine) SetIndicators(battery int, connected bool) error {
	if battery < 0 || battery > 100 {
		return errors.NewValidationError(fmt.Sprintf("battery level %d out of range", battery))
	}
	e.mu.Lock()
	e.battery = battery
	e.connected = connected
	e.mu.Unlock()
	e.changed()
	return nil
}

// Profile returns a copy of the current profile
func (e *Engine) Profile() entities.UserProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile.Clone()
}

// Active reports whether protection is on
func (e *Engine) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// State returns the confirmation state
func (e *Engine) State() ConfirmationState {
	return e.controller.State()
}

// Alerts returns the ledger, newest first
func (e *Engine) Alerts() []entities.AlertRecord {
	return e.ledger.List()
}

// Subscribe registers fn to be called after every observable change. fn
// must not block. The returned function unregisters it.
func (e *Engine) Subscribe(fn func()) func() {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.nextListener++
	id := e.nextListener
	e.listeners[id] = fn
	return func() {
		e.listenersMu.Lock()
		defer e.listenersMu.Unlock()
		delete(e.listeners, id)
	}
}

// Close stops every timer the engine owns, waits for dispatches already
// handed to the gateway and flushes queued events. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	e.closeMu.Lock()
	if e.closing {
		e.closeMu.Unlock()
		return
	}
	e.closing = true
	e.closeMu.Unlock()

	e.mu.Lock()
	e.active = false
	e.mu.Unlock()

	e.audio.Disable()
	e.controller.Stop()
	e.gesture.Reset()
	e.dispatches.Wait()
	e.ledger.Clear()
	e.location.SetContinuous(false)

	e.closeMu.Lock()
	e.closed = true
	if e.pending != nil {
		close(e.pending)
	}
	e.closeMu.Unlock()
	if e.drained != nil {
		<-e.drained
	}
}

func (e *Engine) requireActive() error {
	if e.Active() {
		return nil
	}
	e.advisory(NotActiveMessage)
	return errors.NewProtectionInactiveError(NotActiveMessage)
}

func (e *Engine) advisory(message string) entities.AlertRecord {
	return e.ledger.Append(entities.AlertRecord{
		Message:  message,
		Severity: valueobjects.SeverityAdvisory,
		Location: e.location.Current(),
	})
}

func (e *Engine) changed() {
	e.listenersMu.Lock()
	fns := make([]func(), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// publish queues an event without blocking the caller. Events raised after
// Close, or while the queue is full, are dropped.
func (e *Engine) publish(event events.DomainEvent) {
	if e.publisher == nil {
		return
	}
	e.closeMu.Lock()
	defer e.closeMu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.pending <- event:
	default:
		e.logger.Warn("Event queue full, dropping event", zap.String("event_type", event.GetEventType()))
	}
}

func (e *Engine) drainEvents() {
	defer close(e.drained)
	for event := range e.pending {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := e.publisher.Publish(ctx, event)
		cancel()
		if err != nil {
			e.logger.Warn("Failed to publish event",
				zap.String("event_type", event.GetEventType()),
				zap.Error(err),
			)
		}
	}
}

// RecordAppended implements LedgerObserver
func (e *Engine) RecordAppended(record entities.AlertRecord) {
	e.metrics.LedgerSize(e.ledger.Len())
	if e.archive != nil {
		if err := e.archive.Save(context.Background(), e.Profile().Owner(), record); err != nil {
			e.logger.Warn("Failed to archive alert", zap.Uint64("alert_id", uint64(record.ID)), zap.Error(err))
		}
	}
	e.changed()
}

// RecordRemoved implements LedgerObserver
func (e *Engine) RecordRemoved(id entities.AlertID, reason string) {
	e.metrics.LedgerSize(e.ledger.Len())
	e.logger.Debug("Alert left ledger", zap.Uint64("alert_id", uint64(id)), zap.String("reason", reason))
	e.changed()
}

// CountdownArmed implements CountdownObserver
func (e *Engine) CountdownArmed(state ConfirmationState, source valueobjects.TriggerSource) {
	e.metrics.CountdownArmed()
	e.logger.Info("Countdown armed",
		zap.String("cycle_id", state.Cycle.String()),
		zap.Stringer("source", source),
		zap.Time("deadline", state.Deadline),
	)
	e.publish(events.NewCountdownArmed(state.Cycle, source.String(), state.Remaining, state.Deadline, e.sched.Now()))
	e.changed()
}

// CountdownTicked implements CountdownObserver
func (e *Engine) CountdownTicked(state ConfirmationState) {
	e.changed()
}

// CountdownExpired implements CountdownObserver. It is the only path that
// dispatches. Tracking goes continuous at once; the gateway fan-out runs off
// the scheduler so other timers keep firing while contacts are notified.
func (e *Engine) CountdownExpired(cycle valueobjects.CycleID) {
	profile := e.Profile()
	if !e.location.Continuous() {
		e.location.SetContinuous(true)
	}

	e.closeMu.Lock()
	if e.closing {
		e.closeMu.Unlock()
		e.logger.Warn("Countdown expired during shutdown, not dispatching", zap.String("cycle_id", cycle.String()))
		return
	}
	e.dispatches.Add(1)
	e.closeMu.Unlock()

	go func() {
		defer e.dispatches.Done()
		report := e.dispatcher.Dispatch(context.Background(), cycle, profile)
		e.dispatchFinished(cycle, profile, report)
	}()
}

// dispatchFinished records the outcome of a dispatch. The dispatched event
// is queued before the final record, so once that record is visible the
// event is ahead of anything raised later.
func (e *Engine) dispatchFinished(cycle valueobjects.CycleID, profile entities.UserProfile, report DispatchReport) {
	now := e.sched.Now()

	for _, f := range report.Failures {
		cause := stderrors.Unwrap(f.Err)
		if cause == nil {
			cause = f.Err
		}
		e.ledger.Append(entities.AlertRecord{
			Message:  fmt.Sprintf(deliveryFailedFormat, f.Contact.DisplayName(), cause),
			Severity: valueobjects.SeverityAdvisory,
			Location: report.Location,
		})
		e.publish(events.NewContactNotifyFailed(cycle, f.Contact.DisplayName(), cause.Error(), now))
	}

	e.publish(events.NewEmergencyDispatched(cycle, profile.Owner(), report.Location, report.Delivered, len(report.Failures), now))
	e.metrics.CountdownResolved(ports.OutcomeDispatched)
	e.ledger.Append(entities.AlertRecord{
		Message:  DispatchedMessage,
		Severity: valueobjects.SeverityUrgent,
		Location: report.Location,
	})
}

// CountdownCancelled implements CountdownObserver
func (e *Engine) CountdownCancelled(cycle valueobjects.CycleID, remaining int) {
	e.logger.Info("Countdown cancelled by user",
		zap.String("cycle_id", cycle.String()),
		zap.Int("remaining", remaining),
	)
	e.ledger.Append(entities.AlertRecord{
		Message:  CancelledMessage,
		Severity: valueobjects.SeverityInfo,
		Location: e.location.Current(),
	})
	e.metrics.CountdownResolved(ports.OutcomeCancelled)
	e.publish(events.NewCountdownCancelled(cycle, remaining, e.sched.Now()))
}

type nopMetrics struct{}

func (nopMetrics) TriggerClassified(valueobjects.TriggerSource, valueobjects.Severity) {}
func (nopMetrics) CountdownArmed()                                                     {}
func (nopMetrics) CountdownResolved(string)                                            {}
func (nopMetrics) NotificationSent(bool, time.Duration)                                {}
func (nopMetrics) LedgerSize(int)                                                      {}
func (nopMetrics) AudioLevel(float64)                                                  {}
