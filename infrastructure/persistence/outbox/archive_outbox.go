// Package outbox archives alert records off the engine's hot path.
package outbox

import (
	"context"
	"sync"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"

	"go.uber.org/zap"
)

type pending struct {
	owner    string
	record   entities.AlertRecord
	attempts int
}

// ArchiveOutbox implements ports.AlertArchive by queueing saves and writing
// them to the wrapped archive from a background worker. Save never blocks
// the caller; when the queue is full the record is dropped and logged.
type ArchiveOutbox struct {
	store  ports.AlertArchive
	logger *zap.Logger

	// Configuration
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration

	queue   chan pending
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

// NewArchiveOutbox creates an outbox in front of store; call Start to run it
func NewArchiveOutbox(store ports.AlertArchive, capacity int, logger *zap.Logger) *ArchiveOutbox {
	return &ArchiveOutbox{
		store:      store,
		logger:     logger,
		maxRetries: 3,
		retryDelay: 200 * time.Millisecond,
		timeout:    5 * time.Second,
		queue:      make(chan pending, capacity),
		stopped:    make(chan struct{}),
	}
}

// Start begins the background processing of queued records
func (o *ArchiveOutbox) Start() {
	o.logger.Info("Starting archive outbox", zap.Int("capacity", cap(o.queue)))
	go o.processLoop()
}

// Stop closes the queue and waits until every queued record was attempted
func (o *ArchiveOutbox) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	<-o.stopped
	o.logger.Info("Archive outbox stopped")
}

// Save implements ports.AlertArchive
func (o *ArchiveOutbox) Save(_ context.Context, owner string, record entities.AlertRecord) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.logger.Warn("Archive outbox closed, dropping record", zap.Uint64("alertID", uint64(record.ID)))
		return nil
	}

	select {
	case o.queue <- pending{owner: owner, record: record}:
	default:
		o.logger.Warn("Archive outbox full, dropping record",
			zap.Uint64("alertID", uint64(record.ID)),
			zap.String("owner", owner),
		)
	}
	return nil
}

// List reads straight from the wrapped archive
func (o *ArchiveOutbox) List(ctx context.Context, query ports.IncidentQuery) ([]entities.AlertRecord, error) {
	return o.store.List(ctx, query)
}

// Pending returns the number of queued records
func (o *ArchiveOutbox) Pending() int {
	return len(o.queue)
}

func (o *ArchiveOutbox) processLoop() {
	defer close(o.stopped)
	for item := range o.queue {
		o.process(item)
	}
}

func (o *ArchiveOutbox) process(item pending) {
	delay := o.retryDelay
	for {
		item.attempts++
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		err := o.store.Save(ctx, item.owner, item.record)
		cancel()
		if err == nil {
			return
		}

		if item.attempts >= o.maxRetries {
			o.logger.Error("Giving up archiving record",
				zap.Uint64("alertID", uint64(item.record.ID)),
				zap.Int("attempts", item.attempts),
				zap.Error(err),
			)
			return
		}

		o.logger.Warn("Archiving record failed, retrying",
			zap.Uint64("alertID", uint64(item.record.ID)),
			zap.Int("attempt", item.attempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
		delay *= 2
	}
}
