package engine

import (
	"sync"
	"time"

	"sentinel/application/ports"
	"sentinel/domain/core/entities"
)

// Reasons a record leaves the ledger
const (
	RemovedEvicted = "evicted"
	RemovedExpired = "expired"
)

// LedgerObserver is told about every change to the ledger. Calls happen
// outside the ledger lock.
type LedgerObserver interface {
	RecordAppended(record entities.AlertRecord)
	RecordRemoved(id entities.AlertID, reason string)
}

type ledgerEntry struct {
	record entities.AlertRecord
	expiry ports.Handle
}

// Ledger is the bounded, newest-first record of alerts. Every record
// expires on its own after the retention window; capacity is enforced on
// every append.
type Ledger struct {
	mu        sync.Mutex
	sched     ports.Scheduler
	capacity  int
	retention time.Duration
	lastID    entities.AlertID
	entries   []ledgerEntry
	observer  LedgerObserver
}

// NewLedger creates an empty ledger; observer may be nil
func NewLedger(sched ports.Scheduler, capacity int, retention time.Duration, observer LedgerObserver) *Ledger {
	return &Ledger{
		sched:     sched,
		capacity:  capacity,
		retention: retention,
		entries:   make([]ledgerEntry, 0, capacity+1),
		observer:  observer,
	}
}

// Append stamps the record with the next ID and the current time, inserts it
// at the head and evicts the tail if the ledger is over capacity.
func (l *Ledger) Append(record entities.AlertRecord) entities.AlertRecord {
	l.mu.Lock()
	l.lastID++
	record.ID = l.lastID
	record.CreatedAt = l.sched.Now()

	id := record.ID
	entry := ledgerEntry{
		record: record,
		expiry: l.sched.After(l.retention, func() { l.expire(id) }),
	}
	l.entries = append([]ledgerEntry{entry}, l.entries...)

	var evicted []entities.AlertID
	for len(l.entries) > l.capacity {
		tail := l.entries[len(l.entries)-1]
		tail.expiry.Stop()
		l.entries = l.entries[:len(l.entries)-1]
		evicted = append(evicted, tail.record.ID)
	}
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.RecordAppended(record)
		for _, id := range evicted {
			l.observer.RecordRemoved(id, RemovedEvicted)
		}
	}
	return record
}

// expire removes a record by identity; a record already evicted is ignored
func (l *Ledger) expire(id entities.AlertID) {
	l.mu.Lock()
	removed := false
	for i, e := range l.entries {
		if e.record.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			removed = true
			break
		}
	}
	l.mu.Unlock()

	if removed && l.observer != nil {
		l.observer.RecordRemoved(id, RemovedExpired)
	}
}

// List returns a copy of the ledger, newest first. Records past their
// retention are never returned, even if their expiry callback is late.
func (l *Ledger) List() []entities.AlertRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.sched.Now()
	out := make([]entities.AlertRecord, 0, len(l.entries))
	for _, e := range l.entries {
		if now.Before(e.record.ExpiresAt(l.retention)) {
			out = append(out, e.record)
		}
	}
	return out
}

// Len returns the number of records currently held
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops every record and cancels their expiry timers
func (l *Ledger) Clear() {
	l.mu.Lock()
	for _, e := range l.entries {
		e.expiry.Stop()
	}
	l.entries = l.entries[:0]
	l.mu.Unlock()
}
