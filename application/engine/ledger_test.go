package engine

import (
	"fmt"
	"testing"
	"time"

	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	"sentinel/infrastructure/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerEvents struct {
	appended []entities.AlertID
	removed  map[entities.AlertID][]string
}

func (l *ledgerEvents) RecordAppended(r entities.AlertRecord) {
	l.appended = append(l.appended, r.ID)
}

func (l *ledgerEvents) RecordRemoved(id entities.AlertID, reason string) {
	if l.removed == nil {
		l.removed = make(map[entities.AlertID][]string)
	}
	l.removed[id] = append(l.removed[id], reason)
}

func info(msg string) entities.AlertRecord {
	return entities.AlertRecord{Message: msg, Severity: valueobjects.SeverityInfo}
}

func messages(records []entities.AlertRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Message
	}
	return out
}

func TestLedger_NewestFirstWithCapacity(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	obs := &ledgerEvents{}
	l := NewLedger(clock, 5, 8*time.Second, obs)

	for i := 1; i <= 7; i++ {
		l.Append(info(fmt.Sprintf("m%d", i)))
		assert.LessOrEqual(t, len(l.List()), 5)
		clock.Advance(100 * time.Millisecond)
	}

	assert.Equal(t, []string{"m7", "m6", "m5", "m4", "m3"}, messages(l.List()))
	assert.Equal(t, []string{RemovedEvicted}, obs.removed[1])
	assert.Equal(t, []string{RemovedEvicted}, obs.removed[2])
	assert.Equal(t, 5, clock.Pending(), "expiry timers of evicted records are cancelled")
}

func TestLedger_AssignsMonotonicIDsAndTimestamps(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	l := NewLedger(clock, 5, 8*time.Second, nil)

	first := l.Append(info("a"))
	clock.Advance(time.Second)
	second := l.Append(entities.AlertRecord{ID: 99, Message: "b", Severity: valueobjects.SeverityInfo})

	assert.Equal(t, entities.AlertID(1), first.ID)
	assert.Equal(t, entities.AlertID(2), second.ID, "caller supplied IDs are ignored")
	assert.Equal(t, epoch, first.CreatedAt)
	assert.Equal(t, epoch.Add(time.Second), second.CreatedAt)
}

func TestLedger_RecordsExpireAfterRetention(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	obs := &ledgerEvents{}
	l := NewLedger(clock, 5, 8*time.Second, obs)

	l.Append(info("a"))
	clock.Advance(3 * time.Second)
	l.Append(info("b"))

	clock.Advance(ms(4999))
	assert.Equal(t, []string{"b", "a"}, messages(l.List()))

	clock.Advance(ms(1))
	assert.Equal(t, []string{"b"}, messages(l.List()), "absent at exactly 8000ms")
	assert.Equal(t, []string{RemovedExpired}, obs.removed[1])

	clock.Advance(3 * time.Second)
	assert.Empty(t, l.List())
	assert.Zero(t, l.Len())
}

func TestLedger_ExpiryOfEvictedRecordIsNoop(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	obs := &ledgerEvents{}
	l := NewLedger(clock, 2, 8*time.Second, obs)

	first := l.Append(info("a"))
	l.Append(info("b"))
	l.Append(info("c"))
	require.Equal(t, []string{"c", "b"}, messages(l.List()))

	l.expire(first.ID)
	l.expire(first.ID)
	assert.Equal(t, []string{"c", "b"}, messages(l.List()))
	assert.Equal(t, []string{RemovedEvicted}, obs.removed[first.ID], "removed exactly once")
}

func TestLedger_ListHidesRecordsPastRetention(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	l := NewLedger(clock, 5, 8*time.Second, nil)
	l.Append(info("a"))

	// Simulate a late expiry callback by stopping every timer
	l.mu.Lock()
	for _, e := range l.entries {
		e.expiry.Stop()
	}
	l.mu.Unlock()

	clock.Advance(8 * time.Second)
	assert.Equal(t, 1, l.Len())
	assert.Empty(t, l.List())
}

func TestLedger_Clear(t *testing.T) {
	clock := scheduler.NewManual(epoch)
	l := NewLedger(clock, 5, 8*time.Second, nil)
	l.Append(info("a"))
	l.Append(info("b"))

	l.Clear()
	assert.Empty(t, l.List())
	assert.Zero(t, clock.Pending())
}
