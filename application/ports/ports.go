// Package ports defines the boundaries between the alerting engine and the
// outside world. The engine only ever talks to these interfaces; adapters
// live under infrastructure/.
package ports

import (
	"context"
	"time"

	"sentinel/domain/core/entities"
	"sentinel/domain/core/valueobjects"
	"sentinel/domain/events"
)

// Handle is a scheduled callback owned by whoever started it
type Handle interface {
	// Stop cancels the callback. It reports whether the callback was still
	// scheduled; stopping twice is harmless.
	Stop() bool
}

// Scheduler is the only source of time in the engine. Callbacks must not
// block for long; all waiting is expressed as a future callback.
type Scheduler interface {
	Now() time.Time
	// After runs fn once, d from now
	After(d time.Duration, fn func()) Handle
	// Every runs fn every d, first at now+d
	Every(d time.Duration, fn func()) Handle
}

// LocationFeed supplies the latest known position of the user
type LocationFeed interface {
	Current() valueobjects.Location
	// SetContinuous turns periodic position refresh on or off
	SetContinuous(on bool)
	Continuous() bool
}

// AudioSource samples the ambient level, normalized to [0,100]
type AudioSource interface {
	Sample(ctx context.Context) (float64, error)
}

// NotificationGateway delivers a message to one emergency contact
type NotificationGateway interface {
	Send(ctx context.Context, contact entities.EmergencyContact, message string) error
}

// EventPublisher publishes domain events to interested parties
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// IncidentQuery filters archived alert records
type IncidentQuery struct {
	Owner string
	Since time.Time
	// Severity restricts results to one severity; zero means any
	Severity valueobjects.Severity
	Limit    int
}

// AlertArchive keeps ledger records after they leave the in-memory ledger
type AlertArchive interface {
	Save(ctx context.Context, owner string, record entities.AlertRecord) error
	List(ctx context.Context, query IncidentQuery) ([]entities.AlertRecord, error)
}

// Metrics receives engine counters and gauges
type Metrics interface {
	TriggerClassified(source valueobjects.TriggerSource, severity valueobjects.Severity)
	CountdownArmed()
	CountdownResolved(outcome string)
	NotificationSent(delivered bool, latency time.Duration)
	LedgerSize(n int)
	AudioLevel(level float64)
}

// Countdown outcomes reported to Metrics.CountdownResolved
const (
	OutcomeDispatched = "dispatched"
	OutcomeCancelled  = "cancelled"
)
