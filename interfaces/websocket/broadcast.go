package websocket

import (
	"context"

	"sentinel/domain/events"
	"sentinel/infrastructure/messaging/memory"

	"go.uber.org/zap"
)

// Broadcaster sends a message to every connected client
type Broadcaster interface {
	Broadcast(messageType string, data interface{}) error
}

// EventSource delivers published domain events
type EventSource interface {
	Subscribe(eventType string, fn memory.Handler) func()
}

// EventMessage wraps a domain event for clients
type EventMessage struct {
	EventType string             `json:"event_type"`
	Event     events.DomainEvent `json:"event"`
}

// Bridge pushes a fresh snapshot after every engine change and forwards
// domain events. Bursts of changes collapse into one snapshot.
type Bridge struct {
	out    Broadcaster
	source SnapshotSource
	events EventSource
	notify chan struct{}
	logger *zap.Logger
}

// NewBridge creates a bridge; evts may be nil
func NewBridge(out Broadcaster, source SnapshotSource, evts EventSource, logger *zap.Logger) *Bridge {
	return &Bridge{
		out:    out,
		source: source,
		events: evts,
		notify: make(chan struct{}, 1),
		logger: logger.Named("ws-bridge"),
	}
}

// Run forwards until ctx is done
func (b *Bridge) Run(ctx context.Context) {
	if b.events != nil {
		stop := b.events.Subscribe(memory.AllEvents, func(_ context.Context, event events.DomainEvent) {
			msg := EventMessage{EventType: event.GetEventType(), Event: event}
			if err := b.out.Broadcast(TypeEvent, msg); err != nil {
				b.logger.Warn("Event broadcast dropped", zap.String("type", msg.EventType), zap.Error(err))
			}
		})
		defer stop()
	}

	unsubscribe := b.source.Subscribe(func() {
		select {
		case b.notify <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.notify:
			if err := b.out.Broadcast(TypeSnapshot, b.source.Snapshot()); err != nil {
				b.logger.Warn("Snapshot broadcast dropped", zap.Error(err))
			}
		}
	}
}
