// Package memory is an in-process event bus used when no EventBridge bus is
// configured and by the websocket hub.
package memory

import (
	"context"
	"sync"

	"sentinel/domain/events"

	"go.uber.org/zap"
)

// Handler receives published events
type Handler func(ctx context.Context, event events.DomainEvent)

// Publisher fans events out to in-process subscribers and optionally
// forwards them to a downstream publisher.
type Publisher struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   int
	next     Downstream
	logger   *zap.Logger
}

// Downstream is where events go after local fan-out
type Downstream interface {
	PublishBatch(ctx context.Context, evts []events.DomainEvent) error
}

type subscription struct {
	id int
	fn Handler
}

// AllEvents subscribes to every event type
const AllEvents = "*"

// NewPublisher creates an in-process publisher; next may be nil
func NewPublisher(next Downstream, logger *zap.Logger) *Publisher {
	return &Publisher{
		handlers: make(map[string][]subscription),
		next:     next,
		logger:   logger,
	}
}

// Subscribe registers fn for eventType (or AllEvents) and returns a function
// that removes it.
func (p *Publisher) Subscribe(eventType string, fn Handler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.handlers[eventType] = append(p.handlers[eventType], subscription{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		subs := p.handlers[eventType]
		for i, s := range subs {
			if s.id == id {
				p.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish implements ports.EventPublisher
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch implements ports.EventPublisher
func (p *Publisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	for _, event := range evts {
		for _, fn := range p.handlersFor(event.GetEventType()) {
			p.deliver(ctx, fn, event)
		}
	}
	if p.next != nil && len(evts) > 0 {
		return p.next.PublishBatch(ctx, evts)
	}
	return nil
}

func (p *Publisher) handlersFor(eventType string) []Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Handler, 0, len(p.handlers[eventType])+len(p.handlers[AllEvents]))
	for _, s := range p.handlers[eventType] {
		out = append(out, s.fn)
	}
	for _, s := range p.handlers[AllEvents] {
		out = append(out, s.fn)
	}
	return out
}

func (p *Publisher) deliver(ctx context.Context, fn Handler, event events.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Event handler panicked",
				zap.String("eventType", event.GetEventType()),
				zap.Any("panic", r),
			)
		}
	}()
	fn(ctx, event)
}
