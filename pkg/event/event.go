// pkg/event/event.go
package event

import (
	"sync"

	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/physics"
)

// Type represents the type of event
type Type string

// Event types published by a collision world
const (
	BodyRegistered   Type = "body_registered"
	BodyUnregistered Type = "body_unregistered"
	Collision        Type = "collision"
	PairFailed       Type = "pair_failed"
)

// Event is a value carried by the bus. Source and Target are body IDs;
// Target and Correction are only set for pair events.
type Event struct {
	Type       Type
	Source     entity.ID
	Target     entity.ID
	Correction physics.Vector2D
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler
type Subscription uint64

type subscriber struct {
	id      Subscription
	handler Handler
}

// Bus manages event subscriptions and dispatching. Subscribing and
// unsubscribing are safe from any goroutine; handlers run on the publisher's.
type Bus struct {
	handlers map[Type][]subscriber
	nextID   Subscription
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: b.nextID, handler: handler})
	return b.nextID
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(eventType Type, sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, s := range handlers {
		if s.id != sub {
			continue
		}
		// Copy so a Publish iterating the old slice is unaffected
		next := make([]subscriber, 0, len(handlers)-1)
		next = append(next, handlers[:i]...)
		b.handlers[eventType] = append(next, handlers[i+1:]...)
		return
	}
}

// HasSubscribers reports whether anything listens for eventType
func (b *Bus) HasSubscribers(eventType Type) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) > 0
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, s := range handlers {
		s.handler(event)
	}
}
