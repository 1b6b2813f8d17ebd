package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler is a subscriber callback invoked for each delivered event
type Handler func(event *Event)

// Bus is an in-process publish/subscribe event bus. Delivery is
// fire-and-forget: each event is dispatched to subscribers on a separate
// goroutine and a panicking subscriber never affects the publisher.
type Bus struct {
	log      zerolog.Logger
	typed    map[EventType][]Handler
	wildcard []Handler
	mu       sync.RWMutex
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		typed: make(map[EventType][]Handler),
		log:   log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed[eventType] = append(b.typed[eventType], handler)
}

// SubscribeAll registers a handler for every event type
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, handler)
}

// Publish delivers the event to all matching subscribers asynchronously
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.typed[event.Type])+len(b.wildcard))
	handlers = append(handlers, b.typed[event.Type]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	for _, h := range handlers {
		go func(h Handler) {
			defer func() {
				if p := recover(); p != nil {
					b.log.Error().
						Interface("panic", p).
						Str("event_type", string(event.Type)).
						Msg("Event handler panicked")
				}
			}()
			h(event)
		}(h)
	}
}
