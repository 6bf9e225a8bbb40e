package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives one event's payload. Handlers run synchronously on the
// emitting goroutine's call to Emit, mirroring the teacher's event
// manager (logging happens inline, not via an internal queue); callers
// that must not block the emitter should hand off to their own worker.
type Handler func(data Data)

// Bus is the in-process publish/subscribe hub. It is safe for concurrent
// use by any number of publishers and subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	log      zerolog.Logger
}

// NewBus creates an empty Bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
		log:      log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers handler to run on every future Emit of eventType.
// There is no Unsubscribe: subscriptions are expected to live for the
// process lifetime, matching every call site in the pack.
func (b *Bus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit dispatches data to every handler subscribed to data's event type,
// logging the emission at debug level.
func (b *Bus) Emit(data Data) {
	eventType := data.EventType()

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[eventType]))
	copy(handlers, b.handlers[eventType])
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(eventType)).
		Int("subscribers", len(handlers)).
		Msg("event emitted")

	for _, h := range handlers {
		h(data)
	}
}
