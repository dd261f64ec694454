package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their transports
// ─────────────────────────────────────────────────────────────

// Events emitted by the services.
const (
	EventAnthemGenerated = "anthem:generated"
	EventAnthemFailed    = "anthem:failed"
	EventSourcesChanged  = "sources:changed"
)

// EventEmitter is an interface for emitting events to whoever is listening.
// Services receive this interface instead of a concrete transport, which
// makes them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to a logger.
type LogEmitter struct {
	Logger logrus.FieldLogger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Logger.WithFields(logrus.Fields{"component": "events", "event": event}).Debugf("%+v", data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded emissions of one event.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
