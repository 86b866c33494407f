// Package telemetry carries oriel's observability surface: the event
// hub UIs and tools subscribe to, Prometheus metrics for the render
// pipeline, tracing helpers, and the structured logger. A terminal
// application owns stdout, so every sink here writes elsewhere.
package telemetry

import (
	"sync"
	"time"
)

// EventType identifies the kind of telemetry event.
type EventType string

const (
	EventWindowCreated EventType = "window.created"
	EventWindowClosed  EventType = "window.closed"
	EventWindowFocused EventType = "window.focused"
	EventWindowMoved   EventType = "window.moved"
	EventWindowResized EventType = "window.resized"
	EventWindowRaised  EventType = "window.raised"

	EventFrameRendered  EventType = "frame.rendered"
	EventFrameSkipped   EventType = "frame.skipped"
	EventFrameAbandoned EventType = "frame.abandoned"
	EventFullRedraw     EventType = "frame.full_redraw"

	EventTerminalResized EventType = "terminal.resized"
	EventConfigReloaded  EventType = "config.reloaded"
	EventInputDropped    EventType = "input.dropped"
)

// Event describes one observable occurrence in the windowing stack.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	WindowID  string         `json:"windowId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Hub fans events out to any number of subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
}

// NewHub constructs a telemetry hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan Event]struct{})}
}

// Publish notifies all subscribers of an event. Non-blocking: a
// subscriber that cannot keep up misses events rather than stalling
// the render loop.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving future events and a cleanup
// func. The cleanup is idempotent.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		empty := make(chan Event)
		close(empty)
		return empty, func() {}
	}
	ch := make(chan Event, 64)
	h.subscribers[ch] = struct{}{}
	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Close unsubscribes all listeners and stops future publications.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, ch)
	}
}
