// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package eventbus is a small synchronous, named-event dispatcher used to
// decouple the connection's reader loop from the handlers that react to
// each RoRnet event (chat commands, announcements, diagnostics, ...).
//
// Handlers are registered by name into an explicit table rather than
// discovered by reflection: see DESIGN.md for why this departs from the
// original Python client's pyee-based emitter.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
)

// Meta-event names. EventNewListener fires after every On/Once
// registration; EventError fires when a handler panics.
const (
	EventNewListener = "new_listener"
	EventError       = "error"
)

// Handler receives the arguments passed to Emit for the event it was
// registered against.
type Handler func(args ...any)

type entry struct {
	handler Handler
	once    bool
}

// Bus is a synchronous, registration-order event dispatcher. The zero
// value is not usable; construct with New.
type Bus struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string][]*entry
}

// New creates a Bus. logger is used to report panics recovered from
// handlers before they are re-emitted as an "error" event.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger:   logger.With("component", "eventbus"),
		handlers: make(map[string][]*entry),
	}
}

// On registers fn to be called every time event fires, in registration
// order relative to other handlers already registered for the same
// event.
func (b *Bus) On(event string, fn Handler) {
	b.add(event, fn, false)
}

// Once registers fn to fire at most once for event; it is removed from
// the table immediately before being invoked.
func (b *Bus) Once(event string, fn Handler) {
	b.add(event, fn, true)
}

func (b *Bus) add(event string, fn Handler, once bool) {
	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], &entry{handler: fn, once: once})
	b.mu.Unlock()

	if event != EventNewListener {
		b.Emit(EventNewListener, event)
	}
}

// RemoveListener removes every handler registered for event. Go funcs
// are not directly comparable, so this bus does not support removing a
// single handler by identity; a handler that has finished its work (the
// countdown command's frame_step subscriber) instead returns early from
// its body and stays registered, and RemoveListener serves only for
// whole-subscription teardown (the command and announcement handlers,
// cleared before they are attached to a new connection).
func (b *Bus) RemoveListener(event string) {
	b.mu.Lock()
	delete(b.handlers, event)
	b.mu.Unlock()
}

// Emit synchronously invokes every handler registered for event, in
// registration order, passing args through unchanged. A handler that
// panics is recovered and re-emitted as an EventError carrying the
// recovered value and the originating event name; it does not stop
// subsequent handlers from running.
func (b *Bus) Emit(event string, args ...any) {
	b.mu.Lock()
	entries := append([]*entry(nil), b.handlers[event]...)
	var remaining []*entry
	for _, e := range b.handlers[event] {
		if !e.once {
			remaining = append(remaining, e)
		}
	}
	b.handlers[event] = remaining
	b.mu.Unlock()

	for _, e := range entries {
		b.invoke(event, e.handler, args)
	}
}

func (b *Bus) invoke(event string, fn Handler, args []any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", event, "recovered", r)
			if event == EventError {
				// Avoid an error-handler panic looping back into itself.
				return
			}
			b.Emit(EventError, fmt.Errorf("handler for %q panicked: %v", event, r))
		}
	}()
	fn(args...)
}

// ListenerCount returns the number of handlers currently registered for
// event, for diagnostics and tests.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[event])
}
