// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package eventbus

import (
	"log/slog"
	"testing"
)

func newTestBus() *Bus {
	return New(slog.Default())
}

func TestOnFiresInRegistrationOrder(t *testing.T) {
	b := newTestBus()
	var order []int

	b.On("chat", func(args ...any) { order = append(order, 1) })
	b.On("chat", func(args ...any) { order = append(order, 2) })
	b.On("chat", func(args ...any) { order = append(order, 3) })

	b.Emit("chat", "hello")

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("handlers fired out of order: %v", order)
	}
}

func TestEmitPassesArgsThrough(t *testing.T) {
	b := newTestBus()
	var gotUID uint32
	var gotMsg string

	b.On("private_chat", func(args ...any) {
		gotUID = args[0].(uint32)
		gotMsg = args[1].(string)
	})

	b.Emit("private_chat", uint32(7), "gg")

	if gotUID != 7 || gotMsg != "gg" {
		t.Fatalf("args not passed through: uid=%d msg=%q", gotUID, gotMsg)
	}
}

func TestOnceFiresOnlyOnce(t *testing.T) {
	b := newTestBus()
	count := 0

	b.Once("user_join", func(args ...any) { count++ })

	b.Emit("user_join")
	b.Emit("user_join")
	b.Emit("user_join")

	if count != 1 {
		t.Fatalf("once handler fired %d times, want 1", count)
	}
	if n := b.ListenerCount("user_join"); n != 0 {
		t.Fatalf("expected once handler removed after firing, listener count = %d", n)
	}
}

func TestNewListenerFiresOnRegistration(t *testing.T) {
	b := newTestBus()
	var registered []string

	b.On(EventNewListener, func(args ...any) {
		registered = append(registered, args[0].(string))
	})
	b.On("frame_step", func(args ...any) {})
	b.On("chat", func(args ...any) {})

	if len(registered) != 2 || registered[0] != "frame_step" || registered[1] != "chat" {
		t.Fatalf("unexpected new_listener sequence: %v", registered)
	}
}

func TestPanicInHandlerIsRecoveredAndEmittedAsError(t *testing.T) {
	b := newTestBus()
	var recovered any
	errFired := false

	b.On(EventError, func(args ...any) {
		errFired = true
		recovered = args[0]
	})
	b.On("chat", func(args ...any) { panic("boom") })

	b.Emit("chat", "trigger")

	if !errFired {
		t.Fatal("expected error event to fire after handler panic")
	}
	if recovered == nil {
		t.Fatal("expected a non-nil error payload on the error event")
	}
}

func TestPanicDoesNotStopLaterHandlers(t *testing.T) {
	b := newTestBus()
	secondRan := false

	b.On("chat", func(args ...any) { panic("boom") })
	b.On("chat", func(args ...any) { secondRan = true })

	b.Emit("chat")

	if !secondRan {
		t.Fatal("expected handler after a panicking one to still run")
	}
}

func TestRemoveListenerClearsAllHandlersForEvent(t *testing.T) {
	b := newTestBus()
	fired := false

	b.On("chat", func(args ...any) { fired = true })
	b.RemoveListener("chat")
	b.Emit("chat")

	if fired {
		t.Fatal("expected removed handler to not fire")
	}
	if n := b.ListenerCount("chat"); n != 0 {
		t.Fatalf("expected 0 listeners after RemoveListener, got %d", n)
	}
}

func TestUnregisteredEventIsANoOp(t *testing.T) {
	b := newTestBus()
	// Emitting an event with no registered handlers must not panic.
	b.Emit("stream_data", []byte{1, 2, 3})
}
