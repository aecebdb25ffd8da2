// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import "errors"

// State names the connection orchestrator's lifecycle state machine, per
// the handshake/run/teardown sequence it walks through.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateTCPOpen       State = "tcp_open"
	StateAwaitHello    State = "await_hello"
	StateHelloOK       State = "hello_ok"
	StateAwaitWelcome  State = "await_welcome"
	StateJoined        State = "joined"
	StateRunning       State = "running"
	StateDisconnecting State = "disconnecting"
	StateFailed        State = "failed"
)

// Sentinel errors surfaced by the connection orchestrator.
var (
	// ErrServerRefusal is returned when the server rejects the handshake
	// with SERVER_FULL, WRONG_PASSWORD, WRONG_VERSION or BANNED. It is
	// not retried by the reconnect driver.
	ErrServerRefusal = errors.New("bot: server refused connection")
	// ErrProtocolViolation marks a message that is well-formed on the
	// wire but illegal in context (e.g. a non-empty STREAM_UNREGISTER
	// payload, or an unexpected message during the handshake).
	ErrProtocolViolation = errors.New("bot: protocol violation")
	// ErrDisconnected is returned when the server sends USER_LEAVE for
	// the bot's own uid, or the socket closes unexpectedly.
	ErrDisconnected = errors.New("bot: disconnected")
	// ErrNotRunning is returned by operations that require the running
	// state (e.g. starting the heartbeat loop before the handshake
	// completes).
	ErrNotRunning = errors.New("bot: not in running state")
	// ErrConnectionRefused marks a transport-level dial failure, the
	// only failure class the reconnect driver retries.
	ErrConnectionRefused = errors.New("bot: connection refused")
)
