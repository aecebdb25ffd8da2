// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/danmackey/rorserverbot/internal/config"
	"github.com/danmackey/rorserverbot/internal/eventbus"
	"github.com/danmackey/rorserverbot/internal/protocol"
)

// Announcer round-robins a configured list of chat messages, posting
// one every Delay seconds. It rides the connection's own frame_step
// event instead of keeping a ticker of its own, so its cadence tracks
// the bot's frame clock rather than drifting against it.
type Announcer struct {
	cfg    config.Announcements
	logger *slog.Logger

	accumulated time.Duration
	index       int
}

// NewAnnouncer creates an Announcer. It does nothing until Attach is
// called; a disabled or message-less configuration makes Attach a
// no-op (config.validate already forces Enabled=false when Messages
// is empty).
func NewAnnouncer(cfg config.Announcements, logger *slog.Logger) *Announcer {
	return &Announcer{
		cfg:    cfg,
		logger: logger.With("component", "announcer"),
	}
}

// Attach subscribes the announcer to bus's frame_step event and wires
// its chat output to conn. Call once per Connection; the reconnect
// driver calls this again via its OnConnection callback for every new
// connection, since the bus survives reconnects but each Connection
// needs its own send path wired in.
func (a *Announcer) Attach(bus *eventbus.Bus, conn *Connection) {
	if !a.cfg.Enabled || len(a.cfg.Messages) == 0 {
		return
	}

	delay := time.Duration(a.cfg.Delay) * time.Second

	bus.On(protocol.EventFrameStep, func(args ...any) {
		if len(args) == 0 {
			return
		}
		delta, ok := args[0].(float32)
		if !ok {
			return
		}
		a.accumulated += time.Duration(delta * float32(time.Second))
		if a.accumulated < delay {
			return
		}
		a.accumulated = 0

		message := a.cfg.Messages[a.index]
		a.index = (a.index + 1) % len(a.cfg.Messages)

		text := fmt.Sprintf("%sANNOUNCEMENT: %s", a.cfg.Color, message)
		if err := conn.SendChat(text); err != nil {
			a.logger.Warn("failed to send announcement", "error", err)
		}
	})
}
