// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danmackey/rorserverbot/internal/config"
	"github.com/danmackey/rorserverbot/internal/eventbus"
	"github.com/danmackey/rorserverbot/internal/registry"
)

// Driver runs a Connection to completion, and again, and again, up to
// a bounded number of tries at a fixed interval — directly grounded on
// control_channel.go's run() loop shape (select on a stop channel vs.
// a reconnect timer), but at a fixed interval rather than exponential
// backoff: a game server that refuses a connection is not a
// congested peer to back off from, and backoff only delays the
// operator noticing the bot dropped off.
//
// Only a dial-level ErrConnectionRefused is retried. A handshake-level
// ErrServerRefusal (wrong password, wrong version, banned, server
// full) is terminal — retrying would just repeat the same refusal.
type Driver struct {
	cfg    *config.BotConfig
	logger *slog.Logger
	bus    *eventbus.Bus
	reg    *registry.Registry

	onConnection func(*Connection)

	stopCh chan struct{}
}

// NewDriver creates a reconnect driver. bus and reg are shared across
// every reconnect attempt, so event subscribers (the announcement
// ticker, the operator command surface) survive a reconnect instead of
// being rebuilt from scratch.
func NewDriver(cfg *config.BotConfig, logger *slog.Logger, bus *eventbus.Bus, reg *registry.Registry) *Driver {
	return &Driver{
		cfg:    cfg,
		logger: logger.With("component", "reconnect_driver"),
		bus:    bus,
		reg:    reg,
		stopCh: make(chan struct{}),
	}
}

// OnConnection registers a callback invoked with each newly-connected
// Connection, before Run is called. Use it to wire per-connection
// helpers (announcements, command surface) that need a live send
// path. Must be called before Run.
func (d *Driver) OnConnection(fn func(*Connection)) {
	d.onConnection = fn
}

// Stop signals the driver to give up after its current attempt
// finishes, instead of retrying or sleeping out the reconnect
// interval.
func (d *Driver) Stop() {
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}
}

// Run connects and runs the bot until Stop is called, the configured
// number of tries is exhausted, or a terminal (non-retryable) error
// occurs. It returns the last error seen, or nil if Stop ended it
// cleanly.
func (d *Driver) Run(ctx context.Context) error {
	interval := d.cfg.Reconnection.Interval()
	tries := d.cfg.Reconnection.Tries

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		select {
		case <-d.stopCh:
			return lastErr
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn := New(d.cfg, d.logger, d.bus, d.reg)
		if err := conn.Connect(ctx); err != nil {
			lastErr = err
			if !errors.Is(err, ErrConnectionRefused) {
				d.logger.Error("connect failed, not retryable", "error", err)
				return err
			}

			d.logger.Warn("connect failed, will retry",
				"attempt", attempt, "tries", tries, "retry_in", interval, "error", err)

			select {
			case <-d.stopCh:
				return lastErr
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
			continue
		}

		if d.onConnection != nil {
			d.onConnection(conn)
		}

		d.logger.Info("connected", "server", d.cfg.Server.Addr())
		err := conn.Run()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrServerRefusal) {
			d.logger.Error("server refused connection, giving up", "error", err)
			return err
		}

		d.logger.Warn("connection lost, will reconnect",
			"attempt", attempt, "tries", tries, "retry_in", interval, "error", err)

		select {
		case <-d.stopCh:
			return lastErr
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("reconnect driver: exhausted %d tries: %w", tries, lastErr)
}
