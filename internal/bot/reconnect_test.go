// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmackey/rorserverbot/internal/config"
	"github.com/danmackey/rorserverbot/internal/eventbus"
	"github.com/danmackey/rorserverbot/internal/protocol"
	"github.com/danmackey/rorserverbot/internal/registry"
)

func testDriverConfig(t *testing.T, host string, port int) *config.BotConfig {
	t.Helper()
	cfg := &config.BotConfig{}
	cfg.Server.Host = host
	cfg.Server.Port = port
	cfg.User.Name = "bot"
	cfg.User.Language = "en_US"
	cfg.Reconnection.IntervalSeconds = 0
	cfg.Reconnection.Tries = 3
	cfg.Diagnostics.IntervalSeconds = 60
	return cfg
}

// TestDriver_RetriesOnConnectionRefused points the driver at a closed
// TCP port and confirms it retries up to Tries times before giving up,
// per the fixed-interval, bounded-retry policy.
func TestDriver_RetriesOnConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close() // closed immediately: nothing listens on this port

	cfg := testDriverConfig(t, addr.IP.String(), addr.Port)
	bus := eventbus.New(discardLogger())
	reg := registry.New(time.Now(), nil)
	driver := NewDriver(cfg, discardLogger(), bus, reg)

	err = driver.Run(context.Background())
	if err == nil {
		t.Fatal("expected driver to give up after exhausting retries")
	}
	if !errors.Is(err, ErrConnectionRefused) {
		t.Fatalf("expected wrapped ErrConnectionRefused, got %v", err)
	}
}

// TestDriver_TerminalOnServerRefusal drives a real listener that accepts
// the TCP connection, completes HELLO/ServerInfo, then refuses the
// USER_INFO with WRONG_PASSWORD. The driver must give up immediately,
// without retrying.
func TestDriver_TerminalOnServerRefusal(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	addr := listener.Addr().(*net.TCPAddr)

	attempts := 0
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			attempts++
			go func(c net.Conn) {
				defer c.Close()
				if _, err := protocol.ReadPacket(c); err != nil {
					return
				}
				si := protocol.ServerInfo{ProtocolVersion: protocol.ProtocolVersion}
				data, _ := si.Encode()
				_ = protocol.WritePacket(c, protocol.Packet{Command: protocol.MsgHello, Data: data})

				if _, err := protocol.ReadPacket(c); err != nil {
					return
				}
				_ = protocol.WritePacket(c, protocol.Packet{Command: protocol.MsgWrongPassword})
			}(conn)
		}
	}()

	cfg := testDriverConfig(t, addr.IP.String(), addr.Port)
	bus := eventbus.New(discardLogger())
	reg := registry.New(time.Now(), nil)
	driver := NewDriver(cfg, discardLogger(), bus, reg)

	err = driver.Run(context.Background())
	if !errors.Is(err, ErrServerRefusal) {
		t.Fatalf("expected ErrServerRefusal, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one connection attempt, got %d", attempts)
	}
}

// TestDriver_StopEndsCleanly confirms Stop() called before Run ever
// dials makes Run return immediately with a nil error.
func TestDriver_StopEndsCleanly(t *testing.T) {
	cfg := testDriverConfig(t, "127.0.0.1", 1)
	bus := eventbus.New(discardLogger())
	reg := registry.New(time.Now(), nil)
	driver := NewDriver(cfg, discardLogger(), bus, reg)

	driver.Stop()

	done := make(chan error, 1)
	go func() { done <- driver.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error after Stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stopped driver to return")
	}
}
