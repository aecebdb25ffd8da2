// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmackey/rorserverbot/internal/bot"
	"github.com/danmackey/rorserverbot/internal/config"
	"github.com/danmackey/rorserverbot/internal/eventbus"
	"github.com/danmackey/rorserverbot/internal/logging"
	"github.com/danmackey/rorserverbot/internal/protocol"
	"github.com/danmackey/rorserverbot/internal/registry"
)

// Version is filled via ldflags on build (-X main.Version=x.y.z) and
// threaded into bot.Version so the USER_INFO client_version sent during
// the handshake and the >version command report the same string.
var Version = "dev"

func main() {
	configPath := flag.String("config", "/etc/rorbot/bot.yaml", "path to bot config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "")
	defer logCloser.Close()

	bot.Version = Version

	if err := run(*configPath, cfg, logger); err != nil {
		logger.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
}

// run starts the reconnect driver, the announcement ticker, and the
// operator command surface, and blocks until SIGTERM/SIGINT or the
// driver gives up. SIGHUP reloads the config file, mirroring
// daemon.go's RunDaemon reload path, by stopping and recreating the
// driver in place.
func run(configPath string, cfg *config.BotConfig, logger *slog.Logger) error {
	logger.Info("starting rorbot", "server", cfg.Server.Addr(), "user", cfg.User.Name)

	bus := eventbus.New(logger)
	reg := registry.New(time.Now(), loadTruckNames(cfg, logger))

	driver := bot.NewDriver(cfg, logger, bus, reg)
	announcer := bot.NewAnnouncer(cfg.Announcements, logger)
	driver.OnConnection(func(conn *bot.Connection) { attachHandlers(bus, conn, announcer, logger) })

	driverErrCh := make(chan error, 1)
	go func() { driverErrCh <- driver.Run(context.Background()) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for {
		select {
		case err := <-driverErrCh:
			return err

		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("received SIGHUP, reloading config", "path", configPath)
				newCfg, loadErr := config.Load(configPath)
				if loadErr != nil {
					logger.Error("reload failed, keeping current config", "error", loadErr)
					continue
				}
				driver.Stop()
				if err := <-driverErrCh; err != nil {
					logger.Warn("previous driver run ended with error before reload", "error", err)
				}

				cfg = newCfg
				driver = bot.NewDriver(cfg, logger, bus, reg)
				driver.OnConnection(func(conn *bot.Connection) { attachHandlers(bus, conn, announcer, logger) })
				go func() { driverErrCh <- driver.Run(context.Background()) }()

				logger.Info("config reloaded successfully", "server", cfg.Server.Addr())
				continue
			}

			logger.Info("received signal, shutting down", "signal", sig)
			driver.Stop()
			return <-driverErrCh
		}
	}
}

// attachHandlers wires the announcement ticker and operator command
// surface onto a freshly (re)connected Connection. bus is shared across
// every reconnect attempt, so the previous connection's subscriptions
// are torn down first — otherwise each reconnect would stack another
// copy of every handler onto the same event names.
func attachHandlers(bus *eventbus.Bus, conn *bot.Connection, announcer *bot.Announcer, logger *slog.Logger) {
	bus.RemoveListener(protocol.EventChat)
	bus.RemoveListener(protocol.EventFrameStep)

	announcer.Attach(bus, conn)
	bot.NewCommands(conn, logger).Attach(bus)
}

// loadTruckNames reads cfg.Actors.TruckNameMapFile, if configured, and
// returns the resulting override table for registry.New. A missing or
// unreadable file is logged and treated as "no overrides" rather than
// failing startup.
func loadTruckNames(cfg *config.BotConfig, logger *slog.Logger) map[string]string {
	if cfg.Actors.TruckNameMapFile == "" {
		return nil
	}
	names, err := protocol.LoadTruckNameMap(cfg.Actors.TruckNameMapFile)
	if err != nil {
		logger.Warn("failed to load truck name map, falling back to parsed names", "path", cfg.Actors.TruckNameMapFile, "error", err)
		return nil
	}
	return names
}
