// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danmackey/rorserverbot/internal/protocol"
)

// BotConfig is the complete configuration for one RoRnet client
// connection.
type BotConfig struct {
	Server        ServerInfo    `yaml:"server"`
	User          UserInfo      `yaml:"user"`
	Announcements Announcements `yaml:"announcements"`
	Reconnection  Reconnection  `yaml:"reconnection"`
	Logging       LoggingInfo   `yaml:"logging"`
	Network       Network       `yaml:"network"`
	Diagnostics   Diagnostics   `yaml:"diagnostics"`
	Actors        Actors        `yaml:"actors"`
}

// Actors configures resolution of actor stream registration names to
// human-readable display names.
type Actors struct {
	// TruckNameMapFile is an optional path to a JSON object of
	// {"filename.truck": "Display Name"} overrides, loaded via
	// protocol.LoadTruckNameMap. Empty disables the override table and
	// falls back to the regex-parsed name for every actor stream.
	TruckNameMapFile string `yaml:"truck_name_map_file"`
}

// Network configures link-level concerns for the TCP connection to the
// game server: outbound packet pacing and DSCP traffic marking.
type Network struct {
	// SendRatePacketsPerSec caps outbound packets/sec; <= 0 disables
	// the limiter (the bot sends as fast as it wants).
	SendRatePacketsPerSec float64 `yaml:"send_rate_packets_per_sec"`
	// DSCP is a traffic-class name (EF, AF11..AF43, CS0..CS7); empty
	// disables DSCP marking.
	DSCP string `yaml:"dscp"`
}

// Diagnostics configures the periodic host-metrics collector backing
// the operator ">hostinfo" command and the connection's stats log line.
type Diagnostics struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// Interval returns the configured collection interval as a Duration.
func (d Diagnostics) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

// ServerInfo is the RoRnet server the bot connects to.
type ServerInfo struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

// Addr returns the host:port dial address.
func (s ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprintf("%d", s.Port))
}

// UserInfo is the identity the bot presents to the server.
type UserInfo struct {
	Name     string `yaml:"name"`
	Token    string `yaml:"token"`
	Language string `yaml:"language"`
}

// Announcements configures the round-robin chat announcement ticker.
type Announcements struct {
	Delay    int      `yaml:"delay"` // seconds between announcements
	Enabled  bool     `yaml:"enabled"`
	Messages []string `yaml:"messages"`
	Color    string   `yaml:"color"` // "#RRGGBB" or a name from protocol's palette
}

// Reconnection configures the bounded, fixed-interval reconnect driver.
type Reconnection struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	Tries           int `yaml:"tries"`
}

// Interval returns the configured reconnect interval as a Duration.
func (r Reconnection) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// LoggingInfo configures the bot's structured logger.
type LoggingInfo struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// SessionDir, if set, turns on a per-connection debug log file under
	// {SessionDir}/{user.name}/{connection-id}.log, fanned out alongside
	// the base logger. Empty disables per-session logging.
	SessionDir string `yaml:"session_dir"`
}

// namedColors maps the handful of color names the config accepts to
// protocol's hex palette, mirroring the original client's color_to_hex
// name lookup without pulling in a full CSS-color-name dependency.
var namedColors = map[string]protocol.Color{
	"black":   protocol.ColorBlack,
	"grey":    protocol.ColorGrey,
	"gray":    protocol.ColorGrey,
	"red":     protocol.ColorRed,
	"yellow":  protocol.ColorYellow,
	"white":   protocol.ColorWhite,
	"cyan":    protocol.ColorCyan,
	"blue":    protocol.ColorBlue,
	"green":   protocol.ColorGreen,
	"magenta": protocol.ColorMagenta,
}

// Load reads and validates a bot configuration YAML file, filling in
// defaults for any unset optional field.
func Load(path string) (*BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bot config: %w", err)
	}

	var cfg BotConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing bot config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating bot config: %w", err)
	}

	return &cfg, nil
}

func (c *BotConfig) validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port == 0 {
		c.Server.Port = 12000
	}
	if c.Server.Port < 12000 || c.Server.Port > 12999 {
		return fmt.Errorf("server.port must be between 12000 and 12999, got %d", c.Server.Port)
	}

	if c.User.Name == "" {
		c.User.Name = "RoR Server Bot"
	}
	if c.User.Language == "" {
		c.User.Language = "en_US"
	}

	if c.Announcements.Delay <= 0 {
		c.Announcements.Delay = 300
	}
	if c.Announcements.Color == "" {
		c.Announcements.Color = "yellow"
	}
	hex, err := colorToHex(c.Announcements.Color)
	if err != nil {
		return fmt.Errorf("announcements.color: %w", err)
	}
	c.Announcements.Color = hex
	// An announcement ticker with nothing to say disables itself,
	// regardless of what the config asked for.
	if len(c.Announcements.Messages) == 0 {
		c.Announcements.Enabled = false
	}

	if c.Reconnection.IntervalSeconds <= 0 {
		c.Reconnection.IntervalSeconds = 5
	}
	if c.Reconnection.Tries <= 0 {
		c.Reconnection.Tries = 3
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Diagnostics.IntervalSeconds <= 0 {
		c.Diagnostics.IntervalSeconds = 60
	}

	return nil
}

// colorToHex resolves a config color value to a "#RRGGBB" string,
// accepting either a hex literal or one of namedColors.
func colorToHex(v string) (string, error) {
	if strings.HasPrefix(v, "#") {
		return strings.ToUpper(v), nil
	}
	if c, ok := namedColors[strings.ToLower(v)]; ok {
		return string(c), nil
	}
	return "", fmt.Errorf("unknown color %q", v)
}
