// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: 127.0.0.1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 12000 {
		t.Errorf("Server.Port = %d, want 12000", cfg.Server.Port)
	}
	if cfg.User.Name != "RoR Server Bot" {
		t.Errorf("User.Name = %q, want default", cfg.User.Name)
	}
	if cfg.User.Language != "en_US" {
		t.Errorf("User.Language = %q, want en_US", cfg.User.Language)
	}
	if cfg.Announcements.Delay != 300 {
		t.Errorf("Announcements.Delay = %d, want 300", cfg.Announcements.Delay)
	}
	if cfg.Announcements.Color != "#FFFF00" {
		t.Errorf("Announcements.Color = %q, want yellow hex", cfg.Announcements.Color)
	}
	if cfg.Reconnection.IntervalSeconds != 5 {
		t.Errorf("Reconnection.IntervalSeconds = %d, want 5", cfg.Reconnection.IntervalSeconds)
	}
	if cfg.Reconnection.Tries != 3 {
		t.Errorf("Reconnection.Tries = %d, want 3", cfg.Reconnection.Tries)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging defaults not applied: %+v", cfg.Logging)
	}
}

func TestLoadMissingHostErrors(t *testing.T) {
	path := writeTempConfig(t, `server: {}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing server.host")
	}
}

func TestLoadRejectsPortOutOfRange(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: 127.0.0.1
  port: 80
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestAnnouncementsDisabledWhenNoMessages(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: 127.0.0.1
announcements:
  enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Announcements.Enabled {
		t.Error("expected announcements to auto-disable with no messages")
	}
}

func TestAnnouncementsEnabledWithMessages(t *testing.T) {
	path := writeTempConfig(t, `
server:
  host: 127.0.0.1
announcements:
  enabled: true
  messages:
    - "hello"
    - "world"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Announcements.Enabled {
		t.Error("expected announcements to stay enabled with messages present")
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerInfo{Host: "ror.example.com", Port: 12345}
	if got, want := s.Addr(), "ror.example.com:12345"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}

func TestColorToHexAcceptsNamesAndHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"red", "#FF0000"},
		{"#abcdef", "#ABCDEF"},
	}
	for _, tt := range tests {
		got, err := colorToHex(tt.in)
		if err != nil {
			t.Fatalf("colorToHex(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("colorToHex(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColorToHexRejectsUnknownName(t *testing.T) {
	if _, err := colorToHex("chartreuse"); err == nil {
		t.Fatal("expected error for unknown color name")
	}
}
