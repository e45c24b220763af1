// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	t.Setenv("HOME", "/home/tester")

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if cfg.Paths.State != "/home/tester/.local/state/tether" {
		t.Errorf("state: got %q", cfg.Paths.State)
	}
	if cfg.Paths.Socket != "/home/tester/.local/state/tether/tether.sock" {
		t.Errorf("socket: got %q", cfg.Paths.Socket)
	}
	if cfg.Session.Cols != 80 || cfg.Session.Rows != 24 {
		t.Errorf("geometry: got %dx%d, want 80x24", cfg.Session.Cols, cfg.Session.Rows)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path := writeConfig(t, "tether.yaml", `
paths:
  state: ${HOME}/sessions
server:
  max_sessions: 4
  log_level: debug
session:
  cols: 132
  terminate_grace: 2s
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.State != "/home/tester/sessions" {
		t.Errorf("state: got %q", cfg.Paths.State)
	}
	if cfg.Paths.Socket != "/home/tester/sessions/tether.sock" {
		t.Errorf("socket follows state: got %q", cfg.Paths.Socket)
	}
	if cfg.Server.MaxSessions != 4 {
		t.Errorf("max_sessions: got %d, want 4", cfg.Server.MaxSessions)
	}
	if cfg.Session.Cols != 132 || cfg.Session.Rows != 24 {
		t.Errorf("geometry: got %dx%d, want 132x24", cfg.Session.Cols, cfg.Session.Rows)
	}
	if cfg.Session.TerminateGrace != 2*time.Second {
		t.Errorf("terminate_grace: got %v, want 2s", cfg.Session.TerminateGrace)
	}
	if level, err := cfg.Level(); err != nil || level.String() != "DEBUG" {
		t.Errorf("Level: got %v, %v", level, err)
	}
}

func TestLoadJSONC(t *testing.T) {
	path := writeConfig(t, "tether.jsonc", `{
  // comments are allowed
  "paths": {"state": "/srv/tether", "socket": "/run/tether.sock",},
  "session": {"shell": "/bin/bash", "sync_writes": true},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.State != "/srv/tether" || cfg.Paths.Socket != "/run/tether.sock" {
		t.Errorf("paths: got %+v", cfg.Paths)
	}
	if cfg.Session.Shell != "/bin/bash" || !cfg.Session.SyncWrites {
		t.Errorf("session: got %+v", cfg.Session)
	}
}

func TestResolvePrefersFlag(t *testing.T) {
	fromEnv := writeConfig(t, "env.yaml", "session:\n  rows: 10\n")
	fromFlag := writeConfig(t, "flag.yaml", "session:\n  rows: 20\n")
	t.Setenv(EnvironmentVariable, fromEnv)

	cfg, err := Resolve(fromFlag)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Session.Rows != 20 {
		t.Errorf("rows: got %d, want 20 from flag", cfg.Session.Rows)
	}

	cfg, err = Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Session.Rows != 10 {
		t.Errorf("rows: got %d, want 10 from environment", cfg.Session.Rows)
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Session.Cols = 0
	cfg.Server.LogLevel = "loud"
	cfg.Session.TailPoll = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted invalid config")
	}
	for _, want := range []string{"geometry", "log_level", "tail_poll"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestExpandVarsDefault(t *testing.T) {
	t.Parallel()
	got := expandVars("${TETHER_TEST_UNSET_VARIABLE:-/fallback}/x", nil)
	if got != "/fallback/x" {
		t.Errorf("expandVars: got %q, want %q", got, "/fallback/x")
	}
}
