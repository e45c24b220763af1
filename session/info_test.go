// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestInfoPersistence(t *testing.T) {
	t.Parallel()
	directory := t.TempDir()
	want := Info{
		ID:               "abc",
		Command:          []string{"/bin/sh", "-c", "true"},
		WorkingDirectory: "/tmp",
		PID:              4242,
		State:            StateExited,
		ExitCode:         130,
		Cols:             120,
		Rows:             40,
		StartedAt:        time.Date(2026, 3, 4, 5, 6, 7, 890123456, time.UTC),
		ExitedAt:         time.Date(2026, 3, 4, 5, 7, 0, 0, time.UTC),
		LogPath:          filepath.Join(directory, LogFileName),
	}

	if err := writeInfo(directory, want); err != nil {
		t.Fatalf("writeInfo: %v", err)
	}
	got, err := readInfo(directory)
	if err != nil {
		t.Fatalf("readInfo: %v", err)
	}
	if got.ID != want.ID || !slices.Equal(got.Command, want.Command) || got.PID != want.PID ||
		got.State != want.State || got.ExitCode != want.ExitCode || got.Cols != want.Cols ||
		!got.StartedAt.Equal(want.StartedAt) || !got.ExitedAt.Equal(want.ExitedAt) || got.LogPath != want.LogPath {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			t.Errorf("temporary file left behind: %s", entry.Name())
		}
	}
}

func TestReadInfoErrors(t *testing.T) {
	t.Parallel()
	directory := t.TempDir()

	if _, err := readInfo(directory); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
	if err := os.WriteFile(filepath.Join(directory, InfoFileName), []byte{0xff, 0x00}, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readInfo(directory); err == nil {
		t.Error("garbage metadata decoded without error")
	}
}

// startSleeper runs a long sleep, in a new session when leader is
// set, and reaps it when the test ends.
func startSleeper(t *testing.T, leader bool) *exec.Cmd {
	t.Helper()
	command := exec.Command("sleep", "30")
	command.SysProcAttr = &syscall.SysProcAttr{Setsid: leader}
	if err := command.Start(); err != nil {
		t.Fatalf("starting sleep: %v", err)
	}
	t.Cleanup(func() {
		_ = command.Process.Kill()
		_ = command.Wait()
	})
	return command
}

func TestSessionLeaderAlive(t *testing.T) {
	t.Parallel()
	leader := startSleeper(t, true)
	if !sessionLeaderAlive(leader.Process.Pid) {
		t.Error("live session leader reported dead")
	}

	// A live process in someone else's session stands in for a
	// recorded pid the kernel handed to an unrelated program.
	follower := startSleeper(t, false)
	if sessionLeaderAlive(follower.Process.Pid) {
		t.Error("process that does not lead its session reported alive")
	}

	if err := leader.Process.Kill(); err != nil {
		t.Fatal(err)
	}
	_ = leader.Wait()
	if sessionLeaderAlive(leader.Process.Pid) {
		t.Error("reaped session leader reported alive")
	}

	if sessionLeaderAlive(0) || sessionLeaderAlive(-1) {
		t.Error("non-positive pid reported alive")
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("TETHER_TEST_INHERITED", "yes")
	t.Setenv("TERM", "dumb")

	env := environment(map[string]string{"TETHER_TEST_ADDED": "1", "TETHER_TEST_INHERITED": "override"})
	values := make(map[string]string)
	for _, entry := range env {
		key, value, _ := strings.Cut(entry, "=")
		if _, duplicate := values[key]; duplicate {
			t.Errorf("duplicate key %s", key)
		}
		values[key] = value
	}
	if values["TERM"] != DefaultTerm {
		t.Errorf("TERM: got %q, want %q", values["TERM"], DefaultTerm)
	}
	if values["TETHER_TEST_INHERITED"] != "override" || values["TETHER_TEST_ADDED"] != "1" {
		t.Errorf("overrides not applied: %v", values)
	}

	if got := environment(map[string]string{"TERM": "screen"}); !slices.Contains(got, "TERM=screen") {
		t.Error("explicit TERM not honored")
	}
}

func TestValidID(t *testing.T) {
	t.Parallel()
	for id, want := range map[string]bool{
		"abc":     true,
		"a-b_c.1": true,
		"":        false,
		".":       false,
		"..":      false,
		"a/b":     false,
		"a\\b":    false,
	} {
		if got := validID(id); got != want {
			t.Errorf("validID(%q): got %v, want %v", id, got, want)
		}
	}
}

func TestClassifySpawnError(t *testing.T) {
	t.Parallel()
	if err := classifySpawnError(syscall.EMFILE); !errors.Is(err, ErrResourceExhausted) || !errors.Is(err, syscall.EMFILE) {
		t.Errorf("EMFILE: got %v", err)
	}
	if err := classifySpawnError(syscall.ENOENT); errors.Is(err, ErrResourceExhausted) {
		t.Errorf("ENOENT classified as exhaustion: %v", err)
	}
}
