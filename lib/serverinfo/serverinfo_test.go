// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serverinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteRead(t *testing.T) {
	t.Parallel()
	path := Path(t.TempDir())
	want := Info{
		PID:         4242,
		Socket:      "/run/tether/tether.sock",
		HTTPAddress: "127.0.0.1:7681",
		Version:     "v0.3.0",
		StartedAt:   time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC),
	}
	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.PID != want.PID {
		t.Errorf("PID: got %d, want %d", got.PID, want.PID)
	}
	if got.Socket != want.Socket {
		t.Errorf("Socket: got %q, want %q", got.Socket, want.Socket)
	}
	if got.HTTPAddress != want.HTTPAddress {
		t.Errorf("HTTPAddress: got %q, want %q", got.HTTPAddress, want.HTTPAddress)
	}
	if got.Version != want.Version {
		t.Errorf("Version: got %q, want %q", got.Version, want.Version)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("StartedAt: got %v, want %v", got.StartedAt, want.StartedAt)
	}
}

func TestWriteReplacesAtomically(t *testing.T) {
	t.Parallel()
	path := Path(t.TempDir())
	if err := Write(path, Info{PID: 1, HTTPAddress: "127.0.0.1:1"}); err != nil {
		t.Fatalf("Write first: %v", err)
	}
	if err := Write(path, Info{PID: 2, HTTPAddress: "127.0.0.1:2"}); err != nil {
		t.Fatalf("Write second: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.HTTPAddress != "127.0.0.1:2" {
		t.Errorf("HTTPAddress: got %q, want %q", got.HTTPAddress, "127.0.0.1:2")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := stat.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions: got %04o, want 0600", perm)
	}
}

func TestWriteMissingDirectory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "absent", FileName)
	if err := Write(path, Info{PID: 1}); err == nil {
		t.Fatal("Write into a missing directory succeeded")
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, ok, err := Check(Path(t.TempDir()))
		if err != nil || ok {
			t.Errorf("got ok=%v err=%v, want false and nil", ok, err)
		}
	})

	t.Run("live", func(t *testing.T) {
		t.Parallel()
		path := Path(t.TempDir())
		if err := Write(path, Info{PID: os.Getpid(), HTTPAddress: "127.0.0.1:9"}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		info, ok, err := Check(path)
		if err != nil || !ok {
			t.Fatalf("got ok=%v err=%v, want true and nil", ok, err)
		}
		if info.HTTPAddress != "127.0.0.1:9" {
			t.Errorf("HTTPAddress: got %q", info.HTTPAddress)
		}
	})

	t.Run("stale", func(t *testing.T) {
		t.Parallel()
		path := Path(t.TempDir())
		// PID 0 never names a server.
		if err := Write(path, Info{PID: 0}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		_, ok, err := Check(path)
		if err != nil || ok {
			t.Errorf("got ok=%v err=%v, want false and nil", ok, err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		t.Parallel()
		path := Path(t.TempDir())
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		_, _, err := Check(path)
		if err == nil || !strings.Contains(err.Error(), "parsing server info") {
			t.Errorf("got %v, want parse error", err)
		}
	})
}

func TestClear(t *testing.T) {
	t.Parallel()
	path := Path(t.TempDir())
	if err := Clear(path); err != nil {
		t.Errorf("Clear of missing record: %v", err)
	}
	if err := Write(path, Info{PID: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("record still present: %v", err)
	}
}
