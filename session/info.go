// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/tether/lib/codec"
)

// File names inside a session directory.
const (
	LogFileName  = "session.cast"
	InfoFileName = "session.cbor"
)

// State is a session's lifecycle state.
type State string

const (
	StateRunning State = "running"
	StateExited  State = "exited"
)

// Info describes a session. It is the persisted metadata record and
// the value every listing and lookup returns.
type Info struct {
	ID               string    `cbor:"id" json:"id"`
	Command          []string  `cbor:"command" json:"command"`
	WorkingDirectory string    `cbor:"working_directory,omitempty" json:"working_directory,omitempty"`
	PID              int       `cbor:"pid" json:"pid"`
	State            State     `cbor:"state" json:"state"`
	ExitCode         int       `cbor:"exit_code" json:"exit_code"`
	Cols             int       `cbor:"cols" json:"cols"`
	Rows             int       `cbor:"rows" json:"rows"`
	StartedAt        time.Time `cbor:"started_at" json:"started_at"`
	ExitedAt         time.Time `cbor:"exited_at" json:"exited_at,omitzero"`
	LogPath          string    `cbor:"log_path" json:"log_path"`

	// Detached is set on sessions restored from disk whose process
	// outlived the server that started it.
	Detached bool `cbor:"detached,omitempty" json:"detached,omitempty"`
}

// Running reports whether the session's process has not exited.
func (i Info) Running() bool { return i.State == StateRunning }

func (i Info) clone() Info {
	i.Command = slices.Clone(i.Command)
	return i
}

// writeInfo atomically replaces the metadata file in directory.
func writeInfo(directory string, info Info) error {
	data, err := codec.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding session metadata: %w", err)
	}
	temporary, err := os.CreateTemp(directory, "."+InfoFileName+".*")
	if err != nil {
		return fmt.Errorf("writing session metadata: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporary.Name())
		return fmt.Errorf("writing session metadata: %w", err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporary.Name())
		return fmt.Errorf("writing session metadata: %w", err)
	}
	if err := os.Rename(temporary.Name(), filepath.Join(directory, InfoFileName)); err != nil {
		os.Remove(temporary.Name())
		return fmt.Errorf("writing session metadata: %w", err)
	}
	return nil
}

// readInfo loads the metadata file in directory.
func readInfo(directory string) (Info, error) {
	data, err := os.ReadFile(filepath.Join(directory, InfoFileName))
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := codec.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("decoding %s: %w", filepath.Join(directory, InfoFileName), err)
	}
	if info.ID == "" {
		return Info{}, fmt.Errorf("decoding %s: missing id", filepath.Join(directory, InfoFileName))
	}
	return info, nil
}

// sessionLeaderAlive reports whether pid names a live process that
// still leads its own session. Every child is spawned with Setsid, so
// a recorded pid reused by an unrelated process fails the getsid check
// and is never signaled.
func sessionLeaderAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}
	sid, err := unix.Getsid(pid)
	return err == nil && sid == pid
}
