// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serverinfo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// FileName is the record's name inside the state directory.
const FileName = "server.json"

// Info describes one running server.
type Info struct {
	PID         int       `json:"pid"`
	Socket      string    `json:"socket"`
	HTTPAddress string    `json:"http_address,omitempty"`
	Version     string    `json:"version"`
	StartedAt   time.Time `json:"started_at"`
}

// Path returns the record's location for a state directory.
func Path(stateDirectory string) string {
	return filepath.Join(stateDirectory, FileName)
}

// Write atomically replaces the record at path. The file is created
// with mode 0600; the parent directory must already exist.
func Write(path string, info Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling server info: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary server info file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary server info file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary server info file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary server info file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming server info file into place: %w", err)
	}

	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read parses the record at path. A missing file yields an error
// wrapping os.ErrNotExist.
func Read(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("parsing server info %s: %w", path, err)
	}
	return info, nil
}

// Check reads the record and reports whether the server it names is
// still alive. A missing record or a dead PID returns false with a nil
// error; unreadable or corrupt records return the error.
func Check(path string) (Info, bool, error) {
	info, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, false, nil
		}
		return Info{}, false, err
	}
	if !alive(info.PID) {
		return Info{}, false, nil
	}
	return info, true, nil
}

// Clear removes the record. Removing a missing record is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing server info: %w", err)
	}
	return nil
}

// alive probes pid with signal 0. EPERM means the process exists but
// belongs to someone else.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
