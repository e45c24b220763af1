// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrNotFound means no session has the requested id.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyExists means a session with the requested id is
	// already tracked.
	ErrAlreadyExists = errors.New("session already exists")

	// ErrAlreadyExited means the operation needs a running process.
	ErrAlreadyExited = errors.New("session already exited")

	// ErrStillRunning means the operation needs an exited session.
	ErrStillRunning = errors.New("session still running")

	// ErrResourceExhausted means the session limit is reached or the
	// system refused a new PTY or process.
	ErrResourceExhausted = errors.New("resources exhausted")

	// ErrInvalidSize means a non-positive or oversized terminal
	// dimension.
	ErrInvalidSize = errors.New("invalid terminal size")

	// ErrUnknownKey means a key name outside the supported set.
	ErrUnknownKey = errors.New("unknown key")

	// ErrInvalidConfig means a session configuration that cannot be
	// started, such as an empty command or an unusable id.
	ErrInvalidConfig = errors.New("invalid session configuration")

	// ErrDetached means the operation needs the session's terminal,
	// which a restored session no longer has.
	ErrDetached = errors.New("session terminal detached")
)

// ExitCodeIOFailure is recorded when a session ends because its PTY
// or log failed, or when a restored session's exit was not observed.
const ExitCodeIOFailure = -1

// classifySpawnError marks errors meaning the system is out of file
// descriptors or processes.
func classifySpawnError(err error) error {
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) || errors.Is(err, syscall.EAGAIN) {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}
	return err
}
