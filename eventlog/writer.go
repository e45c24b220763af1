// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/bureau-foundation/tether/lib/clock"
)

var (
	// ErrLocked is returned by Create when another writer holds the
	// log.
	ErrLocked = errors.New("eventlog: log is locked by another writer")

	// ErrClosed is returned by Append after Close or after the exit
	// line has been written.
	ErrClosed = errors.New("eventlog: writer is closed")
)

// Writer appends events to a log file. It is safe for concurrent use;
// appends are serialized and each is one write call, so a concurrent
// reader sees either none or all of a line plus possibly a prefix of
// the next.
type Writer struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	lock   *flock.Flock
	clock  clock.Clock
	start  time.Time
	sync   bool
	last   float64
	size   int64
	closed bool
}

// WriterOption configures Create.
type WriterOption func(*Writer)

// WithSync fsyncs the file after every append.
func WithSync() WriterOption {
	return func(w *Writer) { w.sync = true }
}

// WithClock sets the time source for event timestamps.
func WithClock(c clock.Clock) WriterOption {
	return func(w *Writer) { w.clock = c }
}

// LockPath returns the advisory lock file guarding the log at path.
func LockPath(path string) string { return path + ".lock" }

// Create truncates or creates the log at path, takes its writer lock,
// and writes header. Version defaults to [Version] and Timestamp to the
// current time.
func Create(path string, header Header, options ...WriterOption) (*Writer, error) {
	w := &Writer{path: path, clock: clock.Real()}
	for _, option := range options {
		option(w)
	}
	if header.Version == 0 {
		header.Version = Version
	}
	if header.Version != Version || header.Width <= 0 || header.Height <= 0 {
		return nil, fmt.Errorf("eventlog: invalid header version %d size %dx%d", header.Version, header.Width, header.Height)
	}

	w.lock = flock.New(LockPath(path))
	locked, err := w.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	w.file, err = os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		_ = w.lock.Unlock()
		return nil, fmt.Errorf("creating event log: %w", err)
	}

	w.start = w.clock.Now()
	if header.Timestamp == 0 {
		header.Timestamp = w.start.Unix()
	}
	line, err := json.Marshal(header)
	if err != nil {
		w.release()
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	if err := w.writeLine(line); err != nil {
		w.release()
		return nil, err
	}
	return w, nil
}

// Path returns the log file path.
func (w *Writer) Path() string { return w.path }

// Size returns the number of bytes written so far, header included.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Append stamps event with the time elapsed since Create and writes
// it. Timestamps never decrease. Appending the exit event closes the
// writer. The stamped event is returned.
func (w *Writer) Append(event Event) (Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return Event{}, ErrClosed
	}

	if event.IsExit() {
		event.Time = 0
	} else {
		elapsed := w.clock.Now().Sub(w.start).Seconds()
		w.last = max(w.last, roundTime(elapsed))
		event.Time = w.last
	}

	line, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s event: %w", event.Kind, err)
	}
	if err := w.writeLine(line); err != nil {
		return Event{}, err
	}
	if event.IsExit() {
		w.closeLocked()
	}
	return event, nil
}

// Close releases the file and the lock. It is idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) closeLocked() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.release()
}

func (w *Writer) release() error {
	return errors.Join(w.file.Close(), w.lock.Unlock())
}

// writeLine writes line plus a newline in one call. Caller holds w.mu
// or has exclusive access.
func (w *Writer) writeLine(line []byte) error {
	line = append(line, '\n')
	written, err := w.file.Write(line)
	w.size += int64(written)
	if err != nil {
		return fmt.Errorf("appending to event log: %w", err)
	}
	if w.sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("syncing event log: %w", err)
		}
	}
	return nil
}
