// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bureau-foundation/tether/lib/clock"
)

// DefaultPollInterval is how often a Tail checks for growth.
const DefaultPollInterval = 100 * time.Millisecond

// entryBuffer bounds how far a Tail reads ahead of its consumer.
const entryBuffer = 64

// Entry is one complete line delivered by a Tail.
type Entry struct {
	// Header is set only for the header line, delivered when tailing
	// from offset 0.
	Header *Header

	// Event is the parsed event. Zero for the header line.
	Event Event

	// Offset is the byte offset just past this line's newline. Passing
	// it to OpenTail resumes after this entry.
	Offset int64

	// Raw is the line without its newline.
	Raw []byte
}

// Tail follows a log file as it grows.
type Tail struct {
	path     string
	offset   int64
	entries  chan Entry
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger
}

// TailOption configures OpenTail.
type TailOption func(*Tail)

// WithPollInterval sets how often the file is checked for growth.
func WithPollInterval(interval time.Duration) TailOption {
	return func(t *Tail) { t.interval = interval }
}

// WithTailClock sets the clock driving the poll ticker.
func WithTailClock(c clock.Clock) TailOption {
	return func(t *Tail) { t.clock = c }
}

// WithTailLogger sets the logger malformed lines are reported to.
func WithTailLogger(logger *slog.Logger) TailOption {
	return func(t *Tail) { t.logger = logger }
}

// OpenTail starts following the log at path from offset, which must be
// 0 or an Offset from a previous Entry. Entries arrive on Entries until
// the exit line has been delivered, ctx is canceled, Close is called,
// or reading fails. Tailing never affects the writer.
func OpenTail(ctx context.Context, path string, offset int64, options ...TailOption) (*Tail, error) {
	if offset < 0 {
		return nil, fmt.Errorf("eventlog: negative tail offset %d", offset)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seeking event log: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	tail := &Tail{
		path:     path,
		offset:   offset,
		entries:  make(chan Entry, entryBuffer),
		cancel:   cancel,
		done:     make(chan struct{}),
		clock:    clock.Real(),
		interval: DefaultPollInterval,
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(tail)
	}
	go tail.run(ctx, file)
	return tail, nil
}

// Entries delivers complete lines in file order. It is closed when the
// tail stops.
func (t *Tail) Entries() <-chan Entry { return t.entries }

// Done is closed when the tail has stopped.
func (t *Tail) Done() <-chan struct{} { return t.done }

// Err returns why the tail stopped: nil after the exit line, the
// context's error after cancellation or Close, or a read error. Only
// meaningful after Done is closed.
func (t *Tail) Err() error {
	<-t.done
	return t.err
}

// Close stops the tail and waits for its goroutine to exit.
func (t *Tail) Close() {
	t.cancel()
	<-t.done
}

func (t *Tail) run(ctx context.Context, file *os.File) {
	defer close(t.done)
	defer close(t.entries)
	defer file.Close()
	defer t.cancel()

	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	var pending []byte
	chunk := make([]byte, 32*1024)
	for {
		n, err := file.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
			var finished bool
			pending, finished, err = t.deliver(ctx, pending)
			if err != nil {
				t.err = err
				return
			}
			if finished {
				return
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			t.err = fmt.Errorf("reading event log: %w", err)
			return
		}
		select {
		case <-ctx.Done():
			t.err = ctx.Err()
			return
		case <-ticker.C:
		}
	}
}

// deliver sends every complete line in pending and returns the
// unconsumed remainder. finished is true once the exit line is sent.
func (t *Tail) deliver(ctx context.Context, pending []byte) (rest []byte, finished bool, err error) {
	for {
		newline := bytes.IndexByte(pending, '\n')
		if newline < 0 {
			return pending, false, nil
		}
		raw := append([]byte(nil), pending[:newline]...)
		start := t.offset
		t.offset += int64(newline + 1)
		pending = pending[newline+1:]

		entry := Entry{Offset: t.offset, Raw: raw}
		if start == 0 {
			header, err := ParseHeader(raw)
			if err != nil {
				return nil, false, err
			}
			entry.Header = &header
		} else if len(bytes.TrimSpace(raw)) == 0 {
			continue
		} else if entry.Event, err = ParseEvent(raw); err != nil {
			t.logger.Warn("skipping malformed event log line",
				"path", t.path, "offset", start, "error", err)
			continue
		}

		select {
		case t.entries <- entry:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
		if entry.Event.IsExit() {
			return nil, true, nil
		}
	}
}
