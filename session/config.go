// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/tether/lib/clock"
)

// DefaultTerm is the TERM value children see unless their
// configuration sets one.
const DefaultTerm = "xterm-256color"

// Default grace periods, used when a Config leaves them zero.
const (
	DefaultTerminateGrace = 5 * time.Second
	DefaultDrainGrace     = 500 * time.Millisecond
)

// maxDimension is the largest size a PTY window can report.
const maxDimension = 65535

// Config describes a session to start.
type Config struct {
	// ID names the session. The Registry generates one when empty;
	// Start requires it.
	ID string

	// Command is the argv of the child. Command[0] is resolved
	// through PATH.
	Command []string

	// WorkingDirectory is the child's cwd. Empty inherits the
	// server's.
	WorkingDirectory string

	// Env is merged over the server's environment. TERM defaults to
	// DefaultTerm.
	Env map[string]string

	Cols int
	Rows int

	// Title is recorded in the log header.
	Title string

	// Directory receives the event log and metadata file. It is
	// created if missing.
	Directory string

	// Scrollback bounds the screen's history. Zero means
	// terminal.DefaultScrollback; negative disables it.
	Scrollback int

	TerminateGrace time.Duration
	DrainGrace     time.Duration

	// SyncWrites fsyncs the log after every append.
	SyncWrites bool

	Clock  clock.Clock
	Logger *slog.Logger
}

// validate checks the fields Start cannot default and fills the rest.
func (c *Config) validate() error {
	if c.ID == "" || !validID(c.ID) {
		return fmt.Errorf("%w: id %q", ErrInvalidConfig, c.ID)
	}
	if len(c.Command) == 0 || c.Command[0] == "" {
		return fmt.Errorf("%w: empty command", ErrInvalidConfig)
	}
	if c.Directory == "" {
		return fmt.Errorf("%w: no session directory", ErrInvalidConfig)
	}
	if err := checkSize(c.Cols, c.Rows); err != nil {
		return err
	}
	if c.TerminateGrace <= 0 {
		c.TerminateGrace = DefaultTerminateGrace
	}
	if c.DrainGrace <= 0 {
		c.DrainGrace = DefaultDrainGrace
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	c.Command = slices.Clone(c.Command)
	return nil
}

// validID accepts ids usable as a single path element.
func validID(id string) bool {
	return id != "." && id != ".." && !strings.ContainsAny(id, "/\\\x00") && filepath.Base(id) == id
}

func checkSize(cols, rows int) error {
	if cols <= 0 || rows <= 0 || cols > maxDimension || rows > maxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, cols, rows)
	}
	return nil
}

// environment merges overrides over the server environment. TERM is
// DefaultTerm unless overrides set it; the server's own TERM describes
// the server's terminal, not this one.
func environment(overrides map[string]string) []string {
	merged := make(map[string]string)
	var order []string
	set := func(key, value string) {
		if _, ok := merged[key]; !ok {
			order = append(order, key)
		}
		merged[key] = value
	}
	for _, entry := range os.Environ() {
		key, value, _ := strings.Cut(entry, "=")
		set(key, value)
	}
	set("TERM", DefaultTerm)
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		set(key, overrides[key])
	}

	result := make([]string, 0, len(order))
	for _, key := range order {
		result = append(result, key+"="+merged[key])
	}
	return result
}
