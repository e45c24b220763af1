// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Log is the parsed content of a log file.
type Log struct {
	Header Header

	// Events holds every well-formed event in file order, including
	// the exit event when present.
	Events []Event

	// Malformed counts event lines that could not be parsed and were
	// skipped.
	Malformed int
}

// Exit returns the exit event, if the log has one.
func (l *Log) Exit() (Event, bool) {
	if n := len(l.Events); n > 0 && l.Events[n-1].IsExit() {
		return l.Events[n-1], true
	}
	return Event{}, false
}

// Duration returns the time of the last timed event.
func (l *Log) Duration() float64 {
	for i := len(l.Events) - 1; i >= 0; i-- {
		if !l.Events[i].IsExit() {
			return l.Events[i].Time
		}
	}
	return 0
}

// ReadAll parses the log at path. A log still being written is fine:
// a trailing line without its newline is ignored.
func ReadAll(path string) (*Log, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads a log from r. The header must be well formed; event
// lines that are not are counted in Malformed. Lines after the exit
// line are ignored.
func Parse(r io.Reader) (*Log, error) {
	reader := bufio.NewReader(r)
	log := &Log{}

	line, err := readLine(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformed)
		}
		return nil, err
	}
	if log.Header, err = ParseHeader(line); err != nil {
		return nil, err
	}

	for {
		line, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			return log, nil
		}
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		event, err := ParseEvent(line)
		if err != nil {
			log.Malformed++
			continue
		}
		log.Events = append(log.Events, event)
		if event.IsExit() {
			return log, nil
		}
	}
}

// readLine returns the next complete line without its newline. A
// final unterminated line is reported as io.EOF.
func readLine(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading event log: %w", err)
	}
	return line[:len(line)-1], nil
}
