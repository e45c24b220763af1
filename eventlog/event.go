// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Version is the header version this package writes and accepts.
const Version = 2

// ErrMalformed is returned for a line that is not a valid header or
// event.
var ErrMalformed = errors.New("eventlog: malformed line")

// Header is the first line of a log.
type Header struct {
	Version int `json:"version"`
	Width   int `json:"width"`
	Height  int `json:"height"`

	// Timestamp is the session start in unix seconds.
	Timestamp int64             `json:"timestamp,omitempty"`
	Command   string            `json:"command,omitempty"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// Kind is an event type code.
type Kind string

const (
	KindOutput Kind = "o"
	KindInput  Kind = "i"
	KindResize Kind = "r"
	// KindExit is never written as the second element; it marks the
	// exit line after parsing.
	KindExit Kind = "exit"
)

// Event is one log line after the header.
type Event struct {
	// Time is seconds since the session started. Zero on exit events.
	Time float64
	Kind Kind

	// Data is the payload of output and input events.
	Data string

	// Cols and Rows are set on resize events.
	Cols int
	Rows int

	// ExitCode and SessionID are set on exit events.
	ExitCode  int
	SessionID string
}

// Output returns an output event.
func Output(t float64, data string) Event { return Event{Time: t, Kind: KindOutput, Data: data} }

// Input returns an input event.
func Input(t float64, data string) Event { return Event{Time: t, Kind: KindInput, Data: data} }

// Resize returns a resize event.
func Resize(t float64, cols, rows int) Event {
	return Event{Time: t, Kind: KindResize, Cols: cols, Rows: rows}
}

// Exit returns the terminating event.
func Exit(code int, sessionID string) Event {
	return Event{Kind: KindExit, ExitCode: code, SessionID: sessionID}
}

// IsExit reports whether this is the exit line.
func (e Event) IsExit() bool { return e.Kind == KindExit }

// MarshalJSON encodes the event in its array form.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindExit:
		return json.Marshal([]any{"exit", e.ExitCode, e.SessionID})
	case KindOutput, KindInput:
		return json.Marshal([]any{roundTime(e.Time), string(e.Kind), e.Data})
	case KindResize:
		return json.Marshal([]any{roundTime(e.Time), string(e.Kind), fmt.Sprintf("%dx%d", e.Cols, e.Rows)})
	default:
		return nil, fmt.Errorf("eventlog: cannot encode event kind %q", e.Kind)
	}
}

// UnmarshalJSON decodes the array form, including the exit line.
func (e *Event) UnmarshalJSON(data []byte) error {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(elements) != 3 {
		return fmt.Errorf("%w: event has %d elements, want 3", ErrMalformed, len(elements))
	}

	var marker string
	if json.Unmarshal(elements[0], &marker) == nil {
		if marker != "exit" {
			return fmt.Errorf("%w: unknown marker %q", ErrMalformed, marker)
		}
		var decoded Event
		decoded.Kind = KindExit
		if err := json.Unmarshal(elements[1], &decoded.ExitCode); err != nil {
			return fmt.Errorf("%w: exit code: %v", ErrMalformed, err)
		}
		if err := json.Unmarshal(elements[2], &decoded.SessionID); err != nil {
			return fmt.Errorf("%w: session id: %v", ErrMalformed, err)
		}
		*e = decoded
		return nil
	}

	var decoded Event
	if err := json.Unmarshal(elements[0], &decoded.Time); err != nil {
		return fmt.Errorf("%w: time: %v", ErrMalformed, err)
	}
	if decoded.Time < 0 || math.IsNaN(decoded.Time) {
		return fmt.Errorf("%w: negative time %v", ErrMalformed, decoded.Time)
	}
	var kind string
	if err := json.Unmarshal(elements[1], &kind); err != nil {
		return fmt.Errorf("%w: kind: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(elements[2], &decoded.Data); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	decoded.Kind = Kind(kind)
	switch decoded.Kind {
	case KindOutput, KindInput:
	case KindResize:
		cols, rows, err := parseSize(decoded.Data)
		if err != nil {
			return err
		}
		decoded.Cols, decoded.Rows, decoded.Data = cols, rows, ""
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformed, kind)
	}
	*e = decoded
	return nil
}

// ParseHeader decodes a header line.
func ParseHeader(line []byte) (Header, error) {
	var header Header
	decoder := json.NewDecoder(bytes.NewReader(line))
	if err := decoder.Decode(&header); err != nil {
		return Header{}, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if header.Version != Version {
		return Header{}, fmt.Errorf("%w: header version %d, want %d", ErrMalformed, header.Version, Version)
	}
	if header.Width <= 0 || header.Height <= 0 {
		return Header{}, fmt.Errorf("%w: header size %dx%d", ErrMalformed, header.Width, header.Height)
	}
	return header, nil
}

// ParseEvent decodes an event line.
func ParseEvent(line []byte) (Event, error) {
	var event Event
	if err := event.UnmarshalJSON(line); err != nil {
		return Event{}, err
	}
	return event, nil
}

func parseSize(payload string) (cols, rows int, err error) {
	colsText, rowsText, found := strings.Cut(payload, "x")
	if found {
		cols, err = strconv.Atoi(colsText)
		if err == nil {
			rows, err = strconv.Atoi(rowsText)
		}
	}
	if !found || err != nil || cols <= 0 || rows <= 0 {
		return 0, 0, fmt.Errorf("%w: resize payload %q", ErrMalformed, payload)
	}
	return cols, rows, nil
}

// roundTime keeps timestamps at microsecond precision so lines stay
// short.
func roundTime(t float64) float64 {
	return math.Round(t*1e6) / 1e6
}
