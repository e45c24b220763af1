// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package api

import "github.com/bureau-foundation/tether/lib/codec"

// Socket actions.
const (
	ActionCreate   = "create"
	ActionList     = "list"
	ActionGet      = "get"
	ActionKill     = "kill"
	ActionSignal   = "signal"
	ActionRemove   = "remove"
	ActionCleanup  = "cleanup"
	ActionResize   = "resize"
	ActionInput    = "input"
	ActionKey      = "key"
	ActionSnapshot = "snapshot"
)

// Response is the envelope of every socket response.
type Response struct {
	OK       bool             `cbor:"ok"`
	Error    string           `cbor:"error,omitempty"`
	Category Category         `cbor:"category,omitempty"`
	Code     string           `cbor:"code,omitempty"`
	Data     codec.RawMessage `cbor:"data,omitempty"`
}

// CreateRequest starts a session. Zero fields take the server's
// defaults.
type CreateRequest struct {
	ID               string            `cbor:"id,omitempty"`
	Command          []string          `cbor:"command,omitempty"`
	WorkingDirectory string            `cbor:"working_directory,omitempty"`
	Env              map[string]string `cbor:"env,omitempty"`
	Cols             int               `cbor:"cols,omitempty"`
	Rows             int               `cbor:"rows,omitempty"`
	Title            string            `cbor:"title,omitempty"`
}

// SessionRequest names the session an action applies to.
type SessionRequest struct {
	ID string `cbor:"id"`
}

// ResizeRequest resizes a session's terminal.
type ResizeRequest struct {
	ID   string `cbor:"id"`
	Cols int    `cbor:"cols"`
	Rows int    `cbor:"rows"`
}

// InputRequest writes raw bytes to a session's terminal.
type InputRequest struct {
	ID   string `cbor:"id"`
	Data []byte `cbor:"data"`
}

// KeyRequest sends a named key.
type KeyRequest struct {
	ID  string `cbor:"id"`
	Key string `cbor:"key"`
}

// SignalRequest delivers a signal, named ("INT", "SIGINT") or
// numbered ("2").
type SignalRequest struct {
	ID     string `cbor:"id"`
	Signal string `cbor:"signal"`
}

// SnapshotRequest selects a snapshot window. With neither field set
// the live screen is captured; Lines takes precedence over Top.
type SnapshotRequest struct {
	ID    string `cbor:"id"`
	Lines int    `cbor:"lines,omitempty"`
	Top   *int   `cbor:"top,omitempty"`
}

// SnapshotResponse carries an encoded snapshot.
type SnapshotResponse struct {
	Snapshot []byte `cbor:"snapshot"`
}

// CleanupResponse lists the sessions a cleanup removed.
type CleanupResponse struct {
	Removed []string `cbor:"removed" json:"removed"`

	// Errors holds per-session failures that did not stop the sweep.
	Errors []string `cbor:"errors,omitempty" json:"errors,omitempty"`
}
