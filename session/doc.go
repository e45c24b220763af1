// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session runs commands under pseudo-terminals and records
// everything they do.
//
// A [Controller] owns one child process, the master side of its PTY,
// an event log, and the terminal screen rebuilt from the child's
// output. A single reader goroutine moves each chunk of output through
// the same sequence: UTF-8 sanitization, one log append, one
// interpreter step. Resize and input take the same lock, so the log
// records those operations in exactly the order the screen saw them
// and replaying the log reproduces the live screen.
//
// A [Registry] tracks controllers by id, enforces a session limit, and
// persists each session's metadata next to its log:
//
//	<state>/<id>/session.cast   event log
//	<state>/<id>/session.cbor   metadata (Info, CBOR)
//
// After a server restart, [Registry.Restore] reloads that metadata.
// Sessions whose process died in the meantime become exited; sessions
// whose process is still alive come back detached: they can be
// observed through their log and signaled by pid, but their terminal
// is gone.
package session
