// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package terminal models a terminal screen and interprets the byte
// stream a program writes to its PTY.
//
// [Screen] is the grid of [Cell] values plus cursor, pen, scroll region,
// mode flags, and a bounded scrollback. It knows nothing about escape
// sequences: its methods are the primitive mutations a terminal performs
// (write a cell, scroll the region, erase, switch to the alternate
// screen, resize).
//
// [Interpreter] is the escape-sequence state machine. It consumes bytes
// one at a time and drives a Screen. Parser state (a half-read CSI
// sequence, a partial UTF-8 code point) lives in the Interpreter, so
// feeding the same bytes in different chunkings produces the same
// screen. This is what lets a live session and an offline replay of its
// event log agree cell for cell.
//
// The interpreter has no error path. Sequences it does not recognize are
// dropped and plain-text interpretation resumes with the next byte.
//
// Neither type is safe for concurrent use. The session controller owns
// each Screen and serializes access to it; observers work on copies
// obtained through [Screen.Clone].
package terminal
