// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventlog records terminal sessions as newline-delimited JSON
// and reads them back.
//
// A log starts with a header object:
//
//	{"version":2,"width":80,"height":24,"timestamp":1767225600,"command":"/bin/sh"}
//
// followed by one event per line, each a three-element array of
// seconds since the session started, a kind, and a string payload:
//
//	[0.012,"o","$ "]
//	[1.5,"i","ls\r"]
//	[2.25,"r","120x40"]
//
// Output ("o") is what the program wrote to the terminal. Input ("i")
// is recorded for audit and never replayed onto the screen. Resize
// ("r") carries "<cols>x<rows>". The format is compatible with
// asciicast v2 players up to the final line, which is tether's own:
//
//	["exit",0,"build"]
//
// The first element of the exit line is the literal string "exit"
// rather than a time, followed by the exit code and the session id.
// Readers check for it before parsing the first element as a number.
//
// A [Writer] appends with one write call per line and holds an
// exclusive lock so only one process ever writes a given log. Readers
// tolerate a log that is still being written: [ReadAll] ignores a
// trailing partial line and a [Tail] waits for it to be completed.
//
// Payloads are always valid UTF-8. Raw terminal output passes through
// a [Sanitizer] before it is logged or interpreted, so the screen a
// live session shows and the screen [Replay] rebuilds from its log are
// identical.
package eventlog
