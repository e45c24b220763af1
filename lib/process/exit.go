// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint error handling shared by the
// tether binaries.
package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status
// and have already reported themselves to the user.
type exitCoder interface {
	ExitCode() int
}

// Fatal reports err on stderr and exits. Errors that carry an exit code
// exit with it silently; everything else prints "error: ..." and exits
// 1. Use it in main for errors returned before a logger exists.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes err to w unless it carries its own exit code and
// returns the status to exit with.
func report(w io.Writer, err error) int {
	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
