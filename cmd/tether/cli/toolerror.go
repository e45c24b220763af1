// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/tether/api"
)

// ErrorCategory classifies command failures so scripts and the
// entrypoint can decide whether retrying could help.
type ErrorCategory string

const (
	// CategoryValidation means bad arguments or flags.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound means the named session does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryConflict means the session is in the wrong state for the
	// operation, or the id is taken.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient means the server could not be reached or was
	// out of resources. Retrying later may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal means an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized command error with an optional hint
// printed after the message.
type ToolError struct {
	Category ErrorCategory
	Err      error
	Hint     string
}

// Error returns the message, followed by the hint when there is one.
func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets the hint and returns the receiver for chaining.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// FromServer categorizes an error returned by an api.Client call.
// Server-side failures keep their category; anything else means the
// socket itself failed.
func FromServer(err error, socketPath string) error {
	if err == nil {
		return nil
	}
	var serverError *api.Error
	if !errors.As(err, &serverError) {
		return Transient("%w", err).WithHint(fmt.Sprintf(
			"Is tether-server running? It listens on %s (set with --socket or paths.socket).", socketPath))
	}
	switch serverError.Category {
	case api.CategoryNotFound:
		return NotFound("%w", err).WithHint("Run 'tether list' to see sessions.")
	case api.CategoryConflict:
		return &ToolError{Category: CategoryConflict, Err: err}
	case api.CategoryValidation:
		return &ToolError{Category: CategoryValidation, Err: err}
	case api.CategoryExhausted:
		return &ToolError{Category: CategoryTransient, Err: err}
	default:
		return &ToolError{Category: CategoryInternal, Err: err}
	}
}
