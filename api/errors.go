// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/tether/session"
)

// Category classifies a failure for clients.
type Category string

const (
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryValidation Category = "validation"
	CategoryExhausted  Category = "exhausted"
	CategoryInternal   Category = "internal"
)

// ErrBadRequest marks a request the server could not decode.
var ErrBadRequest = errors.New("bad request")

// sentinels gives each error clients can match on a wire code and a
// category. Order matters only for errors wrapping several sentinels.
var sentinels = []struct {
	code     string
	err      error
	category Category
}{
	{"not_found", session.ErrNotFound, CategoryNotFound},
	{"already_exists", session.ErrAlreadyExists, CategoryConflict},
	{"already_exited", session.ErrAlreadyExited, CategoryConflict},
	{"still_running", session.ErrStillRunning, CategoryConflict},
	{"detached", session.ErrDetached, CategoryConflict},
	{"resource_exhausted", session.ErrResourceExhausted, CategoryExhausted},
	{"invalid_size", session.ErrInvalidSize, CategoryValidation},
	{"unknown_key", session.ErrUnknownKey, CategoryValidation},
	{"invalid_config", session.ErrInvalidConfig, CategoryValidation},
	{"bad_request", ErrBadRequest, CategoryValidation},
}

// Classify returns the wire code and category for err. Errors outside
// the known set are internal with an empty code.
func Classify(err error) (code string, category Category) {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel.err) {
			return sentinel.code, sentinel.category
		}
	}
	return "", CategoryInternal
}

// HTTPStatus returns the status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by Client calls the server answered with a
// failure. errors.Is matches it against the sentinel the server
// reported, so callers test for session.ErrNotFound the same way on
// either side of the socket.
type Error struct {
	Action   string
	Category Category
	Code     string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

// Is reports whether target is the sentinel e was produced from.
func (e *Error) Is(target error) bool {
	if e.Code == "" {
		return false
	}
	for _, sentinel := range sentinels {
		if target == sentinel.err {
			return sentinel.code == e.Code
		}
	}
	return false
}
