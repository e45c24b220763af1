// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by tether tests: bounded
// channel waits, short socket directories, and PTY availability checks.
package testutil
