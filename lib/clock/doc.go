// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Event log timestamps, tail polling, and process termination grace
// periods all read time through a Clock. Production code passes
// Real(); tests pass Fake() and move time with Advance:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go waitForSomething(fake)
//	fake.WaitForTimers(1)
//	fake.Advance(5 * time.Second)
package clock
