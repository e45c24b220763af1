// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework behind the tether binary.
//
// A [Command] tree dispatches on the first positional argument, parses
// pflag flag sets lazily, and prints structured help. Commands report
// failures as [ToolError] values so the entrypoint can tell bad input
// from an unreachable server, and [ExitError] lets a command that has
// already printed its result exit non-zero without an extra message.
//
// Tabular output goes through [Table], which measures cells with
// escape-aware widths so styled text lines up.
package cli
