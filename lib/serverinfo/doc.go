// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package serverinfo records where a running tether-server can be
// reached. The server writes server.json into its state directory once
// every listener accepts connections and removes it on exit; clients
// read it to find the HTTP address actually bound, which differs from
// the configured one when the server was started with port 0 or with
// an --http override.
//
// The file is written atomically (temporary file, fsync, rename) so a
// reader never sees a partial record. A record left behind by a server
// that crashed is detected by Check, which probes the recorded PID.
package serverinfo
