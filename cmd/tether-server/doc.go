// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Tether-server owns the terminal sessions. It spawns commands under
// pseudo-terminals, records their output to per-session event logs in
// the state directory, and serves two interfaces:
//
//   - a CBOR control socket (paths.socket) for the tether CLI: create,
//     input, resize, signal, kill, snapshot, and cleanup
//   - an optional HTTP listener (server.http_address) with compressed
//     snapshot downloads and a websocket log stream
//
// On start it restores sessions recorded by a previous run: exited
// ones stay inspectable and children that outlived their server are
// tracked as detached. On SIGINT or SIGTERM every running session is
// terminated before the server exits.
package main
