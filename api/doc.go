// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes a session registry to clients.
//
// The control surface is a CBOR request-response protocol on a unix
// socket: each connection carries one request map with an "action"
// field and receives one [Response]. [SocketServer] serves it and
// [Client] speaks it. Failed responses carry an error category
// (not_found, conflict, validation, exhausted, internal) so clients
// can match errors against the session package's sentinels with
// errors.Is.
//
// The observation surface is HTTP, served by [HTTPServer] with the
// handler from [Service.HTTPHandler]:
//
//	GET /sessions                      session list (JSON)
//	GET /sessions/{id}                 one session (JSON)
//	GET /sessions/{id}/snapshot        binary screen snapshot
//	GET /sessions/{id}/stream?offset=N websocket, one log line per message
//
// Snapshots honor Accept-Encoding (zstd, lz4) and carry a BLAKE3 ETag;
// a matching If-None-Match gets 304. The snapshot window is chosen
// with ?lines=N (last N lines) or ?top=N (one screen from line N).
package api
