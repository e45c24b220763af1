// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds tether's CBOR configuration.
//
// CBOR carries everything internal: the control socket protocol
// between the tether CLI and the server, and the session.cbor metadata
// file each session keeps next to its event log. The event log itself
// is newline-delimited JSON so that existing cast players can read it.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same value always produces the same bytes.
//
// Types that only ever travel as CBOR use `cbor` struct tags. Types
// that are also printed as JSON by the CLI use `json` tags, which
// fxamacker/cbor reads as a fallback. Never put both on one field.
package codec
