// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Tether is the command-line client for tether-server. It creates and
// drives terminal sessions over the server's control socket, prints
// their screens, replays recorded logs offline, and attaches the
// local terminal to a running session.
//
//	tether create --id build -- make -j8
//	tether snapshot build --lines 100
//	tether attach build
package main
