// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot encodes a window of a terminal screen as a compact
// binary blob, so a remote renderer can resume a session without
// replaying its whole event log.
//
// A blob is a 32-byte little-endian header followed by a cell stream:
//
//	offset size field
//	0      2    magic 0x5654
//	2      1    version (2)
//	3      1    flags (0)
//	4      4    cols (uint32)
//	8      4    rows (uint32)
//	12     4    viewport top line (int32, index into history+screen)
//	16     4    cursor column (int32)
//	20     4    cursor row relative to the viewport top (int32)
//	24     8    reserved (zero)
//
// The cell stream covers rows×cols positions row by row. Trailing
// halves of wide characters are implied by their leader and never
// written. Each emitted cell is one of:
//
//	0xFF count cell          run: count (2–255) copies of cell
//	char attrs fg bg         basic: ASCII, palette or default colors
//	header attrs glyph fg bg extended: anything else
//
// A basic cell stores the default foreground as 7 and the default
// background as 0; a cell that explicitly uses palette 7 foreground or
// palette 0 background is written extended so decoding stays exact.
//
// The extended header byte has bit 7 set plus flags: 0x40 wide, 0x20
// RGB foreground, 0x10 RGB background, 0x08 default foreground, 0x04
// default background. The attribute byte also has bit 7 set. The glyph
// is UTF-8, its length given by its first byte. Each color follows as
// three bytes (RGB), one byte (palette), or nothing (default).
package snapshot
