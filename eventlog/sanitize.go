// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import "unicode/utf8"

// replacement is U+FFFD encoded.
var replacement = []byte(string(utf8.RuneError))

// Sanitizer turns a byte stream split at arbitrary points into valid
// UTF-8 chunks. A multi-byte sequence cut off at the end of one chunk
// is held back and completed by the next. Every byte that cannot be
// part of a valid sequence becomes one U+FFFD, the substitution
// encoding/json and the terminal interpreter also make.
//
// The zero value is ready to use. A Sanitizer is not safe for
// concurrent use.
type Sanitizer struct {
	carry []byte
}

// Sanitize returns the valid UTF-8 text available after appending
// chunk. The result may be empty when chunk only extends a pending
// sequence.
func (s *Sanitizer) Sanitize(chunk []byte) []byte {
	data := chunk
	if len(s.carry) > 0 {
		data = append(s.carry, chunk...)
		s.carry = nil
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		b := data[i]
		if b < utf8.RuneSelf {
			out = append(out, b)
			i++
			continue
		}
		if !utf8.FullRune(data[i:]) {
			s.carry = append([]byte(nil), data[i:]...)
			break
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, replacement...)
		} else {
			out = append(out, data[i:i+size]...)
		}
		i += size
	}
	return out
}

// Flush returns the replacement for a sequence still pending at end of
// stream, and resets the Sanitizer.
func (s *Sanitizer) Flush() []byte {
	var out []byte
	for range s.carry {
		out = append(out, replacement...)
	}
	s.carry = nil
	return out
}

// Pending reports how many bytes are held back.
func (s *Sanitizer) Pending() int { return len(s.carry) }
