// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"bytes"
	"testing"
	"unicode/utf8"
)

func TestSanitizerCarriesSplitSequence(t *testing.T) {
	t.Parallel()
	var sanitizer Sanitizer
	euro := []byte("€") // e2 82 ac

	first := sanitizer.Sanitize(append([]byte("a"), euro[:2]...))
	if string(first) != "a" {
		t.Errorf("first chunk: got %q, want %q", first, "a")
	}
	if sanitizer.Pending() != 2 {
		t.Errorf("Pending: got %d, want 2", sanitizer.Pending())
	}
	second := sanitizer.Sanitize(append(euro[2:], 'b'))
	if string(second) != "€b" {
		t.Errorf("second chunk: got %q, want %q", second, "€b")
	}
}

func TestSanitizerReplacesInvalidBytes(t *testing.T) {
	t.Parallel()
	var sanitizer Sanitizer

	got := sanitizer.Sanitize([]byte("a\xffb\xe2\x82c"))
	if want := "a�b��c"; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSanitizerFlush(t *testing.T) {
	t.Parallel()
	var sanitizer Sanitizer

	sanitizer.Sanitize([]byte("x\xf0\x9f"))
	if got := sanitizer.Flush(); string(got) != "��" {
		t.Errorf("Flush: got %q", got)
	}
	if sanitizer.Pending() != 0 {
		t.Error("Flush did not reset")
	}
}

// TestSanitizerChunkingIndependence checks that any split of a stream
// yields the same text as sanitizing it whole.
func TestSanitizerChunkingIndependence(t *testing.T) {
	t.Parallel()
	input := []byte("héllo 中文 \xff\xfe 🎉 \xe2\x28\xa1 end\xc3")

	var whole Sanitizer
	want := append(whole.Sanitize(input), whole.Flush()...)
	if !utf8.Valid(want) {
		t.Fatalf("output not valid UTF-8: %q", want)
	}

	for split := range len(input) + 1 {
		var sanitizer Sanitizer
		got := sanitizer.Sanitize(input[:split])
		got = append(got, sanitizer.Sanitize(input[split:])...)
		got = append(got, sanitizer.Flush()...)
		if !bytes.Equal(got, want) {
			t.Errorf("split %d: got %q, want %q", split, got, want)
		}
	}
}
