// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	// Blank terminal rows compress extremely well.
	data := bytes.Repeat([]byte{0xff, 0xff, ' ', 0x00, 7, 0}, 500)

	for _, encoding := range []Encoding{Identity, Zstd, LZ4} {
		t.Run(string(encoding), func(t *testing.T) {
			t.Parallel()
			encoded, err := Encode(data, encoding)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if encoding != Identity && len(encoded) >= len(data) {
				t.Errorf("encoded size %d not smaller than %d", len(encoded), len(data))
			}
			decoded, err := Decode(encoded, encoding, len(data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(decoded, data) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestEncodeIncompressible(t *testing.T) {
	t.Parallel()
	data := make([]byte, 256)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}

	for _, encoding := range []Encoding{Zstd, LZ4} {
		if _, err := Encode(data, encoding); !errors.Is(err, ErrIncompressible) {
			t.Errorf("%s: got %v, want ErrIncompressible", encoding, err)
		}
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("abc"), 100)
	encoded, err := Encode(data, Zstd)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(encoded, Zstd, len(data)-1); err == nil {
		t.Error("Decode accepted wrong size")
	}
}

func TestNegotiate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   Encoding
	}{
		{"", Identity},
		{"gzip, deflate", Identity},
		{"lz4", LZ4},
		{"gzip, lz4, zstd", Zstd},
		{"zstd;q=0, lz4", LZ4},
		{"ZSTD", Zstd},
	}
	for _, test := range tests {
		if got := Negotiate(test.header); got != test.want {
			t.Errorf("Negotiate(%q): got %q, want %q", test.header, got, test.want)
		}
	}
}
