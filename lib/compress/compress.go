// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress implements the transfer encodings the snapshot
// endpoint offers: zstd for ratio and LZ4 block mode for speed.
package compress

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Encoding names a transfer encoding. The string values are the HTTP
// Content-Encoding tokens.
type Encoding string

const (
	Identity Encoding = "identity"
	Zstd     Encoding = "zstd"
	LZ4      Encoding = "lz4"
)

// ErrIncompressible is returned when the encoded form would not be
// smaller than the input. Callers send the input unencoded instead.
var ErrIncompressible = errors.New("compress: data is incompressible")

// ParseEncoding accepts the Content-Encoding tokens above.
func ParseEncoding(name string) (Encoding, error) {
	switch encoding := Encoding(strings.ToLower(strings.TrimSpace(name))); encoding {
	case Identity, Zstd, LZ4:
		return encoding, nil
	case "":
		return Identity, nil
	default:
		return "", fmt.Errorf("unknown encoding %q", name)
	}
}

// Negotiate picks the encoding for an Accept-Encoding header value.
// zstd is preferred over lz4; quality values other than q=0 are not
// ranked.
func Negotiate(acceptEncoding string) Encoding {
	accepted := make(map[Encoding]bool)
	for _, token := range strings.Split(acceptEncoding, ",") {
		name, parameters, _ := strings.Cut(token, ";")
		if strings.ReplaceAll(strings.TrimSpace(parameters), " ", "") == "q=0" {
			continue
		}
		if encoding, err := ParseEncoding(name); err == nil {
			accepted[encoding] = true
		}
	}
	switch {
	case accepted[Zstd]:
		return Zstd
	case accepted[LZ4]:
		return LZ4
	default:
		return Identity
	}
}

// zstd.Encoder and zstd.Decoder are safe for concurrent EncodeAll and
// DecodeAll calls, so one of each serves the process.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode compresses data. Identity returns data unchanged.
func Encode(data []byte, encoding Encoding) ([]byte, error) {
	switch encoding {
	case Identity:
		return data, nil
	case Zstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, ErrIncompressible
		}
		return compressed, nil
	case LZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock reports 0 for data it could not shrink.
		if written == 0 || written >= len(data) {
			return nil, ErrIncompressible
		}
		return destination[:written], nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// Decode reverses Encode. LZ4 blocks do not record their decoded
// length, so size must be the original length; it is checked for
// every encoding.
func Decode(data []byte, encoding Encoding, size int) ([]byte, error) {
	var decoded []byte
	switch encoding {
	case Identity:
		decoded = data
	case Zstd:
		var err error
		decoded, err = zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
	case LZ4:
		decoded = make([]byte, size)
		read, err := lz4.UncompressBlock(data, decoded)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		decoded = decoded[:read]
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	if len(decoded) != size {
		return nil, fmt.Errorf("%s decompress: got %d bytes, want %d", encoding, len(decoded), size)
	}
	return decoded, nil
}
