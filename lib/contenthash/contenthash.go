// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contenthash computes domain-separated BLAKE3 digests. The
// snapshot endpoint uses them as ETags, so the same screen state always
// produces the same tag and a revalidating client gets 304.
package contenthash

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// Domain is a 32-byte BLAKE3 key. Hashing the same bytes under two
// domains gives unrelated digests.
type Domain [32]byte

// NewDomain pads name with zeros to a key. Names longer than 32 bytes
// panic: domains are fixed constants chosen at compile time.
func NewDomain(name string) Domain {
	if len(name) > len(Domain{}) {
		panic("contenthash: domain name longer than 32 bytes: " + name)
	}
	var domain Domain
	copy(domain[:], name)
	return domain
}

// SnapshotDomain keys digests of encoded screen snapshots.
var SnapshotDomain = NewDomain("tether.snapshot")

// Sum hashes data under domain.
func Sum(domain Domain, data []byte) Hash {
	hasher, err := blake3.NewKeyed(domain[:])
	if err != nil {
		panic("contenthash: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// String returns the lowercase hex digest.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ETag returns the digest as a strong HTTP entity tag, quoted.
func (h Hash) ETag() string { return `"` + h.String() + `"` }
