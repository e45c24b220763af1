// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contenthash

import "testing"

func TestSumDeterministic(t *testing.T) {
	t.Parallel()
	first := Sum(SnapshotDomain, []byte("screen"))
	second := Sum(SnapshotDomain, []byte("screen"))
	if first != second {
		t.Errorf("digests differ: %s != %s", first, second)
	}
	if len(first.String()) != 64 {
		t.Errorf("hex length: got %d, want 64", len(first.String()))
	}
}

func TestDomainsSeparate(t *testing.T) {
	t.Parallel()
	other := NewDomain("tether.other")
	if Sum(SnapshotDomain, []byte("x")) == Sum(other, []byte("x")) {
		t.Error("same digest under different domains")
	}
}

func TestETagQuoted(t *testing.T) {
	t.Parallel()
	tag := Sum(SnapshotDomain, nil).ETag()
	if tag[0] != '"' || tag[len(tag)-1] != '"' || len(tag) != 66 {
		t.Errorf("ETag: got %q", tag)
	}
}

func TestNewDomainRejectsLongNames(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Error("NewDomain accepted a 33-byte name")
		}
	}()
	NewDomain("0123456789abcdef0123456789abcdefX")
}
