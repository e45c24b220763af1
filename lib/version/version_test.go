// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name                     string
		commit, dirty, buildTime string
		settings                 map[string]string
		want                     string
	}{
		{"injected", "abc1234", "false", "2026-01-01", nil, Version + " (abc1234, 2026-01-01)"},
		{"injected dirty", "abc1234", "true", "2026-01-01", nil, Version + " (abc1234-dirty, 2026-01-01)"},
		{
			"vcs stamp", "unknown", "false", "unknown",
			map[string]string{"vcs.revision": "0123456789abcdef", "vcs.modified": "true", "vcs.time": "2026-02-03T04:05:06Z"},
			Version + " (0123456789ab-dirty, 2026-02-03T04:05:06Z)",
		},
		{"nothing known", "unknown", "false", "unknown", map[string]string{}, Version + " (unknown, unknown)"},
	}
	for _, test := range tests {
		if got := format(test.commit, test.dirty, test.buildTime, test.settings); got != test.want {
			t.Errorf("%s: got %q, want %q", test.name, got, test.want)
		}
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	t.Parallel()
	if full := Full(); !strings.Contains(full, "Platform: ") || !strings.HasPrefix(full, Version) {
		t.Errorf("Full() = %q", full)
	}
}
