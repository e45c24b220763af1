// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import "testing"

func TestRowANSI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello   ", "hello"},
		{"red", "\x1b[31mred\x1b[0m ok", "\x1b[0;31mred\x1b[0m ok"},
		{"bold bright", "\x1b[1;92mgo", "\x1b[0;1;92mgo\x1b[0m"},
		{"palette", "\x1b[38;5;200mx", "\x1b[0;38;5;200mx\x1b[0m"},
		{"rgb background", "\x1b[48;2;1;2;3mx", "\x1b[0;48;2;1;2;3mx\x1b[0m"},
		{"wide", "中a", "中a"},
		{"colored blanks kept", "\x1b[44m  ", "\x1b[0;44m  \x1b[0m"},
	}
	for _, test := range tests {
		screen := render(10, 1, test.input)
		if got := RowANSI(screen.Row(0)); got != test.want {
			t.Errorf("%s: got %q, want %q", test.name, got, test.want)
		}
	}
}

func TestRowANSIRoundTrip(t *testing.T) {
	t.Parallel()
	source := render(12, 1, "\x1b[3;35mab\x1b[0m \x1b[7mcd\x1b[27m中")

	replayed := render(12, 1, RowANSI(source.Row(0)))
	for x := range 12 {
		if got, want := replayed.Cell(x, 0), source.Cell(x, 0); got != want {
			t.Errorf("cell %d: got %+v, want %+v", x, got, want)
		}
	}
}
