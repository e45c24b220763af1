// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"testing"
)

func TestTableAlignsColumns(t *testing.T) {
	t.Parallel()
	table := NewTable("ID", "STATE", "COMMAND")
	table.Append("build", "running", "make all")
	table.Append("中文", "exited(0)", "sh")

	var output bytes.Buffer
	if err := table.Render(&output, false); err != nil {
		t.Fatal(err)
	}
	want := "" +
		"ID     STATE      COMMAND\n" +
		"build  running    make all\n" +
		"中文   exited(0)  sh\n"
	if output.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", output.String(), want)
	}
}

func TestTableTruncatesLastColumn(t *testing.T) {
	t.Parallel()
	table := NewTable("ID", "COMMAND")
	table.MaxWidth = 12
	table.Append("a", "a very long command line")

	var output bytes.Buffer
	if err := table.Render(&output, false); err != nil {
		t.Fatal(err)
	}
	want := "ID  COMMAND\n" + "a   a very …\n"
	if output.String() != want {
		t.Errorf("got %q, want %q", output.String(), want)
	}
}

func TestStateLabelPlain(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state string
		code  int
		want  string
	}{
		{"running", 0, "running"},
		{"exited", 0, "exited(0)"},
		{"exited", 137, "exited(137)"},
	}
	for _, test := range tests {
		if got := StateLabel(test.state, test.code, false); got != test.want {
			t.Errorf("StateLabel(%q, %d) = %q, want %q", test.state, test.code, got, test.want)
		}
	}
}
