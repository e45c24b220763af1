// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.cast")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadAll(t *testing.T) {
	t.Parallel()
	path := writeLog(t,
		`{"version":2,"width":10,"height":2}`+"\n",
		`[0.1,"o","hello"]`+"\n",
		`garbage`+"\n",
		"\n",
		`[0.2,"i","q"]`+"\n",
		`[0.3,"r","20x4"]`+"\n",
		`["exit",0,"s"]`+"\n",
		`[0.4,"o","after exit"]`+"\n",
	)

	log, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(log.Events) != 4 {
		t.Fatalf("events: got %d, want 4", len(log.Events))
	}
	if log.Malformed != 1 {
		t.Errorf("Malformed: got %d, want 1", log.Malformed)
	}
	exit, ok := log.Exit()
	if !ok || exit.SessionID != "s" {
		t.Errorf("Exit: got %+v, %v", exit, ok)
	}
	if got := log.Duration(); got != 0.3 {
		t.Errorf("Duration: got %v, want 0.3", got)
	}
}

func TestReadAllIgnoresPartialLastLine(t *testing.T) {
	t.Parallel()
	path := writeLog(t,
		`{"version":2,"width":10,"height":2}`+"\n",
		`[0.1,"o","complete"]`+"\n",
		`[0.2,"o","trunc`,
	)

	log, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(log.Events) != 1 || log.Malformed != 0 {
		t.Errorf("events %d malformed %d, want 1 and 0", len(log.Events), log.Malformed)
	}
	if _, ok := log.Exit(); ok {
		t.Error("unexpected exit event")
	}
}

func TestReadAllRequiresHeader(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", `{"version":2,"width":10`, "[0.1,\"o\",\"x\"]\n"} {
		path := writeLog(t, content)
		if _, err := ReadAll(path); !errors.Is(err, ErrMalformed) {
			t.Errorf("ReadAll(%q): got %v, want ErrMalformed", content, err)
		}
	}
}
