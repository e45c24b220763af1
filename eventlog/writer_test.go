// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/tether/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestWriter(t *testing.T, options ...WriterOption) (*Writer, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	path := filepath.Join(t.TempDir(), "session.cast")
	writer, err := Create(path, Header{Width: 80, Height: 24, Command: "/bin/sh"},
		append([]WriterOption{WithClock(fake)}, options...)...)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { writer.Close() })
	return writer, fake
}

func TestWriterProducesExpectedFile(t *testing.T) {
	t.Parallel()
	writer, fake := newTestWriter(t, WithSync())

	fake.Advance(500 * time.Millisecond)
	if _, err := writer.Append(Output(0, "$ ")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	fake.Advance(time.Second)
	if _, err := writer.Append(Input(0, "exit\r")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := writer.Append(Resize(0, 100, 30)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := writer.Append(Exit(0, "s1")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(writer.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		`{"version":2,"width":80,"height":24,"timestamp":1767225600,"command":"/bin/sh"}`,
		`[0.5,"o","$ "]`,
		`[1.5,"i","exit\r"]`,
		`[1.5,"r","100x30"]`,
		`["exit",0,"s1"]`,
	}, "\n") + "\n"
	if string(data) != want {
		t.Errorf("file content:\ngot:\n%s\nwant:\n%s", data, want)
	}
	if writer.Size() != int64(len(want)) {
		t.Errorf("Size: got %d, want %d", writer.Size(), len(want))
	}
}

func TestWriterClosedAfterExit(t *testing.T) {
	t.Parallel()
	writer, _ := newTestWriter(t)

	if _, err := writer.Append(Exit(1, "s1")); err != nil {
		t.Fatalf("Append(exit): %v", err)
	}
	if _, err := writer.Append(Output(0, "late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Append after exit: got %v, want ErrClosed", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Close after exit: %v", err)
	}
}

func TestWriterLockIsExclusive(t *testing.T) {
	t.Parallel()
	writer, _ := newTestWriter(t)

	_, err := Create(writer.Path(), Header{Width: 80, Height: 24})
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second Create: got %v, want ErrLocked", err)
	}

	writer.Close()
	again, err := Create(writer.Path(), Header{Width: 80, Height: 24})
	if err != nil {
		t.Fatalf("Create after Close: %v", err)
	}
	again.Close()
}

func TestWriterTimestampsMonotonic(t *testing.T) {
	t.Parallel()
	writer, _ := newTestWriter(t)

	var last float64
	for range 5 {
		event, err := writer.Append(Output(0, "x"))
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if event.Time < last {
			t.Fatalf("time went backwards: %v < %v", event.Time, last)
		}
		last = event.Time
	}
}

func TestCreateRejectsBadHeader(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session.cast")
	if _, err := Create(path, Header{Width: 0, Height: 24}); err == nil {
		t.Error("Create accepted zero width")
	}
}
