// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bureau-foundation/tether/lib/testutil"
)

const tailTimeout = 5 * time.Second

func appendRaw(t *testing.T, path, text string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if _, err := file.WriteString(text); err != nil {
		t.Fatal(err)
	}
}

func TestTailFollowsGrowthUntilExit(t *testing.T) {
	t.Parallel()
	path := writeLog(t, `{"version":2,"width":10,"height":2}`+"\n")

	tail, err := OpenTail(context.Background(), path, 0, WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("OpenTail: %v", err)
	}
	defer tail.Close()

	header := testutil.RequireReceive(t, tail.Entries(), tailTimeout, "header entry")
	if header.Header == nil || header.Header.Width != 10 {
		t.Fatalf("header entry: got %+v", header)
	}

	// A line written in two pieces is delivered once, complete.
	appendRaw(t, path, `[0.1,"o","he`)
	appendRaw(t, path, `llo"]`+"\n")
	output := testutil.RequireReceive(t, tail.Entries(), tailTimeout, "output entry")
	if output.Event.Kind != KindOutput || output.Event.Data != "hello" {
		t.Errorf("output entry: got %+v", output.Event)
	}
	if string(output.Raw) != `[0.1,"o","hello"]` {
		t.Errorf("Raw: got %q", output.Raw)
	}

	appendRaw(t, path, "junk\n"+`["exit",0,"s"]`+"\n")
	exit := testutil.RequireReceive(t, tail.Entries(), tailTimeout, "exit entry")
	if !exit.Event.IsExit() {
		t.Errorf("expected exit entry, got %+v", exit.Event)
	}

	testutil.RequireClosed(t, tail.Done(), tailTimeout, "tail stops after exit")
	if err := tail.Err(); err != nil {
		t.Errorf("Err: %v", err)
	}
	if info, _ := os.Stat(path); exit.Offset != info.Size() {
		t.Errorf("exit Offset: got %d, want file size %d", exit.Offset, info.Size())
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	t.Parallel()
	path := writeLog(t,
		`{"version":2,"width":10,"height":2}`+"\n",
		`[0.1,"o","one"]`+"\n",
		`[0.2,"o","two"]`+"\n",
		`["exit",0,"s"]`+"\n",
	)

	first, err := OpenTail(context.Background(), path, 0, WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	entries := testutil.RequireDrained(t, first.Entries(), tailTimeout, "full tail")
	if len(entries) != 4 {
		t.Fatalf("entries: got %d, want 4", len(entries))
	}

	resumed, err := OpenTail(context.Background(), path, entries[1].Offset, WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	rest := testutil.RequireDrained(t, resumed.Entries(), tailTimeout, "resumed tail")
	if len(rest) != 2 || rest[0].Event.Data != "two" || !rest[1].Event.IsExit() {
		t.Errorf("resumed entries: got %+v", rest)
	}
}

func TestTailCancel(t *testing.T) {
	t.Parallel()
	path := writeLog(t, `{"version":2,"width":10,"height":2}`+"\n")
	ctx, cancel := context.WithCancel(context.Background())

	tail, err := OpenTail(ctx, path, 0, WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireReceive(t, tail.Entries(), tailTimeout, "header entry")

	cancel()
	testutil.RequireClosed(t, tail.Done(), tailTimeout, "tail stops on cancel")
	if err := tail.Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("Err: got %v, want context.Canceled", err)
	}

	// The log is still writable after the tail is gone.
	appendRaw(t, path, `[0.1,"o","x"]`+"\n")
}

func TestTailClose(t *testing.T) {
	t.Parallel()
	path := writeLog(t, `{"version":2,"width":10,"height":2}`+"\n")

	tail, err := OpenTail(context.Background(), path, 0, WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	// Close must not block on an undrained channel.
	tail.Close()
	select {
	case <-tail.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
}

func TestOpenTailErrors(t *testing.T) {
	t.Parallel()
	if _, err := OpenTail(context.Background(), "/nonexistent/session.cast", 0); err == nil {
		t.Error("OpenTail accepted a missing file")
	}
	path := writeLog(t, `{"version":2,"width":10,"height":2}`+"\n")
	if _, err := OpenTail(context.Background(), path, -1); err == nil {
		t.Error("OpenTail accepted a negative offset")
	}
}
