// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/tether/eventlog"
	"github.com/bureau-foundation/tether/lib/compress"
	"github.com/bureau-foundation/tether/snapshot"
	"github.com/bureau-foundation/tether/terminal"
)

// newHTTPEnvironment serves the observation endpoints next to the
// socket server of a fresh test environment.
func newHTTPEnvironment(t *testing.T) (*testEnvironment, *httptest.Server) {
	t.Helper()
	env := newTestEnvironment(t)
	server := httptest.NewServer(env.service.HTTPHandler())
	t.Cleanup(server.Close)
	return env, server
}

func getSnapshot(t *testing.T, url string, header http.Header) *http.Response {
	t.Helper()
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for name, values := range header {
		request.Header[name] = values
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { response.Body.Close() })
	return response
}

func TestSnapshotEndpointCompression(t *testing.T) {
	t.Parallel()
	env, server := newHTTPEnvironment(t)
	ctx := testContext(t)

	script := `i=0; while [ $i -lt 40 ]; do echo "line $i of a compressible screen"; i=$((i+1)); done; printf 'done'; sleep 30`
	if _, err := env.client.Create(ctx, CreateRequest{ID: "web", Command: []string{"/bin/sh", "-c", script}, Cols: 60, Rows: 20}); err != nil {
		t.Fatal(err)
	}
	waitForRow(t, env.client, "web", "done")
	url := server.URL + "/sessions/web/snapshot?lines=30"

	for _, encoding := range []compress.Encoding{compress.Zstd, compress.LZ4, compress.Identity} {
		response := getSnapshot(t, url, http.Header{"Accept-Encoding": {string(encoding)}})
		if response.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", encoding, response.StatusCode)
		}
		if got := response.Header.Get("Content-Type"); got != SnapshotContentType {
			t.Errorf("%s Content-Type: got %q", encoding, got)
		}
		got := compress.Encoding(response.Header.Get("Content-Encoding"))
		if got == "" {
			got = compress.Identity
		}
		if got != encoding {
			t.Errorf("Content-Encoding: got %q, want %q", got, encoding)
		}

		size, err := strconv.Atoi(response.Header.Get(HeaderUncompressedLength))
		if err != nil {
			t.Fatalf("%s: uncompressed length: %v", encoding, err)
		}
		body, err := io.ReadAll(response.Body)
		if err != nil {
			t.Fatal(err)
		}
		blob, err := compress.Decode(body, got, size)
		if err != nil {
			t.Fatalf("%s: decode: %v", encoding, err)
		}
		frame, err := snapshot.Decode(blob)
		if err != nil {
			t.Fatalf("%s: snapshot: %v", encoding, err)
		}
		if frame.Rows != 30 || frame.Cols != 60 {
			t.Errorf("%s frame size: got %dx%d, want 60x30", encoding, frame.Cols, frame.Rows)
		}
		if last := terminal.RowText(frame.Lines[len(frame.Lines)-1]); last != "done" {
			t.Errorf("%s last row: got %q, want %q", encoding, last, "done")
		}
	}
}

func TestSnapshotEndpointETag(t *testing.T) {
	t.Parallel()
	env, server := newHTTPEnvironment(t)
	ctx := testContext(t)

	if _, err := env.client.Create(ctx, CreateRequest{ID: "tag", Command: []string{"/bin/sh", "-c", "printf still; sleep 30"}}); err != nil {
		t.Fatal(err)
	}
	waitForRow(t, env.client, "tag", "still")
	url := server.URL + "/sessions/tag/snapshot"

	first := getSnapshot(t, url, http.Header{"Accept-Encoding": {"zstd"}})
	etag := first.Header.Get("ETag")
	if !strings.HasPrefix(etag, `"`) || len(etag) < 3 {
		t.Fatalf("ETag: got %q", etag)
	}
	if got := first.Header.Get("Vary"); got != "Accept-Encoding" {
		t.Errorf("Vary: got %q", got)
	}

	// The tag names the uncompressed content, so it holds across
	// encodings.
	second := getSnapshot(t, url, http.Header{"If-None-Match": {etag}})
	if second.StatusCode != http.StatusNotModified {
		t.Errorf("conditional request: got status %d, want 304", second.StatusCode)
	}
	stale := getSnapshot(t, url, http.Header{"If-None-Match": {`"0000"`}})
	if stale.StatusCode != http.StatusOK {
		t.Errorf("stale tag: got status %d, want 200", stale.StatusCode)
	}
}

func TestHTTPErrors(t *testing.T) {
	t.Parallel()
	env, server := newHTTPEnvironment(t)
	ctx := testContext(t)

	if _, err := env.client.Create(ctx, CreateRequest{ID: "e", Command: []string{"/bin/sh", "-c", "sleep 30"}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path     string
		status   int
		category Category
	}{
		{"/sessions/missing", http.StatusNotFound, CategoryNotFound},
		{"/sessions/missing/snapshot", http.StatusNotFound, CategoryNotFound},
		{"/sessions/e/snapshot?lines=zero", http.StatusBadRequest, CategoryValidation},
		{"/sessions/e/snapshot?lines=-4", http.StatusBadRequest, CategoryValidation},
		{"/sessions/e/snapshot?top=-1", http.StatusBadRequest, CategoryValidation},
		{"/sessions/e/stream?offset=x", http.StatusBadRequest, CategoryValidation},
		{"/sessions/missing/stream", http.StatusNotFound, CategoryNotFound},
	}
	for _, test := range tests {
		response := getSnapshot(t, server.URL+test.path, nil)
		if response.StatusCode != test.status {
			t.Errorf("%s: got status %d, want %d", test.path, response.StatusCode, test.status)
			continue
		}
		var body httpError
		if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
			t.Errorf("%s: decoding error body: %v", test.path, err)
			continue
		}
		if body.Category != test.category {
			t.Errorf("%s: got category %q, want %q", test.path, body.Category, test.category)
		}
	}
}

func TestListAndGetEndpoints(t *testing.T) {
	t.Parallel()
	env, server := newHTTPEnvironment(t)
	ctx := testContext(t)

	for _, id := range []string{"one", "two"} {
		if _, err := env.client.Create(ctx, CreateRequest{ID: id, Command: []string{"/bin/sh", "-c", "sleep 30"}}); err != nil {
			t.Fatal(err)
		}
	}

	response := getSnapshot(t, server.URL+"/sessions", nil)
	var list []map[string]any
	if err := json.NewDecoder(response.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("list: got %d sessions, want 2", len(list))
	}

	response = getSnapshot(t, server.URL+"/sessions/two", nil)
	var info map[string]any
	if err := json.NewDecoder(response.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info["id"] != "two" || info["state"] != "running" {
		t.Errorf("get: got %v", info)
	}
}

func TestStreamEndpoint(t *testing.T) {
	t.Parallel()
	env, server := newHTTPEnvironment(t)
	ctx := testContext(t)

	if _, err := env.client.Create(ctx, CreateRequest{ID: "flow", Command: []string{"/bin/sh", "-c", "printf streamed; exit 3"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.registry.Wait(ctx, "flow"); err != nil {
		t.Fatal(err)
	}

	streamURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/sessions/flow/stream"
	messages := readStream(t, streamURL)
	if len(messages) < 3 {
		t.Fatalf("stream: got %d messages, want header, output, and exit", len(messages))
	}
	header, err := eventlog.ParseHeader(messages[0])
	if err != nil {
		t.Fatalf("first message is not a header: %v", err)
	}
	if header.Width != 80 || header.Height != 24 {
		t.Errorf("header size: got %dx%d", header.Width, header.Height)
	}
	var output bytes.Buffer
	for _, message := range messages[1 : len(messages)-1] {
		event, err := eventlog.ParseEvent(message)
		if err != nil {
			t.Fatalf("event %q: %v", message, err)
		}
		if event.Kind == eventlog.KindOutput {
			output.WriteString(event.Data)
		}
	}
	if !strings.Contains(output.String(), "streamed") {
		t.Errorf("output: got %q", output.String())
	}
	exit, err := eventlog.ParseEvent(messages[len(messages)-1])
	if err != nil || !exit.IsExit() || exit.ExitCode != 3 || exit.SessionID != "flow" {
		t.Errorf("last message: got %+v (%v)", exit, err)
	}

	// Resuming past the header skips it.
	offset := len(messages[0]) + 1
	resumed := readStream(t, streamURL+"?offset="+strconv.Itoa(offset))
	if len(resumed) != len(messages)-1 {
		t.Fatalf("resumed stream: got %d messages, want %d", len(resumed), len(messages)-1)
	}
	if !bytes.Equal(resumed[0], messages[1]) {
		t.Errorf("resumed stream starts %q, want %q", resumed[0], messages[1])
	}
}

// readStream collects every message until the server's normal close.
func readStream(t *testing.T, url string) [][]byte {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	defer conn.Close()

	var messages [][]byte
	for {
		kind, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("reading stream: %v", err)
			}
			return messages
		}
		if kind != websocket.TextMessage {
			t.Fatalf("message type: got %d, want text", kind)
		}
		messages = append(messages, message)
	}
}
