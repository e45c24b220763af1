// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/tether/lib/compress"
	"github.com/bureau-foundation/tether/lib/contenthash"
	"github.com/bureau-foundation/tether/snapshot"
)

// HTTPServer serves an http.Handler on a TCP listener with the same
// lifecycle as SocketServer: Serve blocks until ctx is canceled, then
// drains active requests.
type HTTPServer struct {
	address         string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	// ready is closed once the listener is bound; addr is valid after.
	ready chan struct{}
	addr  net.Addr
}

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address, e.g. "127.0.0.1:7681".
	// Port 0 picks a free port; see Addr.
	Address string

	Handler http.Handler

	// ShutdownTimeout bounds the drain after cancellation. Defaults
	// to 10 seconds.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// NewHTTPServer returns a server for config. Address, Handler, and
// Logger are required.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	if config.Address == "" {
		panic("api.HTTPServer: Address is required")
	}
	if config.Handler == nil {
		panic("api.HTTPServer: Handler is required")
	}
	if config.Logger == nil {
		panic("api.HTTPServer: Logger is required")
	}
	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPServer{
		address:         config.Address,
		handler:         config.Handler,
		logger:          config.Logger,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}
}

// Ready is closed once the server accepts connections.
func (s *HTTPServer) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address. Valid after Ready is closed.
func (s *HTTPServer) Addr() net.Addr { return s.addr }

// Serve accepts connections until ctx is canceled. Streams still open
// at shutdown are cut off after the shutdown timeout.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("http server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Close()
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}
	s.logger.Info("http server stopped")
	return nil
}

// Snapshot response headers.
const (
	SnapshotContentType       = "application/vnd.tether.snapshot"
	HeaderUncompressedLength  = "X-Uncompressed-Length"
	streamWriteTimeout        = 10 * time.Second
	streamCloseGracePeriod    = time.Second
	streamMaxClientMessageLen = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 32 * 1024,
}

// HTTPHandler returns the observation endpoints.
func (s *Service) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", s.handleList)
	mux.HandleFunc("GET /sessions/{id}", s.handleGet)
	mux.HandleFunc("GET /sessions/{id}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /sessions/{id}/stream", s.handleStream)
	return mux
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.registry.List())
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	info, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeHTTPError(w, r, err)
		return
	}
	writeJSON(w, info)
}

func (s *Service) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(r)
	if err != nil {
		s.writeHTTPError(w, r, err)
		return
	}
	blob, err := s.registry.Snapshot(r.PathValue("id"), view)
	if err != nil {
		s.writeHTTPError(w, r, err)
		return
	}

	etag := contenthash.Sum(contenthash.SnapshotDomain, blob).ETag()
	header := w.Header()
	header.Set("ETag", etag)
	header.Set("Cache-Control", "no-cache")
	header.Set("Vary", "Accept-Encoding")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	encoding := compress.Negotiate(r.Header.Get("Accept-Encoding"))
	body, err := compress.Encode(blob, encoding)
	if errors.Is(err, compress.ErrIncompressible) {
		encoding, body = compress.Identity, blob
	} else if err != nil {
		s.writeHTTPError(w, r, err)
		return
	}

	header.Set("Content-Type", SnapshotContentType)
	header.Set(HeaderUncompressedLength, strconv.Itoa(len(blob)))
	if encoding != compress.Identity {
		header.Set("Content-Encoding", string(encoding))
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("writing snapshot failed", "error", err)
	}
}

// parseView reads ?lines=N or ?top=N.
func parseView(r *http.Request) (snapshot.View, error) {
	query := r.URL.Query()
	if value := query.Get("lines"); value != "" {
		lines, err := strconv.Atoi(value)
		if err != nil || lines <= 0 {
			return snapshot.View{}, fmt.Errorf("%w: lines must be a positive integer, got %q", ErrBadRequest, value)
		}
		return snapshot.Bottom(lines), nil
	}
	if value := query.Get("top"); value != "" {
		top, err := strconv.Atoi(value)
		if err != nil || top < 0 {
			return snapshot.View{}, fmt.Errorf("%w: top must be a non-negative integer, got %q", ErrBadRequest, value)
		}
		return snapshot.At(top), nil
	}
	return snapshot.Live(), nil
}

// etagMatches implements If-None-Match for a strong tag.
func etagMatches(ifNoneMatch, etag string) bool {
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// handleStream upgrades to a websocket and sends each log line from
// ?offset= onward as one text message, header line included when the
// offset is 0. The server closes with a normal closure after the exit
// line. Clients resume by adding len(message)+1 per message to their
// offset.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var offset int64
	if value := r.URL.Query().Get("offset"); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed < 0 {
			s.writeHTTPError(w, r, fmt.Errorf("%w: offset must be a non-negative integer, got %q", ErrBadRequest, value))
			return
		}
		offset = parsed
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	tail, err := s.registry.Tail(ctx, id, offset)
	if err != nil {
		s.writeHTTPError(w, r, err)
		return
	}
	defer tail.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Debug("websocket upgrade failed", "session", id, "error", err)
		return
	}
	defer conn.Close()

	// The client never sends data; reading only notices it leaving.
	conn.SetReadLimit(streamMaxClientMessageLen)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	logger := s.logger.With("session", id, "remote", r.RemoteAddr)
	logger.Debug("stream opened", "offset", offset)
	for entry := range tail.Entries() {
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, entry.Raw); err != nil {
			logger.Debug("stream write failed", "error", err)
			return
		}
	}

	closeCode, reason := websocket.CloseNormalClosure, "session exited"
	if err := tail.Err(); err != nil {
		if ctx.Err() != nil {
			logger.Debug("stream closed by client")
			return
		}
		closeCode, reason = websocket.CloseInternalServerErr, err.Error()
		logger.Warn("stream ended with error", "error", err)
	}
	message := websocket.FormatCloseMessage(closeCode, truncateReason(reason))
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(streamCloseGracePeriod))
}

// truncateReason fits a close reason in a control frame.
func truncateReason(reason string) string {
	const limit = 123
	if len(reason) > limit {
		return reason[:limit]
	}
	return reason
}

type httpError struct {
	Error    string   `json:"error"`
	Category Category `json:"category"`
	Code     string   `json:"code,omitempty"`
}

func (s *Service) writeHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	code, category := Classify(err)
	if category == CategoryInternal {
		s.logger.Error("http request failed", "path", r.URL.Path, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(category.HTTPStatus())
	_ = json.NewEncoder(w).Encode(httpError{Error: err.Error(), Category: category, Code: code})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
