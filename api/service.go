// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/tether/lib/codec"
	"github.com/bureau-foundation/tether/session"
	"github.com/bureau-foundation/tether/snapshot"
)

// Service adapts a session registry to the socket and HTTP surfaces.
type Service struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewService returns a service over registry.
func NewService(registry *session.Registry, logger *slog.Logger) *Service {
	return &Service{registry: registry, logger: logger}
}

// Register installs every socket action on server.
func (s *Service) Register(server *SocketServer) {
	server.Handle(ActionCreate, s.create)
	server.Handle(ActionList, s.list)
	server.Handle(ActionGet, s.get)
	server.Handle(ActionKill, s.kill)
	server.Handle(ActionSignal, s.signal)
	server.Handle(ActionRemove, s.remove)
	server.Handle(ActionCleanup, s.cleanup)
	server.Handle(ActionResize, s.resize)
	server.Handle(ActionInput, s.input)
	server.Handle(ActionKey, s.key)
	server.Handle(ActionSnapshot, s.snapshot)
}

// decode unmarshals an action's fields.
func decode[T any](raw []byte) (T, error) {
	var request T
	if err := codec.Unmarshal(raw, &request); err != nil {
		return request, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return request, nil
}

// decodeSession decodes a request naming a session and checks the id
// is present.
func decodeSession[T interface{ sessionID() string }](raw []byte) (T, error) {
	request, err := decode[T](raw)
	if err != nil {
		return request, err
	}
	if request.sessionID() == "" {
		return request, fmt.Errorf("%w: missing required field: id", ErrBadRequest)
	}
	return request, nil
}

func (r SessionRequest) sessionID() string  { return r.ID }
func (r ResizeRequest) sessionID() string   { return r.ID }
func (r InputRequest) sessionID() string    { return r.ID }
func (r KeyRequest) sessionID() string      { return r.ID }
func (r SignalRequest) sessionID() string   { return r.ID }
func (r SnapshotRequest) sessionID() string { return r.ID }

func (s *Service) create(ctx context.Context, raw []byte) (any, error) {
	request, err := decode[CreateRequest](raw)
	if err != nil {
		return nil, err
	}
	return s.registry.Create(ctx, session.Config{
		ID:               request.ID,
		Command:          request.Command,
		WorkingDirectory: request.WorkingDirectory,
		Env:              request.Env,
		Cols:             request.Cols,
		Rows:             request.Rows,
		Title:            request.Title,
	})
}

func (s *Service) list(context.Context, []byte) (any, error) {
	return s.registry.List(), nil
}

func (s *Service) get(_ context.Context, raw []byte) (any, error) {
	request, err := decodeSession[SessionRequest](raw)
	if err != nil {
		return nil, err
	}
	return s.registry.Get(request.ID)
}

func (s *Service) kill(ctx context.Context, raw []byte) (any, error) {
	request, err := decodeSession[SessionRequest](raw)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Kill(ctx, request.ID); err != nil {
		return nil, err
	}
	return s.registry.Get(request.ID)
}

func (s *Service) signal(_ context.Context, raw []byte) (any, error) {
	request, err := decodeSession[SignalRequest](raw)
	if err != nil {
		return nil, err
	}
	signal, err := ParseSignal(request.Signal)
	if err != nil {
		return nil, err
	}
	return nil, s.registry.SendSignal(request.ID, signal)
}

func (s *Service) remove(_ context.Context, raw []byte) (any, error) {
	request, err := decodeSession[SessionRequest](raw)
	if err != nil {
		return nil, err
	}
	return nil, s.registry.Remove(request.ID)
}

// cleanup reports partial failures in the response instead of
// failing the whole call, since the removals that did succeed are
// permanent.
func (s *Service) cleanup(context.Context, []byte) (any, error) {
	removed, err := s.registry.CleanupExited()
	response := CleanupResponse{Removed: removed}
	if err != nil {
		response.Errors = strings.Split(err.Error(), "\n")
		s.logger.Warn("cleanup partially failed", "removed", len(removed), "error", err)
	}
	return response, nil
}

func (s *Service) resize(_ context.Context, raw []byte) (any, error) {
	request, err := decodeSession[ResizeRequest](raw)
	if err != nil {
		return nil, err
	}
	return nil, s.registry.Resize(request.ID, request.Cols, request.Rows)
}

func (s *Service) input(_ context.Context, raw []byte) (any, error) {
	request, err := decodeSession[InputRequest](raw)
	if err != nil {
		return nil, err
	}
	return nil, s.registry.SendInput(request.ID, request.Data)
}

func (s *Service) key(_ context.Context, raw []byte) (any, error) {
	request, err := decodeSession[KeyRequest](raw)
	if err != nil {
		return nil, err
	}
	return nil, s.registry.SendKey(request.ID, request.Key)
}

func (s *Service) snapshot(_ context.Context, raw []byte) (any, error) {
	request, err := decodeSession[SnapshotRequest](raw)
	if err != nil {
		return nil, err
	}
	blob, err := s.registry.Snapshot(request.ID, request.View())
	if err != nil {
		return nil, err
	}
	return SnapshotResponse{Snapshot: blob}, nil
}

// View returns the snapshot window the request selects.
func (r SnapshotRequest) View() snapshot.View {
	switch {
	case r.Lines > 0:
		return snapshot.Bottom(r.Lines)
	case r.Top != nil:
		return snapshot.At(*r.Top)
	default:
		return snapshot.Live()
	}
}

// ParseSignal accepts "INT", "SIGINT", "sigint", or "2".
func ParseSignal(name string) (syscall.Signal, error) {
	name = strings.TrimSpace(name)
	if number, err := strconv.Atoi(name); err == nil {
		if number <= 0 || number > 64 {
			return 0, fmt.Errorf("%w: signal number %d out of range", ErrBadRequest, number)
		}
		return syscall.Signal(number), nil
	}
	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "SIG") {
		upper = "SIG" + upper
	}
	signal := unix.SignalNum(upper)
	if signal == 0 {
		return 0, fmt.Errorf("%w: unknown signal %q", ErrBadRequest, name)
	}
	return signal, nil
}
