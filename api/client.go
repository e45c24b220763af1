// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/tether/lib/codec"
	"github.com/bureau-foundation/tether/session"
)

// dialTimeout covers only connecting to the socket.
const dialTimeout = 5 * time.Second

// responseReadTimeout covers the handler's run time plus the server's
// write; kill waits out the termination grace period.
const responseReadTimeout = 45 * time.Second

// maxResponseSize caps one response. Snapshots of deep scrollback are
// the largest.
const maxResponseSize = 64 * 1024 * 1024

// Client calls a tether server's control socket. Each call uses its
// own connection.
type Client struct {
	socketPath string
}

// NewClient returns a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends request (a struct or map, or nil) as action and decodes
// the response data into result when both are non-nil. Server-side
// failures are returned as *Error.
func (c *Client) Call(ctx context.Context, action string, request any, result any) error {
	fields, err := requestFields(request)
	if err != nil {
		return fmt.Errorf("encoding %q request: %w", action, err)
	}
	fields["action"] = action

	response, err := c.send(ctx, fields)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	if !response.OK {
		return &Error{
			Action:   action,
			Category: response.Category,
			Code:     response.Code,
			Message:  response.Error,
		}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding %q response: %w", action, err)
		}
	}
	return nil
}

// requestFields flattens request into a map so the action can be
// added alongside its fields.
func requestFields(request any) (map[string]any, error) {
	fields := make(map[string]any)
	if request == nil {
		return fields, nil
	}
	data, err := codec.Marshal(request)
	if err != nil {
		return nil, err
	}
	if err := codec.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(responseReadTimeout)
	if contextDeadline, ok := ctx.Deadline(); ok && contextDeadline.Before(deadline) {
		deadline = contextDeadline
	}
	conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}

// Create starts a session.
func (c *Client) Create(ctx context.Context, request CreateRequest) (session.Info, error) {
	var info session.Info
	err := c.Call(ctx, ActionCreate, request, &info)
	return info, err
}

// List returns every session, newest first.
func (c *Client) List(ctx context.Context) ([]session.Info, error) {
	var infos []session.Info
	err := c.Call(ctx, ActionList, nil, &infos)
	return infos, err
}

// Get returns one session.
func (c *Client) Get(ctx context.Context, id string) (session.Info, error) {
	var info session.Info
	err := c.Call(ctx, ActionGet, SessionRequest{ID: id}, &info)
	return info, err
}

// Kill terminates a session and waits for its exit to be recorded.
func (c *Client) Kill(ctx context.Context, id string) (session.Info, error) {
	var info session.Info
	err := c.Call(ctx, ActionKill, SessionRequest{ID: id}, &info)
	return info, err
}

// Signal sends a named or numbered signal to the session's foreground
// process group.
func (c *Client) Signal(ctx context.Context, id, signal string) error {
	return c.Call(ctx, ActionSignal, SignalRequest{ID: id, Signal: signal}, nil)
}

// Remove deletes an exited session.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.Call(ctx, ActionRemove, SessionRequest{ID: id}, nil)
}

// Cleanup removes every exited session.
func (c *Client) Cleanup(ctx context.Context) (CleanupResponse, error) {
	var response CleanupResponse
	err := c.Call(ctx, ActionCleanup, nil, &response)
	return response, err
}

// Resize changes a session's terminal size.
func (c *Client) Resize(ctx context.Context, id string, cols, rows int) error {
	return c.Call(ctx, ActionResize, ResizeRequest{ID: id, Cols: cols, Rows: rows}, nil)
}

// Input writes raw bytes to a session's terminal.
func (c *Client) Input(ctx context.Context, id string, data []byte) error {
	return c.Call(ctx, ActionInput, InputRequest{ID: id, Data: data}, nil)
}

// Key sends a named key.
func (c *Client) Key(ctx context.Context, id, key string) error {
	return c.Call(ctx, ActionKey, KeyRequest{ID: id, Key: key}, nil)
}

// Snapshot returns an encoded snapshot of a session's screen.
func (c *Client) Snapshot(ctx context.Context, request SnapshotRequest) ([]byte, error) {
	var response SnapshotResponse
	if err := c.Call(ctx, ActionSnapshot, request, &response); err != nil {
		return nil, err
	}
	return response.Snapshot, nil
}
