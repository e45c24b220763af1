// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/tether/api"
	"github.com/bureau-foundation/tether/cmd/tether/cli"
	"github.com/bureau-foundation/tether/eventlog"
	"github.com/bureau-foundation/tether/lib/config"
	"github.com/bureau-foundation/tether/lib/serverinfo"
)

// detachByte is Ctrl-], the same escape telnet uses.
const detachByte = 0x1d

// errDetached ends an attach at the user's request.
var errDetached = errors.New("detached")

func (a *app) attachCommand() *cli.Command {
	var (
		conn        connection
		httpAddress string
		readOnly    bool
		noResize    bool
	)
	return &cli.Command{
		Name:    "attach",
		Summary: "Connect this terminal to a running session",
		Description: "Replay a session's output into this terminal and keep following it,\n" +
			"forwarding keystrokes. Press Ctrl-] to detach; the session keeps running.\n" +
			"The session is resized to this terminal unless --no-resize is given.",
		Usage: "tether attach <id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("attach", &conn)
			flagSet.StringVar(&httpAddress, "http", "", "server HTTP address (default server.http_address)")
			flagSet.BoolVar(&readOnly, "read-only", false, "watch without forwarding input")
			flagSet.BoolVar(&noResize, "no-resize", false, "leave the session's terminal size alone")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "tether attach <id> [flags]"); err != nil {
				return err
			}
			cfg, err := conn.config()
			if err != nil {
				return err
			}
			if httpAddress == "" {
				httpAddress, err = serverHTTPAddress(cfg)
				if err != nil {
					return err
				}
			}
			attachment := &attachment{
				app:      a,
				client:   api.NewClient(cfg.Paths.Socket),
				socket:   cfg.Paths.Socket,
				id:       args[0],
				address:  httpAddress,
				readOnly: readOnly,
				resize:   !noResize,
			}
			return attachment.run()
		},
	}
}

// serverHTTPAddress prefers the address a live server recorded in its
// state directory over the configured one, which may name port 0.
func serverHTTPAddress(cfg *config.Config) (string, error) {
	info, ok, err := serverinfo.Check(serverinfo.Path(cfg.Paths.State))
	if err != nil {
		return "", cli.Internal("reading server info: %w", err)
	}
	if ok && info.Socket == cfg.Paths.Socket {
		if info.HTTPAddress == "" {
			return "", cli.Validation("tether-server on %s is running without HTTP", info.Socket).
				WithHint("Restart it with --http host:port, or pass --http if it is reachable elsewhere.")
		}
		return info.HTTPAddress, nil
	}
	if cfg.Server.HTTPAddress == "" {
		return "", cli.Validation("no HTTP address: server.http_address is empty").
			WithHint("Pass --http host:port.")
	}
	return cfg.Server.HTTPAddress, nil
}

type attachment struct {
	app      *app
	client   *api.Client
	socket   string
	id       string
	address  string
	readOnly bool
	resize   bool
}

func (at *attachment) run() error {
	ctx, cancel := context.WithCancelCause(at.app.ctx)
	defer cancel(nil)

	info, err := at.client.Get(ctx, at.id)
	if err != nil {
		return cli.FromServer(err, at.socket)
	}
	interactive := info.Running() && !info.Detached && !at.readOnly

	streamURL := url.URL{Scheme: "ws", Host: at.address, Path: "/sessions/" + url.PathEscape(at.id) + "/stream"}
	stream, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL.String(), nil)
	if err != nil {
		return cli.Transient("connecting to %s: %w", streamURL.String(), err)
	}
	defer stream.Close()
	context.AfterFunc(ctx, func() { stream.Close() })

	stdinFD := int(at.app.stdin.Fd())
	if interactive && term.IsTerminal(stdinFD) {
		state, err := term.MakeRaw(stdinFD)
		if err != nil {
			return cli.Internal("entering raw mode: %w", err)
		}
		defer term.Restore(stdinFD, state)
		if at.resize {
			at.followWindowSize(ctx, stdinFD)
		}
	}
	if interactive {
		go at.forwardInput(ctx, cancel)
	}

	exitCode, err := at.copyOutput(stream)
	switch {
	case errors.Is(context.Cause(ctx), errDetached):
		fmt.Fprintf(at.app.stderr, "\r\n[detached from %s]\r\n", at.id)
		return nil
	case err != nil && ctx.Err() != nil:
		return context.Cause(ctx)
	case err != nil:
		return cli.Transient("reading stream: %w", err)
	}
	fmt.Fprintf(at.app.stderr, "\r\n[%s exited with code %d]\r\n", at.id, exitCode)
	if exitCode != 0 {
		return &cli.ExitError{Code: shellExitCode(exitCode)}
	}
	return nil
}

// copyOutput writes output events to stdout until the exit line.
func (at *attachment) copyOutput(stream *websocket.Conn) (int, error) {
	first := true
	for {
		_, message, err := stream.ReadMessage()
		if err != nil {
			return 0, err
		}
		if first {
			first = false
			if _, err := eventlog.ParseHeader(message); err != nil {
				return 0, fmt.Errorf("stream did not start with a log header: %w", err)
			}
			continue
		}
		event, err := eventlog.ParseEvent(message)
		if err != nil {
			continue
		}
		switch {
		case event.IsExit():
			return event.ExitCode, nil
		case event.Kind == eventlog.KindOutput:
			if _, err := io.WriteString(at.app.stdout, event.Data); err != nil {
				return 0, err
			}
		}
	}
}

// forwardInput sends stdin to the session until Ctrl-] or a failed
// send. The read that is blocked when the attach ends is abandoned
// with the process.
func (at *attachment) forwardInput(ctx context.Context, cancel context.CancelCauseFunc) {
	buffer := make([]byte, 4096)
	for {
		n, err := at.app.stdin.Read(buffer)
		if n > 0 {
			chunk := buffer[:n]
			index := bytes.IndexByte(chunk, detachByte)
			if index >= 0 {
				chunk = chunk[:index]
			}
			if len(chunk) > 0 {
				if sendErr := at.client.Input(ctx, at.id, bytes.Clone(chunk)); sendErr != nil {
					cancel(cli.FromServer(sendErr, at.socket))
					return
				}
			}
			if index >= 0 {
				cancel(errDetached)
				return
			}
		}
		if err != nil {
			// Closed stdin leaves the attach watching.
			return
		}
	}
}

// followWindowSize sizes the session to the local terminal now and on
// every SIGWINCH.
func (at *attachment) followWindowSize(ctx context.Context, fd int) {
	apply := func() {
		cols, rows, err := term.GetSize(fd)
		if err != nil {
			return
		}
		// A session that exited meanwhile reports an error the stream
		// will surface on its own.
		_ = at.client.Resize(ctx, at.id, cols, rows)
	}
	apply()

	changes := make(chan os.Signal, 1)
	signal.Notify(changes, syscall.SIGWINCH)
	go func() {
		defer signal.Stop(changes)
		for {
			select {
			case <-changes:
				apply()
			case <-ctx.Done():
				return
			}
		}
	}()
}
