// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tether/api"
	"github.com/bureau-foundation/tether/cmd/tether/cli"
	"github.com/bureau-foundation/tether/eventlog"
	"github.com/bureau-foundation/tether/session"
	"github.com/bureau-foundation/tether/snapshot"
	"github.com/bureau-foundation/tether/terminal"
)

// viewFlags selects a snapshot window.
type viewFlags struct {
	lines int
	top   int
}

func (v *viewFlags) addFlags(flagSet *pflag.FlagSet) {
	flagSet.IntVarP(&v.lines, "lines", "n", 0, "show the last N lines of scrollback and screen")
	flagSet.IntVar(&v.top, "top", -1, "show one screen of lines starting at line N (0 is the oldest)")
}

// request validates the flags and fills a snapshot request.
func (v *viewFlags) request(id string) (api.SnapshotRequest, error) {
	request := api.SnapshotRequest{ID: id}
	switch {
	case v.lines != 0 && v.top >= 0:
		return request, cli.Validation("--lines and --top are mutually exclusive")
	case v.lines < 0:
		return request, cli.Validation("--lines must be positive, got %d", v.lines)
	case v.top < -1:
		return request, cli.Validation("--top must not be negative, got %d", v.top)
	case v.lines > 0:
		request.Lines = v.lines
	case v.top >= 0:
		top := v.top
		request.Top = &top
	}
	return request, nil
}

// renderFlags control how a frame is printed.
type renderFlags struct {
	color bool
	all   bool
}

func (r *renderFlags) addFlags(flagSet *pflag.FlagSet, styled bool) {
	flagSet.BoolVar(&r.color, "color", styled, "keep colors and attributes (default: when stdout is a terminal)")
	flagSet.BoolVar(&r.all, "all", false, "print blank rows at the bottom of the window too")
}

// writeFrame prints each row of frame, dropping trailing blank rows
// unless all is set.
func writeFrame(w io.Writer, frame *snapshot.Frame, options renderFlags) error {
	rows := make([]string, len(frame.Lines))
	last := -1
	for i, line := range frame.Lines {
		if options.color {
			rows[i] = terminal.RowANSI(line)
		} else {
			rows[i] = terminal.RowText(line)
		}
		if rows[i] != "" {
			last = i
		}
	}
	if options.all {
		last = len(rows) - 1
	}
	for _, row := range rows[:last+1] {
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) snapshotCommand() *cli.Command {
	var (
		conn   connection
		view   viewFlags
		render renderFlags
		raw    bool
	)
	return &cli.Command{
		Name:    "snapshot",
		Summary: "Print a session's screen",
		Description: "Print what a session's terminal shows. --lines reaches back into the\n" +
			"scrollback; --raw writes the binary snapshot encoding instead of text.",
		Usage: "tether snapshot <id> [flags]",
		Examples: []cli.Example{
			{Description: "The visible screen", Command: "tether snapshot build"},
			{Description: "The last 200 lines", Command: "tether snapshot build --lines 200"},
			{Description: "The oldest screenful of scrollback", Command: "tether snapshot build --top 0"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("snapshot", &conn)
			view.addFlags(flagSet)
			render.addFlags(flagSet, a.styled)
			flagSet.BoolVar(&raw, "raw", false, "write the encoded snapshot bytes")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "tether snapshot <id> [flags]"); err != nil {
				return err
			}
			request, err := view.request(args[0])
			if err != nil {
				return err
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			blob, err := client.Snapshot(a.ctx, request)
			if err != nil {
				return cli.FromServer(err, socketPath)
			}
			if raw {
				_, err := a.stdout.Write(blob)
				return err
			}
			frame, err := snapshot.Decode(blob)
			if err != nil {
				return cli.Internal("decoding snapshot: %w", err)
			}
			return writeFrame(a.stdout, frame, render)
		},
	}
}

func (a *app) replayCommand() *cli.Command {
	var (
		conn   connection
		view   viewFlags
		render renderFlags
		until  float64
		quiet  bool
	)
	return &cli.Command{
		Name:    "replay",
		Summary: "Rebuild a screen from a recorded log, without the server",
		Description: "Replay a session log and print the resulting screen. The argument is a\n" +
			"log file path or a session id under paths.state. --until stops at a\n" +
			"point in time to see what the screen showed then.",
		Usage: "tether replay <id|log-path> [flags]",
		Examples: []cli.Example{
			{Description: "The screen ten seconds in", Command: "tether replay build --until 10"},
			{Description: "A copied log file", Command: "tether replay ./session.cast --lines 500"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("replay", &conn)
			view.addFlags(flagSet)
			render.addFlags(flagSet, a.styled)
			flagSet.Float64Var(&until, "until", 0, "stop after the last event at or before this many seconds")
			flagSet.BoolVarP(&quiet, "quiet", "q", false, "do not print the log summary to stderr")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "tether replay <id|log-path> [flags]"); err != nil {
				return err
			}
			request, err := view.request(args[0])
			if err != nil {
				return err
			}
			path, err := a.resolveLogPath(&conn, args[0])
			if err != nil {
				return err
			}
			screen, log, err := eventlog.ReplayFile(path, eventlog.ReplayOptions{Until: until})
			if err != nil {
				return cli.Internal("replaying %s: %w", path, err)
			}
			if !quiet {
				a.writeLogSummary(log)
			}
			return writeFrame(a.stdout, snapshot.Capture(screen, request.View()), render)
		},
	}
}

// resolveLogPath treats target as a file when one exists there and as
// a session id otherwise.
func (a *app) resolveLogPath(conn *connection, target string) (string, error) {
	if stat, err := os.Stat(target); err == nil && stat.Mode().IsRegular() {
		return target, nil
	}
	cfg, err := conn.config()
	if err != nil {
		return "", err
	}
	path := filepath.Join(cfg.Paths.State, target, session.LogFileName)
	if _, err := os.Stat(path); err != nil {
		return "", cli.NotFound("no log file %s and no session %q under %s", target, target, cfg.Paths.State)
	}
	return path, nil
}

func (a *app) writeLogSummary(log *eventlog.Log) {
	summary := fmt.Sprintf("%dx%d, %d events, %.1fs", log.Header.Width, log.Header.Height, len(log.Events), log.Duration())
	if exit, ok := log.Exit(); ok {
		summary += fmt.Sprintf(", exited with code %d", exit.ExitCode)
	}
	if log.Malformed > 0 {
		summary += fmt.Sprintf(", %d malformed lines skipped", log.Malformed)
	}
	fmt.Fprintln(a.stderr, summary)
}
