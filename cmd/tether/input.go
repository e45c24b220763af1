// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tether/cmd/tether/cli"
	"github.com/bureau-foundation/tether/session"
)

func (a *app) sendCommand() *cli.Command {
	var (
		conn      connection
		enter     bool
		fromStdin bool
	)
	return &cli.Command{
		Name:    "send",
		Summary: "Type text into a session",
		Description: "Write text to a session's terminal exactly as given. Arguments are joined\n" +
			"with spaces. Use --enter to press Enter afterwards, or --stdin to send\n" +
			"standard input byte for byte.",
		Usage: "tether send <id> [text...] [flags]",
		Examples: []cli.Example{
			{Description: "Run a command in a shell session", Command: "tether send shell --enter 'ls -la'"},
			{Description: "Paste a file", Command: "tether send shell --stdin < script.sh"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("send", &conn)
			flagSet.BoolVar(&enter, "enter", false, "press Enter after the text")
			flagSet.BoolVar(&fromStdin, "stdin", false, "send standard input instead of arguments")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("session id is required").WithHint("Usage: tether send <id> [text...] [flags]")
			}
			var data []byte
			if fromStdin {
				if len(args) > 1 {
					return cli.Validation("--stdin does not take text arguments")
				}
				read, err := io.ReadAll(a.stdin)
				if err != nil {
					return cli.Internal("reading stdin: %w", err)
				}
				data = read
			} else {
				data = []byte(strings.Join(args[1:], " "))
			}
			if enter {
				enterBytes, _ := session.KeyBytes("enter")
				data = append(data, enterBytes...)
			}
			if len(data) == 0 {
				return cli.Validation("nothing to send")
			}

			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			return cli.FromServer(client.Input(a.ctx, args[0], data), socketPath)
		},
	}
}

func (a *app) keyCommand() *cli.Command {
	var (
		conn connection
		list bool
	)
	return &cli.Command{
		Name:    "key",
		Summary: "Press named keys in a session",
		Usage:   "tether key <id> <key>... | tether key --list",
		Examples: []cli.Example{
			{Description: "Rerun the previous shell command", Command: "tether key shell arrow_up enter"},
			{Description: "Leave insert mode in an editor", Command: "tether key editor escape"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("key", &conn)
			flagSet.BoolVar(&list, "list", false, "print the supported key names")
			return flagSet
		},
		Run: func(args []string) error {
			if list {
				for _, name := range session.KeyNames() {
					fmt.Fprintln(a.stdout, name)
				}
				return nil
			}
			if len(args) < 2 {
				return cli.Validation("expected a session id and at least one key").
					WithHint("Run 'tether key --list' for key names.")
			}
			// Reject unknown names before sending any key.
			for _, name := range args[1:] {
				if _, err := session.KeyBytes(name); err != nil {
					return cli.Validation("%w", err).WithHint("Run 'tether key --list' for key names.")
				}
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			for _, name := range args[1:] {
				if err := client.Key(a.ctx, args[0], name); err != nil {
					return cli.FromServer(err, socketPath)
				}
			}
			return nil
		},
	}
}

func (a *app) resizeCommand() *cli.Command {
	var conn connection
	return &cli.Command{
		Name:    "resize",
		Summary: "Change a session's terminal size",
		Usage:   "tether resize <id> <cols> <rows>",
		Flags:   func() *pflag.FlagSet { return newFlagSet("resize", &conn) },
		Run: func(args []string) error {
			if err := requireArgs(args, 3, "tether resize <id> <cols> <rows>"); err != nil {
				return err
			}
			cols, err := strconv.Atoi(args[1])
			if err != nil {
				return cli.Validation("cols %q is not a number", args[1])
			}
			rows, err := strconv.Atoi(args[2])
			if err != nil {
				return cli.Validation("rows %q is not a number", args[2])
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			return cli.FromServer(client.Resize(a.ctx, args[0], cols, rows), socketPath)
		},
	}
}
