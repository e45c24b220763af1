// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tether/api"
	"github.com/bureau-foundation/tether/cmd/tether/cli"
	"github.com/bureau-foundation/tether/lib/config"
	"github.com/bureau-foundation/tether/lib/version"
)

// app carries what every command shares: the process context and the
// standard streams, replaced with buffers in tests.
type app struct {
	ctx    context.Context
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	// styled enables colors and bold headers on stdout.
	styled bool
}

func (a *app) root() *cli.Command {
	root := &cli.Command{
		Name:    "tether",
		Summary: "Run and observe terminal sessions",
		Description: "Tether runs commands under pseudo-terminals managed by tether-server,\n" +
			"records everything they print, and renders their screens on demand.",
		Subcommands: []*cli.Command{
			a.createCommand(),
			a.listCommand(),
			a.getCommand(),
			a.waitCommand(),
			a.sendCommand(),
			a.keyCommand(),
			a.resizeCommand(),
			a.signalCommand(),
			a.killCommand(),
			a.removeCommand(),
			a.cleanupCommand(),
			a.snapshotCommand(),
			a.replayCommand(),
			a.attachCommand(),
			a.configCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func([]string) error {
					fmt.Fprintln(a.stdout, "tether", version.Full())
					return nil
				},
			},
		},
	}
	root.SetOutput(a.stderr)
	return root
}

// connection holds the flags every server-facing command accepts.
type connection struct {
	configPath string
	socketPath string
}

func (c *connection) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.configPath, "config", "", "config file (default $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&c.socketPath, "socket", "", "control socket (default paths.socket from the config)")
}

// config resolves the configuration with flag overrides applied.
func (c *connection) config() (*config.Config, error) {
	cfg, err := config.Resolve(c.configPath)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if c.socketPath != "" {
		cfg.Paths.Socket = c.socketPath
	}
	return cfg, nil
}

// client returns a control socket client and the socket path it uses.
func (c *connection) client() (*api.Client, string, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, "", err
	}
	return api.NewClient(cfg.Paths.Socket), cfg.Paths.Socket, nil
}

// newFlagSet returns a flag set wired with the connection flags.
func newFlagSet(name string, conn *connection) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	conn.addFlags(flagSet)
	return flagSet
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, count int, usage string) error {
	if len(args) != count {
		return cli.Validation("expected %d argument(s), got %d", count, len(args)).
			WithHint("Usage: " + usage)
	}
	return nil
}
