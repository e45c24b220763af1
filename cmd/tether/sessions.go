// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/tether/api"
	"github.com/bureau-foundation/tether/cmd/tether/cli"
	"github.com/bureau-foundation/tether/session"
)

func (a *app) createCommand() *cli.Command {
	var (
		conn    connection
		output  cli.JSONOutput
		request api.CreateRequest
		env     []string
	)
	return &cli.Command{
		Name:    "create",
		Summary: "Start a session",
		Description: "Start a command under a new pseudo-terminal. Everything after -- is the\n" +
			"command; without one the configured shell runs. Prints the session id.",
		Usage: "tether create [flags] [-- command [args...]]",
		Examples: []cli.Example{
			{Description: "Run a build in an 120x40 terminal", Command: "tether create --id build --cols 120 --rows 40 -- make -j8"},
			{Description: "Start the default shell", Command: "tether create"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("create", &conn)
			output.AddFlag(flagSet)
			flagSet.StringVar(&request.ID, "id", "", "session id (default: a random UUID)")
			flagSet.IntVar(&request.Cols, "cols", 0, "terminal columns (default session.cols)")
			flagSet.IntVar(&request.Rows, "rows", 0, "terminal rows (default session.rows)")
			flagSet.StringVar(&request.WorkingDirectory, "cwd", "", "working directory")
			flagSet.StringVar(&request.Title, "title", "", "title recorded in the log header")
			flagSet.StringArrayVarP(&env, "env", "e", nil, "environment override KEY=VALUE (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			overrides, err := parseEnv(env)
			if err != nil {
				return err
			}
			request.Env = overrides
			request.Command = args

			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			info, err := client.Create(a.ctx, request)
			if err != nil {
				return cli.FromServer(err, socketPath)
			}
			if done, err := output.EmitJSON(a.stdout, info); done {
				return err
			}
			fmt.Fprintln(a.stdout, info.ID)
			return nil
		},
	}
}

// parseEnv turns KEY=VALUE arguments into a map.
func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, cli.Validation("--env %q: want KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}

func (a *app) listCommand() *cli.Command {
	var (
		conn   connection
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "list",
		Summary: "List sessions, newest first",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("list", &conn)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "tether list [flags]"); err != nil {
				return err
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			infos, err := client.List(a.ctx)
			if err != nil {
				return cli.FromServer(err, socketPath)
			}
			if done, err := output.EmitJSON(a.stdout, infos); done {
				return err
			}
			return a.writeSessionTable(infos)
		},
	}
}

func (a *app) writeSessionTable(infos []session.Info) error {
	table := cli.NewTable("ID", "STATE", "PID", "SIZE", "STARTED", "COMMAND")
	if a.styled {
		if width, _, err := term.GetSize(1); err == nil {
			table.MaxWidth = width
		}
	}
	for _, info := range infos {
		state := cli.StateLabel(string(info.State), info.ExitCode, a.styled)
		if info.Detached {
			state += " (detached)"
		}
		table.Append(
			info.ID,
			state,
			strconv.Itoa(info.PID),
			fmt.Sprintf("%dx%d", info.Cols, info.Rows),
			info.StartedAt.Local().Format(time.DateTime),
			strings.Join(info.Command, " "),
		)
	}
	return table.Render(a.stdout, a.styled)
}

func (a *app) getCommand() *cli.Command {
	var (
		conn   connection
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "get",
		Summary: "Show one session",
		Usage:   "tether get <id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("get", &conn)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "tether get <id> [flags]"); err != nil {
				return err
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			info, err := client.Get(a.ctx, args[0])
			if err != nil {
				return cli.FromServer(err, socketPath)
			}
			if done, err := output.EmitJSON(a.stdout, info); done {
				return err
			}
			a.writeInfo(info)
			return nil
		},
	}
}

func (a *app) writeInfo(info session.Info) {
	fields := []struct{ name, value string }{
		{"id", info.ID},
		{"state", cli.StateLabel(string(info.State), info.ExitCode, a.styled)},
		{"command", strings.Join(info.Command, " ")},
		{"directory", info.WorkingDirectory},
		{"pid", strconv.Itoa(info.PID)},
		{"size", fmt.Sprintf("%dx%d", info.Cols, info.Rows)},
		{"started", info.StartedAt.Local().Format(time.RFC3339)},
		{"log", info.LogPath},
	}
	if !info.Running() {
		fields = append(fields, struct{ name, value string }{"exited", info.ExitedAt.Local().Format(time.RFC3339)})
	}
	if info.Detached {
		fields = append(fields, struct{ name, value string }{"detached", "true"})
	}
	for _, field := range fields {
		if field.value != "" {
			fmt.Fprintf(a.stdout, "%-10s %s\n", field.name+":", field.value)
		}
	}
}

// waitPollInterval is how often wait re-reads the session state.
const waitPollInterval = 200 * time.Millisecond

func (a *app) waitCommand() *cli.Command {
	var (
		conn    connection
		timeout time.Duration
	)
	return &cli.Command{
		Name:    "wait",
		Summary: "Wait for a session to exit and pass on its exit code",
		Usage:   "tether wait <id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("wait", &conn)
			flagSet.DurationVar(&timeout, "timeout", 0, "give up after this long (default: wait forever)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "tether wait <id> [flags]"); err != nil {
				return err
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			var deadline <-chan time.Time
			if timeout > 0 {
				deadline = time.After(timeout)
			}
			ticker := time.NewTicker(waitPollInterval)
			defer ticker.Stop()
			for {
				info, err := client.Get(a.ctx, args[0])
				if err != nil {
					return cli.FromServer(err, socketPath)
				}
				if !info.Running() {
					if info.ExitCode == 0 {
						return nil
					}
					return &cli.ExitError{Code: shellExitCode(info.ExitCode)}
				}
				select {
				case <-ticker.C:
				case <-deadline:
					return cli.Transient("session %s still running after %v", args[0], timeout)
				case <-a.ctx.Done():
					return a.ctx.Err()
				}
			}
		},
	}
}

// shellExitCode maps a recorded exit code into the 1-255 range a
// process can exit with.
func shellExitCode(code int) int {
	if code < 1 || code > 255 {
		return 1
	}
	return code
}

func (a *app) signalCommand() *cli.Command {
	var conn connection
	return &cli.Command{
		Name:    "signal",
		Summary: "Send a signal to a session's foreground process group",
		Usage:   "tether signal <id> <signal>",
		Examples: []cli.Example{
			{Description: "Interrupt the foreground job", Command: "tether signal build INT"},
		},
		Flags: func() *pflag.FlagSet { return newFlagSet("signal", &conn) },
		Run: func(args []string) error {
			if err := requireArgs(args, 2, "tether signal <id> <signal>"); err != nil {
				return err
			}
			if _, err := api.ParseSignal(args[1]); err != nil {
				return cli.Validation("%v", err)
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			return cli.FromServer(client.Signal(a.ctx, args[0], args[1]), socketPath)
		},
	}
}

func (a *app) killCommand() *cli.Command {
	var conn connection
	return &cli.Command{
		Name:    "kill",
		Summary: "Terminate a session, escalating to SIGKILL after the grace period",
		Usage:   "tether kill <id>",
		Flags:   func() *pflag.FlagSet { return newFlagSet("kill", &conn) },
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "tether kill <id>"); err != nil {
				return err
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			info, err := client.Kill(a.ctx, args[0])
			if err != nil {
				return cli.FromServer(err, socketPath)
			}
			fmt.Fprintf(a.stdout, "%s exited with code %d\n", info.ID, info.ExitCode)
			return nil
		},
	}
}

func (a *app) removeCommand() *cli.Command {
	var conn connection
	return &cli.Command{
		Name:    "rm",
		Summary: "Delete an exited session and its log",
		Usage:   "tether rm <id>...",
		Flags:   func() *pflag.FlagSet { return newFlagSet("rm", &conn) },
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one session id is required")
			}
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := client.Remove(a.ctx, id); err != nil {
					return cli.FromServer(err, socketPath)
				}
			}
			return nil
		},
	}
}

func (a *app) cleanupCommand() *cli.Command {
	var (
		conn   connection
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "cleanup",
		Summary: "Delete every exited session",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("cleanup", &conn)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			client, socketPath, err := conn.client()
			if err != nil {
				return err
			}
			result, err := client.Cleanup(a.ctx)
			if err != nil {
				return cli.FromServer(err, socketPath)
			}
			if done, err := output.EmitJSON(a.stdout, result); done {
				return err
			}
			for _, id := range result.Removed {
				fmt.Fprintln(a.stdout, id)
			}
			for _, message := range result.Errors {
				fmt.Fprintln(a.stderr, "error:", message)
			}
			if len(result.Errors) > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
