// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	t.Parallel()
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "tether",
		Subcommands: []*Command{
			{Name: "list", Run: func(args []string) error { called = "list"; return nil }},
			{Name: "kill", Run: func(args []string) error {
				called = "kill"
				receivedArgs = args
				return nil
			}},
		},
	}

	if err := root.Execute([]string{"kill", "build"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "kill" {
		t.Errorf("dispatched to %q, want %q", called, "kill")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "build" {
		t.Errorf("args = %v, want [build]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	t.Parallel()
	var lines int
	var positional []string

	command := &Command{
		Name: "snapshot",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("snapshot", pflag.ContinueOnError)
			flagSet.IntVar(&lines, "lines", 0, "rows from the bottom")
			return flagSet
		},
		Run: func(args []string) error {
			positional = args
			return nil
		},
	}

	if err := command.Execute([]string{"--lines", "40", "build"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if lines != 40 {
		t.Errorf("lines = %d, want 40", lines)
	}
	if len(positional) != 1 || positional[0] != "build" {
		t.Errorf("args = %v, want [build]", positional)
	}
}

func TestCommand_Execute_UnknownSubcommandSuggests(t *testing.T) {
	t.Parallel()
	root := &Command{
		Name:        "tether",
		Subcommands: []*Command{{Name: "snapshot"}, {Name: "signal"}},
	}

	err := root.Execute([]string{"snapshto"})
	var toolError *ToolError
	if !errors.As(err, &toolError) || toolError.Category != CategoryValidation {
		t.Fatalf("error = %v, want a validation ToolError", err)
	}
	if !strings.Contains(err.Error(), `did you mean "snapshot"`) {
		t.Errorf("error = %q, want a suggestion", err.Error())
	}
	if !strings.Contains(err.Error(), "tether --help") {
		t.Errorf("error = %q, want a --help hint", err.Error())
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	t.Parallel()
	command := &Command{
		Name: "create",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			flagSet.Int("cols", 80, "")
			flagSet.Int("rows", 24, "")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--colz", "100"})
	if err == nil || !strings.Contains(err.Error(), "did you mean --cols") {
		t.Errorf("error = %v, want suggestion --cols", err)
	}
}

func TestCommand_Execute_HelpGoesToOutput(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	root := &Command{
		Name:    "tether",
		Summary: "Drive terminal sessions",
		Subcommands: []*Command{
			{Name: "list", Summary: "List sessions"},
		},
		Examples: []Example{{Description: "Show sessions", Command: "tether list"}},
	}
	root.SetOutput(&output)

	if err := root.Execute([]string{"--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	help := output.String()
	for _, want := range []string{"Drive terminal sessions", "Usage:\n  tether <command> [flags]", "list", "List sessions", "# Show sessions"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	t.Parallel()
	root := &Command{Name: "tether", Subcommands: []*Command{{Name: "list"}}}
	root.SetOutput(&bytes.Buffer{})

	if err := root.Execute(nil); err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %v, want subcommand required", err)
	}
}

func TestCommand_FullNameIncludesParents(t *testing.T) {
	t.Parallel()
	var output bytes.Buffer
	leaf := &Command{Name: "snapshot", Run: func([]string) error { return nil }}
	root := &Command{Name: "tether", Subcommands: []*Command{leaf}}
	root.SetOutput(&output)

	if err := root.Execute([]string{"snapshot", "--help"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output.String(), "tether snapshot [flags]") {
		t.Errorf("help = %q, want the full command path", output.String())
	}
}
