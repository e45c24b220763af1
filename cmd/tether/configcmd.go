// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/tether/cmd/tether/cli"
)

func (a *app) configCommand() *cli.Command {
	var (
		conn   connection
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "config",
		Summary: "Print the effective configuration",
		Description: "Print the configuration after defaults, the config file, and path\n" +
			"expansion are applied, then report any invalid fields.",
		Flags: func() *pflag.FlagSet {
			flagSet := newFlagSet("config", &conn)
			output.AddFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "tether config [flags]"); err != nil {
				return err
			}
			cfg, err := conn.config()
			if err != nil {
				return err
			}
			if done, err := output.EmitJSON(a.stdout, cfg); !done {
				encoder := yaml.NewEncoder(a.stdout)
				encoder.SetIndent(2)
				if err := encoder.Encode(cfg); err != nil {
					return cli.Internal("encoding config: %w", err)
				}
				if err := encoder.Close(); err != nil {
					return cli.Internal("encoding config: %w", err)
				}
			} else if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return cli.Validation("invalid configuration:\n%v", err)
			}
			return nil
		},
	}
}
