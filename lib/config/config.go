// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "TETHER_CONFIG"

// Config is the complete tether configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Session SessionConfig `yaml:"session" json:"session"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// State holds one directory per session with its event log and
	// metadata. Default: ~/.local/state/tether
	State string `yaml:"state" json:"state"`

	// Socket is the control socket the CLI talks to.
	// Default: ${TETHER_STATE}/tether.sock
	Socket string `yaml:"socket" json:"socket"`
}

// ServerConfig configures tether-server.
type ServerConfig struct {
	// HTTPAddress is the listen address for the snapshot and stream
	// endpoints. Empty disables HTTP.
	HTTPAddress string `yaml:"http_address" json:"http_address"`

	// MaxSessions bounds concurrently tracked sessions. Zero means no
	// limit.
	MaxSessions int `yaml:"max_sessions" json:"max_sessions"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// SessionConfig holds per-session defaults.
type SessionConfig struct {
	// Shell runs when a session is created without a command.
	Shell string `yaml:"shell" json:"shell"`

	Cols int `yaml:"cols" json:"cols"`
	Rows int `yaml:"rows" json:"rows"`

	// Scrollback is the number of rows each screen retains above the
	// visible area.
	Scrollback int `yaml:"scrollback" json:"scrollback"`

	// TerminateGrace is how long a terminated child gets between
	// SIGTERM and SIGKILL.
	TerminateGrace time.Duration `yaml:"terminate_grace" json:"terminate_grace"`

	// DrainGrace bounds how long output is still collected after the
	// child exits.
	DrainGrace time.Duration `yaml:"drain_grace" json:"drain_grace"`

	// TailPoll is how often log tails check for new data.
	TailPoll time.Duration `yaml:"tail_poll" json:"tail_poll"`

	// SyncWrites fsyncs the event log after every append.
	SyncWrites bool `yaml:"sync_writes" json:"sync_writes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	state := filepath.Join("${HOME}", ".local", "state", "tether")
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Config{
		Paths: PathsConfig{
			State:  state,
			Socket: filepath.Join("${TETHER_STATE}", "tether.sock"),
		},
		Server: ServerConfig{
			HTTPAddress: "127.0.0.1:7681",
			LogLevel:    "info",
		},
		Session: SessionConfig{
			Shell:          shell,
			Cols:           80,
			Rows:           24,
			Scrollback:     10000,
			TerminateGrace: 5 * time.Second,
			DrainGrace:     500 * time.Millisecond,
			TailPoll:       100 * time.Millisecond,
		},
	}
}

// Resolve loads the file named by flagPath, or by TETHER_CONFIG when
// flagPath is empty. With neither set it returns the expanded defaults.
func Resolve(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Plain JSON is valid YAML, so one decoder serves both once
		// comments and trailing commas are stripped.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Paths.State = expandVars(c.Paths.State, vars)
	vars["TETHER_STATE"] = c.Paths.State
	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
	c.Session.Shell = expandVars(c.Session.Shell, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}, consulting vars
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value := vars[name]; value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Paths.State == "" {
		errs = append(errs, errors.New("paths.state is required"))
	}
	if c.Paths.Socket == "" {
		errs = append(errs, errors.New("paths.socket is required"))
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions must not be negative, got %d", c.Server.MaxSessions))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Session.Shell == "" {
		errs = append(errs, errors.New("session.shell is required"))
	}
	if c.Session.Cols <= 0 || c.Session.Rows <= 0 {
		errs = append(errs, fmt.Errorf("session geometry must be positive, got %dx%d", c.Session.Cols, c.Session.Rows))
	}
	if c.Session.Scrollback < 0 {
		errs = append(errs, fmt.Errorf("session.scrollback must not be negative, got %d", c.Session.Scrollback))
	}
	for name, value := range map[string]time.Duration{
		"session.terminate_grace": c.Session.TerminateGrace,
		"session.drain_grace":     c.Session.DrainGrace,
		"session.tail_poll":       c.Session.TailPoll,
	} {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, value))
		}
	}
	return errors.Join(errs...)
}

// Level parses Server.LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Server.LogLevel)); err != nil {
		return 0, fmt.Errorf("server.log_level: %w", err)
	}
	return level, nil
}

// EnsurePaths creates the state directory and the socket's parent.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.State, filepath.Dir(c.Paths.Socket)} {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
