// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tether/api"
	"github.com/bureau-foundation/tether/lib/config"
	"github.com/bureau-foundation/tether/lib/process"
	"github.com/bureau-foundation/tether/lib/serverinfo"
	"github.com/bureau-foundation/tether/lib/version"
	"github.com/bureau-foundation/tether/session"
)

// lockFileName guards a state directory against a second server.
const lockFileName = "server.lock"

// shutdownSlack is added to the terminate grace period when waiting
// for sessions to exit during shutdown.
const shutdownSlack = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		configPath  string
		socketPath  string
		httpAddress string
		stateDir    string
		logLevel    string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("tether-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (default $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&socketPath, "socket", "", "control socket path (overrides paths.socket)")
	flagSet.StringVar(&httpAddress, "http", "", "HTTP listen address (overrides server.http_address; \"off\" disables)")
	flagSet.StringVar(&stateDir, "state-dir", "", "session state directory (overrides paths.state)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn, or error (overrides server.log_level)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("tether-server %s\n", version.Info())
		return nil
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	switch {
	case httpAddress == "off":
		cfg.Server.HTTPAddress = ""
	case httpAddress != "":
		cfg.Server.HTTPAddress = httpAddress
	}
	if stateDir != "" {
		cfg.Paths.State = stateDir
		if socketPath == "" {
			cfg.Paths.Socket = filepath.Join(stateDir, "tether.sock")
		}
	}
	if socketPath != "" {
		cfg.Paths.Socket = socketPath
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	level, _ := cfg.Level()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger, nil)
}

// listening is told the control socket and HTTP addresses once both
// accept connections. Tests use it; main passes nil.
type listening func(socketPath, httpAddress string)

// serve runs the server until ctx is cancelled or a listener fails,
// then terminates every session.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ready listening) error {
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	lock := flock.New(filepath.Join(cfg.Paths.State, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking state directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("state directory %s is in use by another tether-server", cfg.Paths.State)
	}
	defer lock.Unlock()

	registry, err := session.NewRegistry(session.RegistryConfig{
		StateDirectory: cfg.Paths.State,
		MaxSessions:    cfg.Server.MaxSessions,
		Defaults: session.Config{
			Command:        []string{cfg.Session.Shell},
			Cols:           cfg.Session.Cols,
			Rows:           cfg.Session.Rows,
			Scrollback:     cfg.Session.Scrollback,
			TerminateGrace: cfg.Session.TerminateGrace,
			DrainGrace:     cfg.Session.DrainGrace,
			SyncWrites:     cfg.Session.SyncWrites,
		},
		TailPollInterval: cfg.Session.TailPoll,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	restored, err := registry.Restore()
	if err != nil {
		// Unreadable session directories do not stop the server.
		logger.Warn("restoring sessions", "error", err)
	}
	logger.Info("tether-server starting",
		"version", version.Info(),
		"state", cfg.Paths.State,
		"socket", cfg.Paths.Socket,
		"http", cfg.Server.HTTPAddress,
		"restored", restored,
	)

	service := api.NewService(registry, logger)
	socketServer := api.NewSocketServer(cfg.Paths.Socket, logger)
	service.Register(socketServer)

	serverCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		group   sync.WaitGroup
		servers []<-chan struct{}
	)
	group.Go(func() {
		if err := socketServer.Serve(serverCtx); err != nil {
			cancel(fmt.Errorf("control socket: %w", err))
		}
	})
	servers = append(servers, socketServer.Ready())

	var httpServer *api.HTTPServer
	if cfg.Server.HTTPAddress != "" {
		httpServer = api.NewHTTPServer(api.HTTPServerConfig{
			Address: cfg.Server.HTTPAddress,
			Handler: service.HTTPHandler(),
			Logger:  logger,
		})
		group.Go(func() {
			if err := httpServer.Serve(serverCtx); err != nil {
				cancel(fmt.Errorf("http: %w", err))
			}
		})
		servers = append(servers, httpServer.Ready())
	}

	infoPath := serverinfo.Path(cfg.Paths.State)
	announced := make(chan struct{})
	defer func() {
		<-announced
		if err := serverinfo.Clear(infoPath); err != nil {
			logger.Warn("clearing server info", "error", err)
		}
	}()
	go func() {
		defer close(announced)
		for _, server := range servers {
			select {
			case <-server:
			case <-serverCtx.Done():
				return
			}
		}
		address := ""
		if httpServer != nil {
			address = httpServer.Addr().String()
		}
		err := serverinfo.Write(infoPath, serverinfo.Info{
			PID:         os.Getpid(),
			Socket:      cfg.Paths.Socket,
			HTTPAddress: address,
			Version:     version.Info(),
			StartedAt:   time.Now(),
		})
		if err != nil {
			logger.Warn("writing server info", "error", err)
		}
		if ready != nil {
			ready(cfg.Paths.Socket, address)
		}
	}()

	<-serverCtx.Done()
	group.Wait()
	cause := context.Cause(serverCtx)
	if ctx.Err() != nil {
		cause = nil
	}

	logger.Info("shutting down sessions")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Session.TerminateGrace+shutdownSlack)
	defer shutdownCancel()
	if err := registry.Shutdown(shutdownCtx); err != nil {
		logger.Error("session shutdown incomplete", "error", err)
		cause = errors.Join(cause, err)
	}
	return cause
}
