// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/tether/eventlog"
	"github.com/bureau-foundation/tether/lib/clock"
	"github.com/bureau-foundation/tether/snapshot"
	"github.com/bureau-foundation/tether/terminal"
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// StateDirectory holds one subdirectory per session.
	StateDirectory string

	// MaxSessions bounds running sessions. Zero means no limit.
	MaxSessions int

	// Defaults supplies the fields a Create request leaves empty:
	// Command, Cols, Rows, Scrollback, the grace periods, and
	// SyncWrites.
	Defaults Config

	// TailPollInterval is passed to log tails. Zero uses the
	// eventlog default.
	TailPollInterval time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Registry tracks sessions by id. It is safe for concurrent use.
type Registry struct {
	config RegistryConfig
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	// removeAll deletes a session directory; tests substitute it.
	removeAll func(path string) error
}

// entry is one tracked id. A reserved entry holds an id while its
// process is being spawned and is invisible to lookups. A detached
// entry was restored from disk and has no controller.
type entry struct {
	reserved   bool
	controller *Controller
	detached   Info
}

// info and running read detached state; callers hold r.mu.
func (e *entry) info() Info {
	if e.controller != nil {
		return e.controller.Info()
	}
	return e.detached.clone()
}

func (e *entry) running() bool {
	if e.controller != nil {
		select {
		case <-e.controller.Done():
			return false
		default:
			return true
		}
	}
	return e.detached.Running()
}

// NewRegistry returns an empty registry. Call Restore to load
// sessions left by a previous run.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.StateDirectory == "" {
		return nil, fmt.Errorf("%w: no state directory", ErrInvalidConfig)
	}
	if err := os.MkdirAll(config.StateDirectory, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		config:    config,
		clock:     config.Clock,
		logger:    config.Logger,
		entries:   make(map[string]*entry),
		removeAll: os.RemoveAll,
	}, nil
}

// Create starts a session. Fields left empty in config come from the
// registry defaults; an empty ID gets a random UUID.
func (r *Registry) Create(ctx context.Context, config Config) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	config = r.withDefaults(config)
	if err := checkSize(config.Cols, config.Rows); err != nil {
		return Info{}, err
	}
	if !validID(config.ID) {
		return Info{}, fmt.Errorf("%w: id %q", ErrInvalidConfig, config.ID)
	}

	if err := r.reserve(config.ID); err != nil {
		return Info{}, err
	}
	controller, err := Start(config)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		delete(r.entries, config.ID)
		_ = os.RemoveAll(config.Directory)
		r.logger.Warn("session start failed", "session", config.ID, "error", err)
		return Info{}, err
	}
	r.entries[config.ID] = &entry{controller: controller}
	return controller.Info(), nil
}

func (r *Registry) withDefaults(config Config) Config {
	defaults := r.config.Defaults
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if len(config.Command) == 0 {
		config.Command = defaults.Command
	}
	if config.Cols == 0 && config.Rows == 0 {
		config.Cols, config.Rows = defaults.Cols, defaults.Rows
	}
	if config.Scrollback == 0 {
		config.Scrollback = defaults.Scrollback
	}
	if config.TerminateGrace == 0 {
		config.TerminateGrace = defaults.TerminateGrace
	}
	if config.DrainGrace == 0 {
		config.DrainGrace = defaults.DrainGrace
	}
	config.SyncWrites = config.SyncWrites || defaults.SyncWrites
	config.Directory = filepath.Join(r.config.StateDirectory, config.ID)
	config.Clock = r.clock
	config.Logger = r.logger
	return config
}

// reserve claims id for a spawn in progress.
func (r *Registry) reserve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}
	if limit := r.config.MaxSessions; limit > 0 {
		active := 0
		for _, existing := range r.entries {
			if existing.reserved || existing.running() {
				active++
			}
		}
		if active >= limit {
			return fmt.Errorf("%w: %d sessions running (limit %d)", ErrResourceExhausted, active, limit)
		}
	}
	r.entries[id] = &entry{reserved: true}
	return nil
}

// lookup returns the visible entry for id.
func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	found, ok := r.entries[id]
	if !ok || found.reserved {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// controller returns the live controller for id.
func (r *Registry) controller(id string) (*Controller, error) {
	found, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if found.controller == nil {
		if !r.detachedInfo(id, found).Running() {
			return nil, ErrAlreadyExited
		}
		return nil, fmt.Errorf("%w: %s", ErrDetached, id)
	}
	return found.controller, nil
}

// detachedInfo refreshes and returns a restored session's metadata.
func (r *Registry) detachedInfo(id string, found *entry) Info {
	r.refreshDetached(id)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return found.info()
}

// Get returns the session's metadata.
func (r *Registry) Get(id string) (Info, error) {
	found, err := r.lookup(id)
	if err != nil {
		return Info{}, err
	}
	if found.controller == nil {
		return r.detachedInfo(id, found), nil
	}
	return found.controller.Info(), nil
}

// List returns every visible session, newest first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	var detached []string
	for id, found := range r.entries {
		if !found.reserved && found.controller == nil && found.detached.Running() {
			detached = append(detached, id)
		}
	}
	r.mu.RUnlock()
	for _, id := range detached {
		r.refreshDetached(id)
	}

	r.mu.RLock()
	infos := make([]Info, 0, len(r.entries))
	for _, found := range r.entries {
		if !found.reserved {
			infos = append(infos, found.info())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(infos, func(a, b Info) int {
		if order := b.StartedAt.Compare(a.StartedAt); order != 0 {
			return order
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}

// Remove forgets an exited session and deletes its directory.
func (r *Registry) Remove(id string) error {
	found, err := r.lookup(id)
	if err != nil {
		return err
	}
	if found.controller == nil {
		r.refreshDetached(id)
	}

	r.mu.Lock()
	if r.entries[id] != found {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if found.running() {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStillRunning, id)
	}
	delete(r.entries, id)
	r.mu.Unlock()

	if err := r.removeAll(filepath.Join(r.config.StateDirectory, id)); err != nil {
		// Keep the session addressable so the removal can be retried.
		r.mu.Lock()
		if _, taken := r.entries[id]; !taken {
			r.entries[id] = found
		}
		r.mu.Unlock()
		return fmt.Errorf("removing session %s: %w", id, err)
	}
	r.logger.Info("session removed", "session", id)
	return nil
}

// CleanupExited removes every exited session. Failures are collected
// and returned together; they do not stop the sweep.
func (r *Registry) CleanupExited() ([]string, error) {
	var candidates []string
	for _, info := range r.List() {
		if !info.Running() {
			candidates = append(candidates, info.ID)
		}
	}

	var removed []string
	var errs []error
	for _, id := range candidates {
		if err := r.Remove(id); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, id)
	}
	return removed, errors.Join(errs...)
}

// Resize resizes a running session.
func (r *Registry) Resize(id string, cols, rows int) error {
	if err := checkSize(cols, rows); err != nil {
		return err
	}
	controller, err := r.controller(id)
	if err != nil {
		return err
	}
	return controller.Resize(cols, rows)
}

// SendInput writes data to a running session's terminal.
func (r *Registry) SendInput(id string, data []byte) error {
	controller, err := r.controller(id)
	if err != nil {
		return err
	}
	return controller.SendInput(data)
}

// SendKey sends a named key to a running session.
func (r *Registry) SendKey(id, name string) error {
	data, err := KeyBytes(name)
	if err != nil {
		return err
	}
	return r.SendInput(id, data)
}

// SendSignal signals a running session's foreground process group.
// Detached sessions are signaled through their recorded process
// group.
func (r *Registry) SendSignal(id string, signal syscall.Signal) error {
	found, err := r.lookup(id)
	if err != nil {
		return err
	}
	if found.controller != nil {
		return found.controller.SendSignal(signal)
	}
	info := r.detachedInfo(id, found)
	if !info.Running() {
		return ErrAlreadyExited
	}
	if err := unix.Kill(-info.PID, signal); err != nil {
		return fmt.Errorf("sending %v to detached session %s: %w", signal, id, err)
	}
	return nil
}

// Kill terminates a running session and waits for its exit to be
// recorded.
func (r *Registry) Kill(ctx context.Context, id string) error {
	found, err := r.lookup(id)
	if err != nil {
		return err
	}
	if found.controller != nil {
		return found.controller.Terminate(ctx)
	}
	return r.killDetached(id)
}

// killDetached SIGKILLs a restored session's process group. There is
// no waiter for it, so the exit is recorded as the signal's code.
func (r *Registry) killDetached(id string) error {
	r.refreshDetached(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	found, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !found.detached.Running() {
		return ErrAlreadyExited
	}
	if err := unix.Kill(-found.detached.PID, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("killing detached session %s: %w", id, err)
	}
	r.markExitedLocked(found, 128+int(unix.SIGKILL))
	return nil
}

// Snapshot encodes view of a session's screen. Sessions without a
// controller are rebuilt from their log.
func (r *Registry) Snapshot(id string, view snapshot.View) ([]byte, error) {
	screen, err := r.Screen(id)
	if err != nil {
		return nil, err
	}
	return snapshot.Encode(screen, view), nil
}

// Screen returns a copy of a session's screen.
func (r *Registry) Screen(id string) (*terminal.Screen, error) {
	found, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if found.controller != nil {
		return found.controller.Screen(), nil
	}
	screen, _, err := eventlog.ReplayFile(r.detachedInfo(id, found).LogPath, eventlog.ReplayOptions{
		Scrollback: r.config.Defaults.Scrollback,
	})
	if err != nil {
		return nil, fmt.Errorf("replaying session %s: %w", id, err)
	}
	return screen, nil
}

// LogPath returns the path of a session's event log.
func (r *Registry) LogPath(id string) (string, error) {
	found, err := r.lookup(id)
	if err != nil {
		return "", err
	}
	if found.controller != nil {
		return found.controller.LogPath(), nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return found.detached.LogPath, nil
}

// Tail follows a session's log from offset. Options override the
// registry's poll interval, clock, and logger.
func (r *Registry) Tail(ctx context.Context, id string, offset int64, options ...eventlog.TailOption) (*eventlog.Tail, error) {
	path, err := r.LogPath(id)
	if err != nil {
		return nil, err
	}
	defaults := []eventlog.TailOption{
		eventlog.WithTailClock(r.clock),
		eventlog.WithTailLogger(r.logger.With("session", id)),
	}
	if r.config.TailPollInterval > 0 {
		defaults = append(defaults, eventlog.WithPollInterval(r.config.TailPollInterval))
	}
	return eventlog.OpenTail(ctx, path, offset, append(defaults, options...)...)
}

// Wait blocks until a session has exited and returns its metadata.
func (r *Registry) Wait(ctx context.Context, id string) (Info, error) {
	found, err := r.lookup(id)
	if err != nil {
		return Info{}, err
	}
	if found.controller == nil {
		return r.Get(id)
	}
	if _, err := found.controller.Wait(ctx); err != nil {
		return Info{}, err
	}
	return found.controller.Info(), nil
}

// Shutdown terminates every running session. Errors are joined.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	var controllers []*Controller
	for _, found := range r.entries {
		if found.controller != nil {
			controllers = append(controllers, found.controller)
		}
	}
	r.mu.RUnlock()

	var (
		wait sync.WaitGroup
		lock sync.Mutex
		errs []error
	)
	for _, controller := range controllers {
		wait.Go(func() {
			err := controller.Terminate(ctx)
			if err != nil && !errors.Is(err, ErrAlreadyExited) {
				lock.Lock()
				errs = append(errs, fmt.Errorf("terminating %s: %w", controller.ID(), err))
				lock.Unlock()
			}
		})
	}
	wait.Wait()
	return errors.Join(errs...)
}

// Restore loads sessions recorded under the state directory that the
// registry does not already track. Sessions recorded as running whose
// process is gone become exited, taking the exit code from their log
// when it has one. Unreadable directories are reported and skipped.
func (r *Registry) Restore() (int, error) {
	directories, err := os.ReadDir(r.config.StateDirectory)
	if err != nil {
		return 0, fmt.Errorf("reading state directory: %w", err)
	}

	restored := 0
	var errs []error
	for _, directory := range directories {
		if !directory.IsDir() {
			continue
		}
		path := filepath.Join(r.config.StateDirectory, directory.Name())
		info, err := readInfo(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if info.ID != directory.Name() {
			errs = append(errs, fmt.Errorf("%s records id %q", path, info.ID))
			continue
		}

		info.LogPath = filepath.Join(path, LogFileName)
		found := &entry{detached: info}
		r.mu.Lock()
		if _, exists := r.entries[info.ID]; exists {
			r.mu.Unlock()
			continue
		}
		r.entries[info.ID] = found
		if info.Running() {
			found.detached.Detached = true
			if !sessionLeaderAlive(info.PID) {
				r.markExitedLocked(found, r.loggedExitCode(info))
			}
		}
		r.mu.Unlock()
		restored++
	}
	if restored > 0 {
		r.logger.Info("sessions restored", "count", restored)
	}
	return restored, errors.Join(errs...)
}

// loggedExitCode returns the exit code in a session's log, or
// ExitCodeIOFailure when the log has none.
func (r *Registry) loggedExitCode(info Info) int {
	log, err := eventlog.ReadAll(info.LogPath)
	if err != nil {
		return ExitCodeIOFailure
	}
	if exit, ok := log.Exit(); ok {
		return exit.ExitCode
	}
	return ExitCodeIOFailure
}

// refreshDetached marks a detached session exited once its process
// is gone.
func (r *Registry) refreshDetached(id string) {
	r.mu.RLock()
	found, ok := r.entries[id]
	if !ok || found.controller != nil || !found.detached.Running() {
		r.mu.RUnlock()
		return
	}
	pid := found.detached.PID
	r.mu.RUnlock()

	if sessionLeaderAlive(pid) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if found.detached.Running() {
		r.markExitedLocked(found, r.loggedExitCode(found.detached))
	}
}

// markExitedLocked records an exit the registry observed without a
// controller. Caller holds r.mu.
func (r *Registry) markExitedLocked(found *entry, code int) {
	found.detached.State = StateExited
	found.detached.ExitCode = code
	found.detached.ExitedAt = r.clock.Now()
	directory := filepath.Dir(found.detached.LogPath)
	if err := writeInfo(directory, found.detached); err != nil {
		r.logger.Warn("persisting session metadata failed", "session", found.detached.ID, "error", err)
	}
	r.logger.Info("detached session exited", "session", found.detached.ID, "exit_code", code)
}
