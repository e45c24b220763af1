// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/tether/eventlog"
	"github.com/bureau-foundation/tether/lib/clock"
	"github.com/bureau-foundation/tether/snapshot"
	"github.com/bureau-foundation/tether/terminal"
)

// readBufferSize is the largest chunk taken from the PTY at once.
const readBufferSize = 32 * 1024

// Controller runs one child process under a PTY. All methods are safe
// for concurrent use.
type Controller struct {
	id        string
	directory string
	config    Config
	clock     clock.Clock
	logger    *slog.Logger

	ptmx     *os.File
	command  *exec.Cmd
	log      *eventlog.Writer
	closePTY sync.Once
	// masterClosed is set once closeMaster has run; only then is
	// os.ErrClosed from the master an expected hang-up.
	masterClosed atomic.Bool

	// mu orders every log append with the screen mutation it
	// describes. Readers of the screen take it shared.
	mu          sync.RWMutex
	sanitizer   eventlog.Sanitizer
	screen      *terminal.Screen
	interpreter *terminal.Interpreter
	info        Info
	exited      bool
	failure     error

	readerDone chan struct{}
	finalize   sync.Once
	done       chan struct{}
}

// Start allocates a PTY, creates the session's log, and spawns the
// command. The returned controller is running; its reader and waiter
// goroutines end when the child exits.
func Start(config Config) (*Controller, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.Directory, 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, classifySpawnError(fmt.Errorf("allocating PTY: %w", err))
	}
	// The child holds its own copies of the slave after Start.
	defer tty.Close()

	if err := configureLineDiscipline(tty); err != nil {
		ptmx.Close()
		return nil, fmt.Errorf("configuring PTY: %w", err)
	}
	if err := pty.Setsize(ptmx, windowSize(config.Cols, config.Rows)); err != nil {
		ptmx.Close()
		return nil, fmt.Errorf("setting PTY size: %w", err)
	}

	env := environment(config.Env)
	logPath := filepath.Join(config.Directory, LogFileName)
	writerOptions := []eventlog.WriterOption{eventlog.WithClock(config.Clock)}
	if config.SyncWrites {
		writerOptions = append(writerOptions, eventlog.WithSync())
	}
	log, err := eventlog.Create(logPath, eventlog.Header{
		Version:   eventlog.Version,
		Width:     config.Cols,
		Height:    config.Rows,
		Timestamp: config.Clock.Now().Unix(),
		Command:   strings.Join(config.Command, " "),
		Title:     config.Title,
		Env:       headerEnv(env),
	}, writerOptions...)
	if err != nil {
		ptmx.Close()
		return nil, classifySpawnError(err)
	}

	command := exec.Command(config.Command[0], config.Command[1:]...)
	command.Dir = config.WorkingDirectory
	command.Env = env
	command.Stdin = tty
	command.Stdout = tty
	command.Stderr = tty
	command.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in the child is the slave
	}
	if err := command.Start(); err != nil {
		ptmx.Close()
		log.Close()
		os.Remove(logPath)
		return nil, classifySpawnError(fmt.Errorf("starting %s: %w", config.Command[0], err))
	}

	screen := terminal.NewScreen(config.Cols, config.Rows, terminal.WithScrollback(scrollbackLimit(config.Scrollback)))
	controller := &Controller{
		id:          config.ID,
		directory:   config.Directory,
		config:      config,
		clock:       config.Clock,
		logger:      config.Logger.With("session", config.ID),
		ptmx:        ptmx,
		command:     command,
		log:         log,
		screen:      screen,
		interpreter: terminal.NewInterpreter(screen),
		info: Info{
			ID:               config.ID,
			Command:          config.Command,
			WorkingDirectory: config.WorkingDirectory,
			PID:              command.Process.Pid,
			State:            StateRunning,
			Cols:             config.Cols,
			Rows:             config.Rows,
			StartedAt:        config.Clock.Now(),
			LogPath:          logPath,
		},
		readerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
	if err := writeInfo(config.Directory, controller.info); err != nil {
		controller.logger.Warn("persisting session metadata failed", "error", err)
	}
	controller.logger.Info("session started",
		"pid", controller.info.PID,
		"command", config.Command,
		"size", fmt.Sprintf("%dx%d", config.Cols, config.Rows),
	)

	go controller.read()
	go controller.wait()
	return controller, nil
}

func scrollbackLimit(configured int) int {
	switch {
	case configured == 0:
		return terminal.DefaultScrollback
	case configured < 0:
		return 0
	default:
		return configured
	}
}

func windowSize(cols, rows int) *pty.Winsize {
	return &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}
}

// headerEnv picks the environment entries asciicast players expect in
// the header.
func headerEnv(env []string) map[string]string {
	picked := make(map[string]string)
	for _, entry := range env {
		key, value, _ := strings.Cut(entry, "=")
		if key == "TERM" || key == "SHELL" {
			picked[key] = value
		}
	}
	return picked
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Info returns a copy of the session's current metadata.
func (c *Controller) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info.clone()
}

// LogPath returns the path of the session's event log.
func (c *Controller) LogPath() string { return c.info.LogPath }

// Done is closed once the exit has been logged and persisted.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Wait blocks until the session exits and returns its exit code.
func (c *Controller) Wait(ctx context.Context) (int, error) {
	select {
	case <-c.done:
		return c.Info().ExitCode, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Screen returns a copy of the current screen.
func (c *Controller) Screen() *terminal.Screen {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.screen.Clone()
}

// Snapshot encodes view of the current screen.
func (c *Controller) Snapshot(view snapshot.View) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return snapshot.Encode(c.screen, view)
}

// Resize changes the PTY window and the screen, and logs the change.
// Invalid sizes are rejected before anything is touched.
func (c *Controller) Resize(cols, rows int) error {
	if err := checkSize(cols, rows); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exited {
		return ErrAlreadyExited
	}
	if err := pty.Setsize(c.ptmx, windowSize(cols, rows)); err != nil {
		return fmt.Errorf("resizing PTY: %w", err)
	}
	if _, err := c.log.Append(eventlog.Resize(0, cols, rows)); err != nil {
		c.failLocked(err)
		return fmt.Errorf("logging resize: %w", err)
	}
	c.screen.Resize(cols, rows)
	c.info.Cols, c.info.Rows = cols, rows
	return nil
}

// SendInput logs data and writes it to the child's terminal.
func (c *Controller) SendInput(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	c.mu.Lock()
	if c.exited {
		c.mu.Unlock()
		return ErrAlreadyExited
	}
	if _, err := c.log.Append(eventlog.Input(0, string(data))); err != nil {
		c.failLocked(err)
		c.mu.Unlock()
		return fmt.Errorf("logging input: %w", err)
	}
	c.mu.Unlock()

	// The write happens outside the lock: a child that is not reading
	// its input can block it, and the reader must keep draining
	// output meanwhile.
	if _, err := c.ptmx.Write(data); err != nil {
		if c.hangup(err) {
			if c.masterClosed.Load() {
				return ErrAlreadyExited
			}
			return fmt.Errorf("writing input: %w", err)
		}
		err = fmt.Errorf("writing input: %w", err)
		c.mu.Lock()
		c.failLocked(err)
		c.mu.Unlock()
		return err
	}
	return nil
}

// SendKey sends the bytes for a named key.
func (c *Controller) SendKey(name string) error {
	data, err := KeyBytes(name)
	if err != nil {
		return err
	}
	return c.SendInput(data)
}

// SendSignal delivers signal to the terminal's foreground process
// group, or to the child's group when the foreground is unknown.
func (c *Controller) SendSignal(signal syscall.Signal) error {
	c.mu.RLock()
	exited := c.exited
	c.mu.RUnlock()
	if exited {
		return ErrAlreadyExited
	}

	group, err := foregroundProcessGroup(c.ptmx)
	if err != nil || group <= 0 {
		group = c.info.PID
	}
	if err := unix.Kill(-group, signal); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return ErrAlreadyExited
		}
		return fmt.Errorf("sending %v to process group %d: %w", signal, group, err)
	}
	c.logger.Debug("signal sent", "signal", signal.String(), "process_group", group)
	return nil
}

// Terminate sends SIGTERM to the child's process group and SIGKILL
// once the grace period passes. It returns when the exit has been
// finalized or ctx is done. Terminating an exited session returns
// ErrAlreadyExited.
func (c *Controller) Terminate(ctx context.Context) error {
	select {
	case <-c.done:
		return ErrAlreadyExited
	default:
	}

	c.signalGroup(unix.SIGTERM)
	select {
	case <-c.done:
		return nil
	case <-c.clock.After(c.config.TerminateGrace):
		c.logger.Info("session ignored SIGTERM, sending SIGKILL", "grace", c.config.TerminateGrace)
	case <-ctx.Done():
	}

	c.signalGroup(unix.SIGKILL)
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// signalGroup signals the child's process group, then the child
// itself in case it left the group.
func (c *Controller) signalGroup(signal syscall.Signal) {
	_ = unix.Kill(-c.info.PID, signal)
	_ = c.command.Process.Signal(signal)
}

// read drains the PTY master until hang-up.
func (c *Controller) read() {
	defer close(c.readerDone)
	buffer := make([]byte, readBufferSize)
	for {
		n, err := c.ptmx.Read(buffer)
		if n > 0 {
			c.output(buffer[:n])
		}
		if err != nil {
			if !c.hangup(err) {
				c.mu.Lock()
				c.failLocked(fmt.Errorf("reading PTY: %w", err))
				c.mu.Unlock()
			}
			return
		}
	}
}

// output runs one chunk through the sanitizer, the log, and the
// interpreter as a single step.
func (c *Controller) output(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exited {
		return
	}
	c.applyLocked(c.sanitizer.Sanitize(chunk))
}

func (c *Controller) applyLocked(text []byte) {
	if len(text) == 0 || c.failure != nil {
		return
	}
	if _, err := c.log.Append(eventlog.Output(0, string(text))); err != nil {
		c.failLocked(fmt.Errorf("logging output: %w", err))
		return
	}
	c.interpreter.Apply(text)
}

// failLocked records the first I/O failure and kills the child; the
// waiter then finalizes with ExitCodeIOFailure.
func (c *Controller) failLocked(err error) {
	if c.failure != nil || c.exited {
		return
	}
	c.failure = err
	c.logger.Error("session I/O failed, killing child", "error", err)
	c.signalGroup(unix.SIGKILL)
}

// hangup reports the errors a PTY master returns once the slave has
// no more writers, or after closeMaster during finalization. A master
// closed by anything else is a failure.
func (c *Controller) hangup(err error) bool {
	if errors.Is(err, os.ErrClosed) {
		return c.masterClosed.Load()
	}
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO)
}

// wait reaps the child and finalizes the exit.
func (c *Controller) wait() {
	_ = c.command.Wait()
	c.finish(exitCode(c.command.ProcessState))
}

// exitCode maps a wait status to a shell-style exit code.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return ExitCodeIOFailure
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}

// finish runs exactly once: it lets the reader drain what the child
// wrote before exiting, logs the exit, persists the final metadata,
// and closes Done.
func (c *Controller) finish(code int) {
	c.finalize.Do(func() {
		select {
		case <-c.readerDone:
		case <-c.clock.After(c.config.DrainGrace):
			// A grandchild still holds the slave open. Closing the
			// master unblocks the reader.
			c.logger.Debug("output drain timed out", "grace", c.config.DrainGrace)
			c.closeMaster()
			select {
			case <-c.readerDone:
			case <-c.clock.After(c.config.DrainGrace):
			}
		}

		c.mu.Lock()
		c.applyLocked(c.sanitizer.Flush())
		if c.failure != nil {
			code = ExitCodeIOFailure
		}
		if _, err := c.log.Append(eventlog.Exit(code, c.id)); err != nil {
			c.logger.Error("logging exit failed", "error", err)
			_ = c.log.Close()
		}
		c.exited = true
		c.info.State = StateExited
		c.info.ExitCode = code
		c.info.ExitedAt = c.clock.Now()
		info := c.info.clone()
		c.mu.Unlock()

		c.closeMaster()
		if err := writeInfo(c.directory, info); err != nil {
			c.logger.Warn("persisting session metadata failed", "error", err)
		}
		c.logger.Info("session exited", "exit_code", code)
		close(c.done)
	})
}

func (c *Controller) closeMaster() {
	c.closePTY.Do(func() {
		c.masterClosed.Store(true)
		_ = c.ptmx.Close()
	})
}
