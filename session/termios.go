// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package session

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// configureLineDiscipline puts the PTY slave in the cooked mode an
// interactive shell expects: canonical input with echo, signal keys,
// CR to NL on input, NL to CRNL on output, and 8-bit characters.
func configureLineDiscipline(tty *os.File) error {
	connection, err := tty.SyscallConn()
	if err != nil {
		return fmt.Errorf("accessing tty: %w", err)
	}
	var ioctlErr error
	err = connection.Control(func(fd uintptr) {
		termios, err := unix.IoctlGetTermios(int(fd), getTermiosRequest)
		if err != nil {
			ioctlErr = fmt.Errorf("reading termios: %w", err)
			return
		}

		termios.Iflag = unix.ICRNL | unix.IXON | unix.IXANY | unix.IMAXBEL | unix.BRKINT | platformInputFlags
		termios.Oflag = unix.OPOST | unix.ONLCR
		termios.Cflag = termios.Cflag&^(unix.CSIZE|unix.PARENB) | unix.CS8 | unix.CREAD
		termios.Lflag = unix.ICANON | unix.ISIG | unix.IEXTEN |
			unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHOKE | unix.ECHOCTL

		termios.Cc[unix.VINTR] = 0x03    // ^C
		termios.Cc[unix.VQUIT] = 0x1c    // ^\
		termios.Cc[unix.VERASE] = 0x7f   // DEL
		termios.Cc[unix.VKILL] = 0x15    // ^U
		termios.Cc[unix.VEOF] = 0x04     // ^D
		termios.Cc[unix.VSTART] = 0x11   // ^Q
		termios.Cc[unix.VSTOP] = 0x13    // ^S
		termios.Cc[unix.VSUSP] = 0x1a    // ^Z
		termios.Cc[unix.VREPRINT] = 0x12 // ^R
		termios.Cc[unix.VWERASE] = 0x17  // ^W
		termios.Cc[unix.VLNEXT] = 0x16   // ^V
		termios.Cc[unix.VDISCARD] = 0x0f // ^O
		termios.Cc[unix.VMIN] = 1
		termios.Cc[unix.VTIME] = 0

		if err := unix.IoctlSetTermios(int(fd), setTermiosRequest, termios); err != nil {
			ioctlErr = fmt.Errorf("writing termios: %w", err)
		}
	})
	if err != nil {
		return fmt.Errorf("accessing tty: %w", err)
	}
	return ioctlErr
}

// foregroundProcessGroup returns the process group in the foreground
// of the terminal whose master is ptmx.
func foregroundProcessGroup(ptmx *os.File) (int, error) {
	connection, err := ptmx.SyscallConn()
	if err != nil {
		return 0, err
	}
	var group int
	var ioctlErr error
	err = connection.Control(func(fd uintptr) {
		group, ioctlErr = unix.IoctlGetInt(int(fd), unix.TIOCGPGRP)
	})
	if err != nil {
		return 0, err
	}
	return group, ioctlErr
}
