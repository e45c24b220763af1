// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import "github.com/bureau-foundation/tether/terminal"

// ReplayOptions tunes Replay.
type ReplayOptions struct {
	// Scrollback is the screen's scrollback limit. Zero means
	// terminal.DefaultScrollback; negative disables scrollback.
	Scrollback int

	// Until stops replay after the last event at or before this many
	// seconds. Zero or negative replays everything.
	Until float64
}

// Replay rebuilds the screen a log describes. Output is applied
// through one interpreter so escape sequences split across events
// parse as they did live; resize events resize the screen; input
// events are skipped.
func Replay(header Header, events []Event, options ReplayOptions) *terminal.Screen {
	scrollback := options.Scrollback
	switch {
	case scrollback == 0:
		scrollback = terminal.DefaultScrollback
	case scrollback < 0:
		scrollback = 0
	}
	screen := terminal.NewScreen(header.Width, header.Height, terminal.WithScrollback(scrollback))
	interpreter := terminal.NewInterpreter(screen)

	for _, event := range events {
		if event.IsExit() {
			break
		}
		if options.Until > 0 && event.Time > options.Until {
			break
		}
		switch event.Kind {
		case KindOutput:
			interpreter.Apply([]byte(event.Data))
		case KindResize:
			screen.Resize(event.Cols, event.Rows)
		}
	}
	return screen
}

// ReplayFile reads and replays the log at path.
func ReplayFile(path string, options ReplayOptions) (*terminal.Screen, *Log, error) {
	log, err := ReadAll(path)
	if err != nil {
		return nil, nil, err
	}
	return Replay(log.Header, log.Events, options), log, nil
}
