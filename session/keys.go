// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"slices"
	"strings"
)

// keySequences maps key names to the bytes a terminal sends for them.
var keySequences = map[string]string{
	"arrow_up":    "\x1b[A",
	"arrow_down":  "\x1b[B",
	"arrow_right": "\x1b[C",
	"arrow_left":  "\x1b[D",
	"escape":      "\x1b",
	"enter":       "\r",
	"ctrl_enter":  "\n",
	"shift_enter": "\x1b\r",
}

// KeyBytes returns the input bytes for a named key.
func KeyBytes(name string) ([]byte, error) {
	sequence, ok := keySequences[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownKey, name, strings.Join(KeyNames(), ", "))
	}
	return []byte(sequence), nil
}

// KeyNames returns the supported key names, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(keySequences))
	for name := range keySequences {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
