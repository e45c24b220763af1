// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"

	"github.com/bureau-foundation/tether/terminal"
)

type viewKind uint8

const (
	viewLive viewKind = iota
	viewBottom
	viewAt
)

// View selects which lines of a screen's history and grid a snapshot
// covers. The zero View is Live.
type View struct {
	kind  viewKind
	value int
}

// Live covers exactly the visible screen.
func Live() View { return View{} }

// Bottom covers the last n lines of history plus screen. n is capped
// at the number of lines available; n <= 0 is Live.
func Bottom(n int) View { return View{kind: viewBottom, value: n} }

// At covers one screen height of lines starting at line top, clamped
// so the window stays within history plus screen.
func At(top int) View { return View{kind: viewAt, value: top} }

// String describes the view for logs.
func (v View) String() string {
	switch v.kind {
	case viewBottom:
		return fmt.Sprintf("bottom(%d)", v.value)
	case viewAt:
		return fmt.Sprintf("at(%d)", v.value)
	default:
		return "live"
	}
}

// window resolves the view against screen to a first line and a line
// count.
func (v View) window(screen *terminal.Screen) (top, rows int) {
	total := screen.TotalLines()
	switch v.kind {
	case viewBottom:
		if v.value <= 0 {
			return screen.HistoryLen(), screen.Rows()
		}
		rows = min(v.value, total)
		return total - rows, rows
	case viewAt:
		rows = screen.Rows()
		return min(max(v.value, 0), total-rows), rows
	default:
		return screen.HistoryLen(), screen.Rows()
	}
}
