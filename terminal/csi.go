// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

// dispatchCSI executes a complete CSI sequence whose final byte is
// final. Sequences with intermediates or an unknown private marker are
// dropped.
func (in *Interpreter) dispatchCSI(final byte) {
	if in.intermediate != 0 {
		return
	}
	switch in.private {
	case 0:
	case '?':
		switch final {
		case 'h':
			in.setPrivateModes(true)
		case 'l':
			in.setPrivateModes(false)
		}
		return
	default:
		return
	}

	s := in.screen
	switch final {
	case 'A':
		in.moveRelative(0, -in.paramOr(0, 1))
	case 'B', 'e':
		in.moveRelative(0, in.paramOr(0, 1))
	case 'C', 'a':
		in.moveRelative(in.paramOr(0, 1), 0)
	case 'D':
		in.moveRelative(-in.paramOr(0, 1), 0)
	case 'E':
		in.moveRelative(0, in.paramOr(0, 1))
		s.cursorX = 0
	case 'F':
		in.moveRelative(0, -in.paramOr(0, 1))
		s.cursorX = 0
	case 'G', '`':
		s.cursorX = clamp(in.paramOr(0, 1)-1, 0, s.cols-1)
	case 'd':
		in.moveAbsolute(min(s.cursorX, s.cols-1), in.paramOr(0, 1)-1)
	case 'H', 'f':
		in.moveAbsolute(in.paramOr(1, 1)-1, in.paramOr(0, 1)-1)
	case 'J':
		s.EraseInDisplay(in.paramOr(0, 0))
	case 'K':
		s.EraseInLine(in.paramOr(0, 0))
	case 'X':
		s.EraseChars(in.paramOr(0, 1))
	case 'P':
		s.DeleteChars(in.paramOr(0, 1))
	case '@':
		s.InsertChars(in.paramOr(0, 1))
	case 'L':
		s.InsertLines(in.paramOr(0, 1))
	case 'M':
		s.DeleteLines(in.paramOr(0, 1))
	case 'S':
		s.ScrollUp(in.paramOr(0, 1))
	case 'T':
		s.ScrollDown(in.paramOr(0, 1))
	case 'm':
		in.selectGraphicRendition()
	case 'r':
		in.setScrollRegion()
	case 'h':
		in.setModes(true)
	case 'l':
		in.setModes(false)
	}
	// 's' and 'u' (cursor save/restore) are recognized by falling
	// through: parsed, never applied.
}

// moveRelative shifts the cursor, clamping to the screen.
func (in *Interpreter) moveRelative(dx, dy int) {
	s := in.screen
	s.cursorX = clamp(min(s.cursorX, s.cols-1)+dx, 0, s.cols-1)
	s.cursorY = clamp(s.cursorY+dy, 0, s.rows-1)
}

// moveAbsolute places the cursor at a 0-indexed position. In origin
// mode rows count from the scroll region top and stay inside it.
func (in *Interpreter) moveAbsolute(x, y int) {
	s := in.screen
	s.cursorX = clamp(x, 0, s.cols-1)
	if s.modes.Origin {
		s.cursorY = clamp(s.top+y, s.top, s.bottom)
		return
	}
	s.cursorY = clamp(y, 0, s.rows-1)
}

func (in *Interpreter) setScrollRegion() {
	s := in.screen
	top := in.paramOr(0, 1) - 1
	bottom := in.paramOr(1, s.rows) - 1
	if top >= bottom || !s.SetScrollRegion(top, bottom) {
		return
	}
	s.cursorX = 0
	s.cursorY = s.top
}

func (in *Interpreter) setModes(on bool) {
	for _, mode := range in.params {
		if mode == 4 {
			in.screen.modes.Insert = on
		}
	}
}

func (in *Interpreter) setPrivateModes(on bool) {
	s := in.screen
	for _, mode := range in.params {
		switch mode {
		case 6:
			s.modes.Origin = on
			s.cursorX = 0
			s.cursorY = 0
			if on {
				s.cursorY = s.top
			}
		case 7:
			s.modes.Autowrap = on
		case 47, 1047, 1049:
			s.SwitchAlternateScreen(on)
		case 2004:
			s.modes.BracketedPaste = on
		}
	}
}
