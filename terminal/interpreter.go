// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// Parameter limits. Values beyond these are clamped or dropped so a
// hostile stream cannot grow parser state without bound.
const (
	maxParams     = 32
	maxParamValue = 65535
)

// parserState is the escape-sequence recognizer's position.
type parserState uint8

const (
	stateGround parserState = iota
	stateEscape
	stateCharset
	stateCSI
	stateOSC
	stateOSCEscape
	stateString
	stateStringEscape
)

// widthCondition fixes East Asian ambiguous characters at width 1. The
// runewidth default consults the locale, which would make the same log
// replay differently on different machines.
var widthCondition = func() *runewidth.Condition {
	condition := runewidth.NewCondition()
	condition.EastAsianWidth = false
	return condition
}()

// Interpreter turns a terminal byte stream into Screen mutations. It
// implements io.Writer; Write never fails.
type Interpreter struct {
	screen *Screen
	state  parserState

	params       []int
	param        int
	paramDigits  bool
	private      byte
	intermediate byte

	pending     [utf8.UTFMax]byte
	pendingSize int
}

// NewInterpreter returns an interpreter driving screen.
func NewInterpreter(screen *Screen) *Interpreter {
	return &Interpreter{
		screen: screen,
		params: make([]int, 0, maxParams),
	}
}

// Apply feeds data through a fresh interpreter bound to screen. Use it
// for self-contained input; streams split across calls need a long-lived
// Interpreter so parser state carries over.
func Apply(screen *Screen, data []byte) *Screen {
	NewInterpreter(screen).Apply(data)
	return screen
}

// Screen returns the screen this interpreter drives.
func (in *Interpreter) Screen() *Screen { return in.screen }

// Apply consumes data.
func (in *Interpreter) Apply(data []byte) {
	for _, b := range data {
		in.step(b)
	}
}

// Write consumes p and always reports success.
func (in *Interpreter) Write(p []byte) (int, error) {
	in.Apply(p)
	return len(p), nil
}

func (in *Interpreter) step(b byte) {
	// CAN and SUB abort any sequence in progress.
	if (b == 0x18 || b == 0x1a) && in.state != stateGround {
		in.state = stateGround
		return
	}

	switch in.state {
	case stateGround:
		in.ground(b)
	case stateEscape:
		in.escape(b)
	case stateCharset:
		in.state = stateGround
	case stateCSI:
		in.csi(b)
	case stateOSC:
		switch b {
		case 0x07:
			in.state = stateGround
		case 0x1b:
			in.state = stateOSCEscape
		}
	case stateOSCEscape:
		if b == '\\' {
			in.state = stateGround
			return
		}
		// Any other byte after ESC starts a new escape sequence.
		in.state = stateEscape
		in.escape(b)
	case stateString:
		if b == 0x1b {
			in.state = stateStringEscape
		}
	case stateStringEscape:
		switch b {
		case '\\':
			in.state = stateGround
		case 0x1b:
		default:
			in.state = stateString
		}
	}
}

func (in *Interpreter) ground(b byte) {
	if in.pendingSize > 0 || b >= 0x80 {
		in.decodeUTF8(b)
		return
	}
	if b < 0x20 || b == 0x7f {
		in.control(b)
		return
	}
	in.print(rune(b))
}

// decodeUTF8 accumulates a multi-byte code point. Invalid input yields
// one U+FFFD per offending byte, the same substitution encoding/json
// makes, and the bytes after the first are re-read from the ground
// state.
func (in *Interpreter) decodeUTF8(b byte) {
	in.pending[in.pendingSize] = b
	in.pendingSize++
	buffered := in.pending[:in.pendingSize]
	if !utf8.FullRune(buffered) {
		return
	}
	r, size := utf8.DecodeRune(buffered)
	rest := append([]byte(nil), buffered[size:]...)
	in.pendingSize = 0
	in.print(r)
	for _, next := range rest {
		in.step(next)
	}
}

// control executes a C0 control character.
func (in *Interpreter) control(b byte) {
	s := in.screen
	switch b {
	case 0x1b:
		in.state = stateEscape
	case '\r':
		s.cursorX = 0
	case '\n', 0x0b, 0x0c:
		in.lineFeed()
	case '\t':
		s.cursorX = min((s.cursorX/8+1)*8, s.cols-1)
	case '\b':
		s.cursorX = max(min(s.cursorX, s.cols)-1, 0)
	}
}

func (in *Interpreter) print(r rune) {
	s := in.screen
	width := widthCondition.RuneWidth(r)
	if width == 0 {
		return
	}
	if width == 2 && s.cols < 2 {
		r, width = utf8.RuneError, 1
	}
	if width == 2 && s.cursorX >= s.cols-1 {
		if s.modes.Autowrap {
			s.cursorX = 0
			in.lineFeed()
		} else {
			s.cursorX = s.cols - 2
		}
	}
	if s.modes.Insert {
		s.InsertChars(width)
	}
	s.Write(s.pen.cell(r, width), s.cursorX, s.cursorY)
	s.cursorX += width
	if s.cursorX >= s.cols {
		if s.modes.Autowrap {
			s.cursorX = 0
			in.lineFeed()
		} else {
			s.cursorX = s.cols - 1
		}
	}
}

// lineFeed moves down one row, scrolling the region when the cursor
// sits on its bottom row.
func (in *Interpreter) lineFeed() {
	s := in.screen
	switch {
	case s.cursorY == s.bottom:
		s.ScrollUp(1)
	case s.cursorY < s.rows-1:
		s.cursorY++
	}
}

// reverseIndex moves up one row, scrolling the region down when the
// cursor sits on its top row.
func (in *Interpreter) reverseIndex() {
	s := in.screen
	switch {
	case s.cursorY == s.top:
		s.ScrollDown(1)
	case s.cursorY > 0:
		s.cursorY--
	}
}

func (in *Interpreter) escape(b byte) {
	s := in.screen
	in.state = stateGround
	switch b {
	case '[':
		in.resetParams()
		in.state = stateCSI
	case ']':
		in.state = stateOSC
	case 'P', 'X', '^', '_':
		in.state = stateString
	case '(', ')', '*', '+', '-', '.', '/', '#', '%':
		in.state = stateCharset
	case 'D':
		in.lineFeed()
	case 'E':
		s.cursorX = 0
		in.lineFeed()
	case 'M':
		in.reverseIndex()
	case 'c':
		s.Reset()
	case 0x1b:
		in.state = stateEscape
	default:
		// ESC 7 / ESC 8 (cursor save/restore) land here and are
		// dropped. C0 controls execute without ending the sequence.
		if b < 0x20 {
			in.control(b)
			in.state = stateEscape
		}
	}
}

func (in *Interpreter) resetParams() {
	in.params = in.params[:0]
	in.param = 0
	in.paramDigits = false
	in.private = 0
	in.intermediate = 0
}

func (in *Interpreter) pushParam() {
	if len(in.params) < maxParams {
		in.params = append(in.params, in.param)
	}
	in.param = 0
	in.paramDigits = false
}

func (in *Interpreter) csi(b byte) {
	switch {
	case b >= '0' && b <= '9':
		in.param = min(in.param*10+int(b-'0'), maxParamValue)
		in.paramDigits = true
	case b == ';' || b == ':':
		in.pushParam()
	case b >= 0x3c && b <= 0x3f:
		if len(in.params) == 0 && !in.paramDigits && in.private == 0 {
			in.private = b
		}
	case b >= 0x20 && b <= 0x2f:
		in.intermediate = b
	case b >= 0x40 && b <= 0x7e:
		in.pushParam()
		in.state = stateGround
		in.dispatchCSI(b)
	case b == 0x1b:
		in.state = stateEscape
	case b < 0x20:
		in.control(b)
	}
}

// paramOr returns parameter i, or fallback when it is absent or zero.
func (in *Interpreter) paramOr(i, fallback int) int {
	if i < len(in.params) && in.params[i] != 0 {
		return in.params[i]
	}
	return fallback
}
