// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/bureau-foundation/tether/terminal"
)

const (
	// Magic opens every blob.
	Magic uint16 = 0x5654

	// Version is the only format version this package reads or writes.
	Version uint8 = 2

	// HeaderSize is the fixed header length in bytes.
	HeaderSize = 32

	runMarker = 0xFF
	maxRun    = 255

	// densestRun is the fewest bytes that encode a maximal run.
	densestRun = 5

	extended   = 0x80
	extWide    = 0x40
	extRGBFg   = 0x20
	extRGBBg   = 0x10
	extDefFg   = 0x08
	extDefBg   = 0x04
	extFlags   = extWide | extRGBFg | extRGBBg | extDefFg | extDefBg
	basicDefFg = 7
	basicDefBg = 0
)

// ErrMalformed is returned by Decode for input that is not a valid
// blob.
var ErrMalformed = errors.New("snapshot: malformed blob")

// Frame is a decoded window of a screen.
type Frame struct {
	Cols int
	Rows int

	// ViewportY is the index of the first line in the screen's
	// history-then-grid line space.
	ViewportY int

	// CursorX and CursorY locate the cursor, the row relative to
	// ViewportY. The row may fall outside [0, Rows) when the window
	// does not contain the cursor.
	CursorX int
	CursorY int

	// Lines holds Rows rows of exactly Cols cells. Wide characters
	// occupy a leader and a width-0 trailer as on the screen.
	Lines [][]terminal.Cell
}

// Capture copies the window view selects out of screen.
func Capture(screen *terminal.Screen, view View) *Frame {
	top, rows := view.window(screen)
	cursorX, cursorY := screen.Cursor()
	frame := &Frame{
		Cols:      screen.Cols(),
		Rows:      rows,
		ViewportY: top,
		CursorX:   cursorX,
		CursorY:   screen.HistoryLen() + cursorY - top,
		Lines:     make([][]terminal.Cell, rows),
	}
	for i := range rows {
		frame.Lines[i] = screen.Line(top + i)
	}
	return frame
}

// Encode captures view from screen and encodes it.
func Encode(screen *terminal.Screen, view View) []byte {
	return Capture(screen, view).Encode()
}

// Encode serializes the frame.
func (f *Frame) Encode() []byte {
	out := make([]byte, HeaderSize, HeaderSize+f.Rows*f.Cols*4)
	binary.LittleEndian.PutUint16(out[0:], Magic)
	out[2] = Version
	out[3] = 0
	binary.LittleEndian.PutUint32(out[4:], uint32(f.Cols))
	binary.LittleEndian.PutUint32(out[8:], uint32(f.Rows))
	binary.LittleEndian.PutUint32(out[12:], uint32(int32(f.ViewportY)))
	binary.LittleEndian.PutUint32(out[16:], uint32(int32(f.CursorX)))
	binary.LittleEndian.PutUint32(out[20:], uint32(int32(f.CursorY)))

	var cells []terminal.Cell
	for _, line := range f.Lines {
		for _, cell := range line {
			if !cell.IsTrailer() {
				cells = append(cells, cell)
			}
		}
	}
	for i := 0; i < len(cells); {
		run := 1
		for i+run < len(cells) && run < maxRun && cells[i+run] == cells[i] {
			run++
		}
		if run >= 2 {
			out = append(out, runMarker, byte(run))
		}
		out = appendCell(out, cells[i])
		i += run
	}
	return out
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f *Frame) MarshalBinary() ([]byte, error) { return f.Encode(), nil }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (f *Frame) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*f = *decoded
	return nil
}

func isBasic(cell terminal.Cell) bool {
	if cell.Width != 1 || cell.Rune < 0 || cell.Rune > 0x7F {
		return false
	}
	switch {
	case cell.Fg.Kind == terminal.ColorRGB, cell.Bg.Kind == terminal.ColorRGB:
		return false
	case cell.Fg.Kind == terminal.ColorPalette && cell.Fg.Index == basicDefFg:
		return false
	case cell.Bg.Kind == terminal.ColorPalette && cell.Bg.Index == basicDefBg:
		return false
	}
	return true
}

func appendCell(out []byte, cell terminal.Cell) []byte {
	attrs := byte(cell.Attrs) &^ extended
	if isBasic(cell) {
		fg, bg := byte(basicDefFg), byte(basicDefBg)
		if cell.Fg.Kind == terminal.ColorPalette {
			fg = cell.Fg.Index
		}
		if cell.Bg.Kind == terminal.ColorPalette {
			bg = cell.Bg.Index
		}
		return append(out, byte(cell.Rune), attrs, fg, bg)
	}

	header := byte(extended)
	if cell.Width == 2 {
		header |= extWide
	}
	header |= colorFlags(cell.Fg, extRGBFg, extDefFg)
	header |= colorFlags(cell.Bg, extRGBBg, extDefBg)
	out = append(out, header, attrs|extended)
	out = utf8.AppendRune(out, glyph(cell))
	out = appendColor(out, cell.Fg)
	return appendColor(out, cell.Bg)
}

// glyph returns the rune to encode. Cells are always valid code
// points; a zero rune is stored as a space.
func glyph(cell terminal.Cell) rune {
	if cell.Rune == 0 || !utf8.ValidRune(cell.Rune) {
		return ' '
	}
	return cell.Rune
}

func colorFlags(color terminal.Color, rgbFlag, defaultFlag byte) byte {
	switch color.Kind {
	case terminal.ColorRGB:
		return rgbFlag
	case terminal.ColorDefault:
		return defaultFlag
	default:
		return 0
	}
}

func appendColor(out []byte, color terminal.Color) []byte {
	switch color.Kind {
	case terminal.ColorRGB:
		return append(out, color.R, color.G, color.B)
	case terminal.ColorPalette:
		return append(out, color.Index)
	default:
		return out
	}
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(data))
	}
	if magic := binary.LittleEndian.Uint16(data[0:]); magic != Magic {
		return nil, fmt.Errorf("%w: magic %#04x", ErrMalformed, magic)
	}
	if data[2] != Version {
		return nil, fmt.Errorf("%w: version %d", ErrMalformed, data[2])
	}
	cols := binary.LittleEndian.Uint32(data[4:])
	rows := binary.LittleEndian.Uint32(data[8:])
	// The densest stream is a run of wide cells with a one-byte glyph
	// and default colors: 5 bytes cover 2*maxRun positions. Checking
	// that before allocating bounds memory by the input size.
	stream := uint64(len(data) - HeaderSize)
	if cols == 0 && rows != 0 || uint64(cols)*uint64(rows) > (stream*2*maxRun+densestRun-1)/densestRun {
		return nil, fmt.Errorf("%w: implausible size %dx%d for %d bytes", ErrMalformed, cols, rows, len(data))
	}
	frame := &Frame{
		Cols:      int(cols),
		Rows:      int(rows),
		ViewportY: int(int32(binary.LittleEndian.Uint32(data[12:]))),
		CursorX:   int(int32(binary.LittleEndian.Uint32(data[16:]))),
		CursorY:   int(int32(binary.LittleEndian.Uint32(data[20:]))),
		Lines:     make([][]terminal.Cell, rows),
	}

	decoder := cellDecoder{data: data, position: HeaderSize}
	row, x := 0, 0
	place := func(cell terminal.Cell) error {
		if row >= frame.Rows {
			return fmt.Errorf("%w: cells beyond %d rows", ErrMalformed, frame.Rows)
		}
		if frame.Lines[row] == nil {
			frame.Lines[row] = make([]terminal.Cell, 0, frame.Cols)
		}
		width := int(cell.Width)
		if x+width > frame.Cols {
			return fmt.Errorf("%w: cell overflows row %d", ErrMalformed, row)
		}
		frame.Lines[row] = append(frame.Lines[row], cell)
		if width == 2 {
			frame.Lines[row] = append(frame.Lines[row], terminal.Cell{Fg: cell.Fg, Bg: cell.Bg, Attrs: cell.Attrs})
		}
		x += width
		if x == frame.Cols {
			row, x = row+1, 0
		}
		return nil
	}

	for decoder.position < len(data) {
		count := 1
		if data[decoder.position] == runMarker {
			if decoder.position+1 >= len(data) {
				return nil, fmt.Errorf("%w: truncated run", ErrMalformed)
			}
			count = int(data[decoder.position+1])
			if count < 2 {
				return nil, fmt.Errorf("%w: run length %d", ErrMalformed, count)
			}
			decoder.position += 2
		}
		cell, err := decoder.cell()
		if err != nil {
			return nil, err
		}
		for range count {
			if err := place(cell); err != nil {
				return nil, err
			}
		}
	}
	if row != frame.Rows || x != 0 {
		return nil, fmt.Errorf("%w: stream ends at row %d column %d of %dx%d", ErrMalformed, row, x, frame.Cols, frame.Rows)
	}
	return frame, nil
}

type cellDecoder struct {
	data     []byte
	position int
}

func (d *cellDecoder) take(n int) ([]byte, error) {
	if d.position+n > len(d.data) {
		return nil, fmt.Errorf("%w: truncated cell at byte %d", ErrMalformed, d.position)
	}
	taken := d.data[d.position : d.position+n]
	d.position += n
	return taken, nil
}

func (d *cellDecoder) cell() (terminal.Cell, error) {
	lead, err := d.take(1)
	if err != nil {
		return terminal.Cell{}, err
	}
	if lead[0]&extended == 0 {
		rest, err := d.take(3)
		if err != nil {
			return terminal.Cell{}, err
		}
		if rest[0]&extended != 0 {
			return terminal.Cell{}, fmt.Errorf("%w: basic cell with extended attribute byte", ErrMalformed)
		}
		cell := terminal.Cell{Rune: rune(lead[0]), Width: 1, Attrs: terminal.Attr(rest[0])}
		if rest[1] != basicDefFg {
			cell.Fg = terminal.PaletteColor(rest[1])
		}
		if rest[2] != basicDefBg {
			cell.Bg = terminal.PaletteColor(rest[2])
		}
		return cell, nil
	}

	header := lead[0]
	if header&^(extended|extFlags) != 0 ||
		header&(extRGBFg|extDefFg) == extRGBFg|extDefFg ||
		header&(extRGBBg|extDefBg) == extRGBBg|extDefBg {
		return terminal.Cell{}, fmt.Errorf("%w: extended header %#02x", ErrMalformed, header)
	}
	attrs, err := d.take(1)
	if err != nil {
		return terminal.Cell{}, err
	}
	if attrs[0]&extended == 0 {
		return terminal.Cell{}, fmt.Errorf("%w: extended cell without attribute marker", ErrMalformed)
	}
	if d.position >= len(d.data) {
		return terminal.Cell{}, fmt.Errorf("%w: truncated glyph", ErrMalformed)
	}
	size := utf8SequenceLength(d.data[d.position])
	encoded, err := d.take(size)
	if err != nil {
		return terminal.Cell{}, err
	}
	r, decodedSize := utf8.DecodeRune(encoded)
	if size == 0 || decodedSize != size {
		return terminal.Cell{}, fmt.Errorf("%w: invalid glyph % x", ErrMalformed, encoded)
	}

	cell := terminal.Cell{Rune: r, Width: 1, Attrs: terminal.Attr(attrs[0] &^ extended)}
	if header&extWide != 0 {
		cell.Width = 2
	}
	if cell.Fg, err = d.color(header, extRGBFg, extDefFg); err != nil {
		return terminal.Cell{}, err
	}
	if cell.Bg, err = d.color(header, extRGBBg, extDefBg); err != nil {
		return terminal.Cell{}, err
	}
	return cell, nil
}

func (d *cellDecoder) color(header, rgbFlag, defaultFlag byte) (terminal.Color, error) {
	switch {
	case header&rgbFlag != 0:
		rgb, err := d.take(3)
		if err != nil {
			return terminal.Color{}, err
		}
		return terminal.RGBColor(rgb[0], rgb[1], rgb[2]), nil
	case header&defaultFlag != 0:
		return terminal.DefaultColor(), nil
	default:
		index, err := d.take(1)
		if err != nil {
			return terminal.Color{}, err
		}
		return terminal.PaletteColor(index[0]), nil
	}
}

// utf8SequenceLength returns the encoded length a lead byte announces,
// or 0 for a byte that cannot start a sequence.
func utf8SequenceLength(lead byte) int {
	switch {
	case lead < 0x80:
		return 1
	case lead>>5 == 0x06:
		return 2
	case lead>>4 == 0x0E:
		return 3
	case lead>>3 == 0x1E:
		return 4
	default:
		return 0
	}
}
