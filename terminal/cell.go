// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

// Attr is a bit set of character style attributes. The bit values are
// the ones the snapshot codec puts on the wire, so they must not be
// renumbered.
type Attr uint8

const (
	AttrBold          Attr = 0x01
	AttrItalic        Attr = 0x02
	AttrUnderline     Attr = 0x04
	AttrDim           Attr = 0x08
	AttrInverse       Attr = 0x10
	AttrInvisible     Attr = 0x20
	AttrStrikethrough Attr = 0x40
)

// attrMask covers every defined attribute bit. Bit 7 is reserved for
// the snapshot codec's extended-cell marker.
const attrMask Attr = 0x7f

// Has reports whether all bits in other are set.
func (a Attr) Has(other Attr) bool { return a&other == other }

// Cell is one grid position.
//
// Width is 1 for ordinary characters and 2 for the leading half of a
// wide character. The trailing half of a wide character is a cell with
// Width 0 and Rune 0 that carries the same colors and attributes as its
// leader; it is never rendered on its own.
type Cell struct {
	Rune  rune
	Width uint8
	Fg    Color
	Bg    Color
	Attrs Attr
}

// BlankCell returns an empty cell with the given background. Erase
// operations fill with blanks carrying the current pen background.
func BlankCell(background Color) Cell {
	return Cell{Rune: ' ', Width: 1, Bg: background}
}

// IsTrailer reports whether the cell is the second half of a wide
// character.
func (c Cell) IsTrailer() bool { return c.Width == 0 }

// trailerFor returns the width-0 continuation cell for a wide leader.
func trailerFor(leader Cell) Cell {
	return Cell{Width: 0, Fg: leader.Fg, Bg: leader.Bg, Attrs: leader.Attrs}
}

// Pen is the graphic rendition applied to newly written cells.
type Pen struct {
	Fg    Color
	Bg    Color
	Attrs Attr
}

// cell builds a cell for r drawn with this pen.
func (p Pen) cell(r rune, width int) Cell {
	return Cell{Rune: r, Width: uint8(width), Fg: p.Fg, Bg: p.Bg, Attrs: p.Attrs}
}
