// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import "testing"

func TestNewScreenClampsDimensions(t *testing.T) {
	t.Parallel()
	screen := NewScreen(0, -3)

	if screen.Cols() != 1 || screen.Rows() != 1 {
		t.Errorf("size: got %dx%d, want 1x1", screen.Cols(), screen.Rows())
	}
	if !screen.Modes().Autowrap {
		t.Error("autowrap should default on")
	}
}

func TestWriteWideAtLastColumnStoresBlank(t *testing.T) {
	t.Parallel()
	screen := NewScreen(3, 1)

	screen.Write(Cell{Rune: '中', Width: 2}, 2, 0)
	if got := screen.Cell(2, 0); got.Rune != ' ' || got.Width != 1 {
		t.Errorf("cell: got %+v, want blank", got)
	}
}

func TestWriteOverLeaderBlanksTrailer(t *testing.T) {
	t.Parallel()
	screen := NewScreen(4, 1)

	screen.Write(Cell{Rune: '中', Width: 2}, 1, 0)
	screen.Write(Cell{Rune: 'x', Width: 1}, 1, 0)
	if got := screen.Cell(2, 0); got.Width != 1 || got.Rune != ' ' {
		t.Errorf("former trailer: got %+v, want blank", got)
	}

	// A wide write straddling an existing wide pair splits it.
	screen.Write(Cell{Rune: '中', Width: 2}, 2, 0)
	screen.Write(Cell{Rune: '文', Width: 2}, 1, 0)
	assertWideInvariant(t, screen.Row(0))
	if got := RowText(screen.Row(0)); got != " 文" {
		t.Errorf("row: got %q, want %q", got, " 文")
	}
}

func TestResizeKeepsScrollback(t *testing.T) {
	t.Parallel()
	screen := render(4, 2, "abcd\r\nefgh\r\nij\x1b[1;3r")

	screen.Resize(6, 3)
	if screen.Cols() != 6 || screen.Rows() != 3 {
		t.Fatalf("size: got %dx%d, want 6x3", screen.Cols(), screen.Rows())
	}
	if got := screen.Text(); got != "\n\n" {
		t.Errorf("grid after resize: got %q, want blank", got)
	}
	if top, bottom := screen.ScrollRegion(); top != 0 || bottom != 2 {
		t.Errorf("region: got (%d, %d), want (0, 2)", top, bottom)
	}
	if screen.HistoryLen() == 0 {
		t.Fatal("scrollback dropped on resize")
	}
	line := screen.Line(0)
	if len(line) != 6 {
		t.Errorf("scrollback line width: got %d, want 6", len(line))
	}
	if got := RowText(line); got != "abcd" {
		t.Errorf("scrollback line: got %q, want %q", got, "abcd")
	}
}

func TestResizeClampsCursor(t *testing.T) {
	t.Parallel()
	screen := render(10, 10, "\x1b[9;9H")

	screen.Resize(4, 3)
	if x, y := screen.Cursor(); x != 3 || y != 2 {
		t.Errorf("cursor: got (%d, %d), want (3, 2)", x, y)
	}
	screen.Resize(0, 5)
	if screen.Cols() != 4 {
		t.Errorf("non-positive resize applied: cols %d", screen.Cols())
	}
}

func TestResizeNarrowingTruncatesScrollbackWideChar(t *testing.T) {
	t.Parallel()
	screen := render(4, 1, "ab中\r\nx")

	screen.Resize(3, 1)
	line := screen.Line(0)
	assertWideInvariant(t, line)
	if got := RowText(line); got != "ab" {
		t.Errorf("line: got %q, want %q", got, "ab")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()
	screen := render(5, 2, "abc\r\n\r\nz")
	clone := screen.Clone()

	Apply(screen, []byte("\x1b[Hxyz\x1b[3J"))
	if got := rowText(clone, 0); got != "" {
		t.Errorf("clone row 0: got %q, want empty", got)
	}
	if clone.Scrollback() != 1 || RowText(clone.Line(0)) != "abc" {
		t.Errorf("clone scrollback changed: %d rows", clone.Scrollback())
	}
}

func TestDirtyRows(t *testing.T) {
	t.Parallel()
	screen := NewScreen(5, 4)
	screen.ClearDirty()

	Apply(screen, []byte("\x1b[3;1Hx"))
	got := screen.DirtyRows()
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("DirtyRows: got %v, want [2]", got)
	}

	screen.ClearDirty()
	if got := screen.DirtyRows(); len(got) != 0 {
		t.Errorf("DirtyRows after clear: got %v", got)
	}
}

func TestLineOutOfRangeIsBlank(t *testing.T) {
	t.Parallel()
	screen := render(3, 1, "abc")

	for _, i := range []int{-1, 5} {
		if got := RowText(screen.Line(i)); got != "" || len(screen.Line(i)) != 3 {
			t.Errorf("Line(%d): got %q", i, got)
		}
	}
}

func TestColorRGB(t *testing.T) {
	t.Parallel()

	tests := []struct {
		color   Color
		r, g, b uint8
		ok      bool
	}{
		{DefaultColor(), 0, 0, 0, false},
		{PaletteColor(1), 205, 0, 0, true},
		{PaletteColor(15), 255, 255, 255, true},
		{PaletteColor(16), 0, 0, 0, true},
		{PaletteColor(196), 255, 0, 0, true},
		{PaletteColor(231), 255, 255, 255, true},
		{PaletteColor(232), 8, 8, 8, true},
		{PaletteColor(255), 238, 238, 238, true},
		{RGBColor(1, 2, 3), 1, 2, 3, true},
	}
	for _, test := range tests {
		r, g, b, ok := test.color.RGB()
		if r != test.r || g != test.g || b != test.b || ok != test.ok {
			t.Errorf("%v.RGB(): got (%d, %d, %d, %v), want (%d, %d, %d, %v)",
				test.color, r, g, b, ok, test.r, test.g, test.b, test.ok)
		}
	}
}
