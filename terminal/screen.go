// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import "strings"

// DefaultScrollback is the number of evicted rows a Screen retains
// when no explicit limit is configured.
const DefaultScrollback = 10000

// Modes are the terminal mode flags the interpreter tracks.
type Modes struct {
	// Origin makes absolute cursor addressing relative to the scroll
	// region's top row and confines the cursor to the region.
	Origin bool

	// Autowrap wraps to the next line when a character is written
	// past the last column. On by default.
	Autowrap bool

	// Insert shifts existing characters right instead of overwriting.
	Insert bool

	// AltScreen is set while the alternate grid is active.
	AltScreen bool

	// BracketedPaste is recorded so a client can wrap pasted input;
	// it has no effect on the screen.
	BracketedPaste bool
}

// Screen is the cell grid and state of one terminal. See the package
// documentation for the concurrency contract.
type Screen struct {
	cols int
	rows int

	primary   [][]Cell
	alternate [][]Cell

	cursorX int
	cursorY int

	pen   Pen
	modes Modes

	// top and bottom are the inclusive scroll region bounds.
	top    int
	bottom int

	scrollback      [][]Cell
	scrollbackLimit int

	dirty []bool
}

// ScreenOption configures a Screen at construction.
type ScreenOption func(*Screen)

// WithScrollback sets the maximum number of scrollback rows. Zero or a
// negative limit disables scrollback.
func WithScrollback(limit int) ScreenOption {
	return func(s *Screen) { s.scrollbackLimit = limit }
}

// NewScreen creates a blank screen. Non-positive dimensions are raised
// to 1.
func NewScreen(cols, rows int, options ...ScreenOption) *Screen {
	cols, rows = max(cols, 1), max(rows, 1)
	screen := &Screen{
		cols:            cols,
		rows:            rows,
		modes:           Modes{Autowrap: true},
		bottom:          rows - 1,
		scrollbackLimit: DefaultScrollback,
	}
	for _, option := range options {
		option(screen)
	}
	screen.primary = screen.blankGrid()
	screen.alternate = screen.blankGrid()
	screen.dirty = make([]bool, rows)
	screen.markAllDirty()
	return screen
}

// Cols returns the screen width in cells.
func (s *Screen) Cols() int { return s.cols }

// Rows returns the screen height in cells.
func (s *Screen) Rows() int { return s.rows }

// Cursor returns the cursor column and row.
func (s *Screen) Cursor() (x, y int) { return s.cursorX, s.cursorY }

// SetCursor moves the cursor, clamping it into the screen.
func (s *Screen) SetCursor(x, y int) {
	s.cursorX = clamp(x, 0, s.cols-1)
	s.cursorY = clamp(y, 0, s.rows-1)
}

// Pen returns the current graphic rendition.
func (s *Screen) Pen() Pen { return s.pen }

// SetPen replaces the current graphic rendition.
func (s *Screen) SetPen(pen Pen) { s.pen = pen }

// Modes returns the current mode flags.
func (s *Screen) Modes() Modes { return s.modes }

// ScrollRegion returns the inclusive scroll region bounds.
func (s *Screen) ScrollRegion() (top, bottom int) { return s.top, s.bottom }

// Cell returns the cell at (x, y) of the active grid. Out-of-range
// coordinates return a blank cell.
func (s *Screen) Cell(x, y int) Cell {
	if x < 0 || x >= s.cols || y < 0 || y >= s.rows {
		return BlankCell(DefaultColor())
	}
	return s.grid()[y][x]
}

// Row returns a copy of row y of the active grid.
func (s *Screen) Row(y int) []Cell {
	if y < 0 || y >= s.rows {
		return s.blankRowWith(DefaultColor())
	}
	return append([]Cell(nil), s.grid()[y]...)
}

// Write stores cell at (x, y) of the active grid. A wide cell also
// claims the cell to its right; a wide cell that does not fit in the
// last column is stored as a blank. Overwriting either half of an
// existing wide character blanks its other half. Width-0 cells are
// ignored: trailers are only ever created alongside their leader.
func (s *Screen) Write(cell Cell, x, y int) {
	if x < 0 || x >= s.cols || y < 0 || y >= s.rows || cell.Width == 0 {
		return
	}
	row := s.grid()[y]
	if cell.Width >= 2 {
		if x+1 >= s.cols {
			cell = BlankCell(cell.Bg)
		} else {
			cell.Width = 2
		}
	}
	s.splitWide(row, x)
	row[x] = cell
	if cell.Width == 2 {
		s.splitWide(row, x+1)
		row[x+1] = trailerFor(cell)
	}
	s.markDirty(y)
}

// splitWide blanks the other half of a wide character about to lose
// the half at column x.
func (s *Screen) splitWide(row []Cell, x int) {
	switch row[x].Width {
	case 0:
		if x > 0 && row[x-1].Width == 2 {
			row[x-1] = BlankCell(row[x-1].Bg)
		}
	case 2:
		if x+1 < len(row) && row[x+1].Width == 0 {
			row[x+1] = BlankCell(row[x+1].Bg)
		}
	}
}

// Resize reallocates both grids at the new size, filled with blanks in
// the current background. Content is not reflowed. The cursor is
// clamped and the scroll region reset to the full screen. Scrollback
// rows keep their original width; [Screen.Line] normalizes them.
// Non-positive dimensions are ignored.
func (s *Screen) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	s.cols, s.rows = cols, rows
	s.primary = s.blankGrid()
	s.alternate = s.blankGrid()
	s.top, s.bottom = 0, rows-1
	s.cursorX = clamp(s.cursorX, 0, cols-1)
	s.cursorY = clamp(s.cursorY, 0, rows-1)
	s.dirty = make([]bool, rows)
	s.markAllDirty()
}

// SetScrollRegion sets the inclusive scroll region. Returns false and
// leaves the region unchanged unless 0 <= top <= bottom < rows.
func (s *Screen) SetScrollRegion(top, bottom int) bool {
	if top < 0 || bottom >= s.rows || top > bottom {
		return false
	}
	s.top, s.bottom = top, bottom
	return true
}

// SwitchAlternateScreen activates or deactivates the alternate grid.
// Entering clears the alternate grid; the primary grid is preserved
// untouched while the alternate one is active. The cursor is not
// saved or restored.
func (s *Screen) SwitchAlternateScreen(on bool) {
	if s.modes.AltScreen == on {
		return
	}
	if on {
		s.alternate = s.blankGrid()
	}
	s.modes.AltScreen = on
	s.markAllDirty()
}

// HistoryLen is the number of scrollback rows addressable through
// [Screen.Line]. While the alternate screen is active the history is
// hidden, matching what a terminal shows.
func (s *Screen) HistoryLen() int {
	if s.modes.AltScreen {
		return 0
	}
	return len(s.scrollback)
}

// Scrollback returns the number of retained scrollback rows regardless
// of which grid is active.
func (s *Screen) Scrollback() int { return len(s.scrollback) }

// TotalLines is HistoryLen plus the screen height.
func (s *Screen) TotalLines() int { return s.HistoryLen() + s.rows }

// Line returns row i of the combined history-then-screen index space,
// normalized to exactly Cols cells. Rows outside the range are blank.
func (s *Screen) Line(i int) []Cell {
	history := s.HistoryLen()
	switch {
	case i < 0 || i >= history+s.rows:
		return s.blankRowWith(DefaultColor())
	case i < history:
		return s.normalize(s.scrollback[i])
	default:
		return append([]Cell(nil), s.grid()[i-history]...)
	}
}

// normalize pads or truncates a row recorded at another width.
func (s *Screen) normalize(row []Cell) []Cell {
	out := make([]Cell, s.cols)
	n := copy(out, row)
	for x := n; x < s.cols; x++ {
		out[x] = BlankCell(DefaultColor())
	}
	repairRow(out)
	return out
}

// DirtyRows returns the indexes of rows modified since the last
// ClearDirty, in ascending order.
func (s *Screen) DirtyRows() []int {
	var rows []int
	for y, dirty := range s.dirty {
		if dirty {
			rows = append(rows, y)
		}
	}
	return rows
}

// ClearDirty resets dirty tracking.
func (s *Screen) ClearDirty() {
	clear(s.dirty)
}

// Clone returns a deep copy.
func (s *Screen) Clone() *Screen {
	clone := *s
	clone.primary = cloneGrid(s.primary)
	clone.alternate = cloneGrid(s.alternate)
	clone.scrollback = cloneGrid(s.scrollback)
	clone.dirty = append([]bool(nil), s.dirty...)
	return &clone
}

// Text renders the active grid as plain text: one line per row,
// trailing blanks trimmed, trailers skipped.
func (s *Screen) Text() string {
	var builder strings.Builder
	for y, row := range s.grid() {
		if y > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(RowText(row))
	}
	return builder.String()
}

// RowText renders one row as plain text with trailing blanks trimmed.
func RowText(row []Cell) string {
	var builder strings.Builder
	for _, cell := range row {
		if cell.Width == 0 {
			continue
		}
		if cell.Rune == 0 {
			builder.WriteByte(' ')
			continue
		}
		builder.WriteRune(cell.Rune)
	}
	return strings.TrimRight(builder.String(), " ")
}

func (s *Screen) grid() [][]Cell {
	if s.modes.AltScreen {
		return s.alternate
	}
	return s.primary
}

func (s *Screen) blankGrid() [][]Cell {
	grid := make([][]Cell, s.rows)
	for y := range grid {
		grid[y] = s.blankRowWith(s.pen.Bg)
	}
	return grid
}

func (s *Screen) blankRow() []Cell { return s.blankRowWith(s.pen.Bg) }

func (s *Screen) blankRowWith(background Color) []Cell {
	row := make([]Cell, s.cols)
	for x := range row {
		row[x] = BlankCell(background)
	}
	return row
}

func (s *Screen) markDirty(y int) {
	if y >= 0 && y < len(s.dirty) {
		s.dirty[y] = true
	}
}

func (s *Screen) markRangeDirty(from, to int) {
	for y := from; y <= to; y++ {
		s.markDirty(y)
	}
}

func (s *Screen) markAllDirty() { s.markRangeDirty(0, s.rows-1) }

func cloneGrid(grid [][]Cell) [][]Cell {
	if grid == nil {
		return nil
	}
	out := make([][]Cell, len(grid))
	for y, row := range grid {
		out[y] = append([]Cell(nil), row...)
	}
	return out
}

// repairRow blanks orphaned halves of wide characters: a leader
// without its trailer or a trailer without its leader.
func repairRow(row []Cell) {
	for x := range row {
		switch row[x].Width {
		case 2:
			if x+1 >= len(row) || row[x+1].Width != 0 {
				row[x] = BlankCell(row[x].Bg)
			}
		case 0:
			if x == 0 || row[x-1].Width != 2 {
				row[x] = BlankCell(row[x].Bg)
			}
		}
	}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
