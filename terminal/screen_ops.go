// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

// ScrollUp moves the scroll region's content up n rows, filling the
// bottom with blanks. Rows leaving the top go to scrollback when the
// primary grid is active and the region starts at row 0.
func (s *Screen) ScrollUp(n int) {
	height := s.bottom - s.top + 1
	n = clamp(n, 0, height)
	if n == 0 {
		return
	}
	grid := s.grid()
	keepHistory := !s.modes.AltScreen && s.top == 0
	for range n {
		if keepHistory {
			s.pushScrollback(grid[s.top])
		}
		copy(grid[s.top:s.bottom], grid[s.top+1:s.bottom+1])
		grid[s.bottom] = s.blankRow()
	}
	s.markRangeDirty(s.top, s.bottom)
}

// ScrollDown moves the scroll region's content down n rows, filling
// the top with blanks. Rows pushed off the bottom are discarded.
func (s *Screen) ScrollDown(n int) {
	height := s.bottom - s.top + 1
	n = clamp(n, 0, height)
	if n == 0 {
		return
	}
	grid := s.grid()
	for range n {
		copy(grid[s.top+1:s.bottom+1], grid[s.top:s.bottom])
		grid[s.top] = s.blankRow()
	}
	s.markRangeDirty(s.top, s.bottom)
}

// pushScrollback appends an evicted row, dropping the oldest rows
// beyond the limit.
func (s *Screen) pushScrollback(row []Cell) {
	if s.scrollbackLimit <= 0 {
		return
	}
	s.scrollback = append(s.scrollback, row)
	if overflow := len(s.scrollback) - s.scrollbackLimit; overflow > 0 {
		clear(s.scrollback[:overflow])
		s.scrollback = s.scrollback[overflow:]
	}
}

// EraseInLine blanks part of the cursor row: mode 0 from the cursor to
// the end, 1 from the start through the cursor, 2 the whole row. Other
// modes are ignored.
func (s *Screen) EraseInLine(mode int) {
	x := min(s.cursorX, s.cols-1)
	switch mode {
	case 0:
		s.fill(s.cursorY, x, s.cols)
	case 1:
		s.fill(s.cursorY, 0, x+1)
	case 2:
		s.fill(s.cursorY, 0, s.cols)
	}
}

// EraseInDisplay blanks part of the active grid: mode 0 from the cursor
// to the end of the screen, 1 from the start through the cursor, 2 the
// whole screen, 3 the whole screen and the scrollback.
func (s *Screen) EraseInDisplay(mode int) {
	switch mode {
	case 0:
		s.EraseInLine(0)
		for y := s.cursorY + 1; y < s.rows; y++ {
			s.fill(y, 0, s.cols)
		}
	case 1:
		for y := 0; y < s.cursorY; y++ {
			s.fill(y, 0, s.cols)
		}
		s.EraseInLine(1)
	case 2, 3:
		for y := range s.rows {
			s.fill(y, 0, s.cols)
		}
		if mode == 3 {
			clear(s.scrollback)
			s.scrollback = nil
		}
	}
}

// EraseChars blanks n cells starting at the cursor without moving
// anything.
func (s *Screen) EraseChars(n int) {
	x := min(s.cursorX, s.cols-1)
	s.fill(s.cursorY, x, min(x+max(n, 1), s.cols))
}

// InsertChars shifts the cursor row right by n cells from the cursor,
// inserting blanks. Cells pushed past the last column are lost.
func (s *Screen) InsertChars(n int) {
	x := min(s.cursorX, s.cols-1)
	n = clamp(n, 1, s.cols-x)
	row := s.grid()[s.cursorY]
	copy(row[x+n:], row[x:s.cols-n])
	for i := x; i < x+n; i++ {
		row[i] = BlankCell(s.pen.Bg)
	}
	repairRow(row)
	s.markDirty(s.cursorY)
}

// DeleteChars removes n cells at the cursor, shifting the rest of the
// row left and filling the end with blanks.
func (s *Screen) DeleteChars(n int) {
	x := min(s.cursorX, s.cols-1)
	n = clamp(n, 1, s.cols-x)
	row := s.grid()[s.cursorY]
	copy(row[x:], row[x+n:])
	for i := s.cols - n; i < s.cols; i++ {
		row[i] = BlankCell(s.pen.Bg)
	}
	repairRow(row)
	s.markDirty(s.cursorY)
}

// InsertLines inserts n blank rows at the cursor row, pushing rows
// below it toward the region bottom. Only acts inside the scroll
// region.
func (s *Screen) InsertLines(n int) {
	if s.cursorY < s.top || s.cursorY > s.bottom {
		return
	}
	n = clamp(n, 1, s.bottom-s.cursorY+1)
	grid := s.grid()
	copy(grid[s.cursorY+n:s.bottom+1], grid[s.cursorY:s.bottom+1-n])
	for y := s.cursorY; y < s.cursorY+n; y++ {
		grid[y] = s.blankRow()
	}
	s.cursorX = 0
	s.markRangeDirty(s.cursorY, s.bottom)
}

// DeleteLines removes n rows at the cursor row, pulling rows below it
// up and filling the region bottom with blanks. Only acts inside the
// scroll region; deleted rows never reach scrollback.
func (s *Screen) DeleteLines(n int) {
	if s.cursorY < s.top || s.cursorY > s.bottom {
		return
	}
	n = clamp(n, 1, s.bottom-s.cursorY+1)
	grid := s.grid()
	copy(grid[s.cursorY:s.bottom+1-n], grid[s.cursorY+n:s.bottom+1])
	for y := s.bottom + 1 - n; y <= s.bottom; y++ {
		grid[y] = s.blankRow()
	}
	s.cursorX = 0
	s.markRangeDirty(s.cursorY, s.bottom)
}

// Reset returns the screen to its power-on state: blank primary grid,
// primary active, default pen and modes, full scroll region, cursor
// home. Scrollback is kept.
func (s *Screen) Reset() {
	s.pen = Pen{}
	s.modes = Modes{Autowrap: true}
	s.top, s.bottom = 0, s.rows-1
	s.cursorX, s.cursorY = 0, 0
	s.primary = s.blankGrid()
	s.alternate = s.blankGrid()
	s.markAllDirty()
}

// fill blanks cells [from, to) of row y with the pen background.
func (s *Screen) fill(y, from, to int) {
	if y < 0 || y >= s.rows || from >= to {
		return
	}
	row := s.grid()[y]
	for x := max(from, 0); x < min(to, s.cols); x++ {
		row[x] = BlankCell(s.pen.Bg)
	}
	repairRow(row)
	s.markDirty(y)
}
