// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"strconv"
	"strings"
)

// sgrAttrs maps attribute bits to their SGR parameters.
var sgrAttrs = []struct {
	attr  Attr
	param string
}{
	{AttrBold, "1"},
	{AttrDim, "2"},
	{AttrItalic, "3"},
	{AttrUnderline, "4"},
	{AttrInverse, "7"},
	{AttrInvisible, "8"},
	{AttrStrikethrough, "9"},
}

// RowANSI renders a row as text with SGR sequences so a real terminal
// shows the same colors and attributes. Trailing default blanks are
// trimmed and the style is reset at the end of any styled row.
func RowANSI(row []Cell) string {
	end := len(row)
	for end > 0 && isPlainBlank(row[end-1]) {
		end--
	}

	var builder strings.Builder
	var current Cell
	styled := false
	for _, cell := range row[:end] {
		if cell.Width == 0 {
			continue
		}
		if cell.Fg != current.Fg || cell.Bg != current.Bg || cell.Attrs != current.Attrs {
			builder.WriteString(sgr(cell))
			current = cell
			styled = cell.Fg != Color{} || cell.Bg != Color{} || cell.Attrs != 0
		}
		if cell.Rune == 0 {
			builder.WriteByte(' ')
		} else {
			builder.WriteRune(cell.Rune)
		}
	}
	if styled {
		builder.WriteString("\x1b[0m")
	}
	return builder.String()
}

func isPlainBlank(cell Cell) bool {
	return (cell.Rune == ' ' || cell.Rune == 0) && cell.Width == 1 &&
		cell.Bg.IsDefault() && cell.Attrs&(AttrInverse|AttrUnderline|AttrStrikethrough) == 0
}

// sgr returns the sequence selecting cell's style from a reset state.
func sgr(cell Cell) string {
	params := []string{"0"}
	for _, entry := range sgrAttrs {
		if cell.Attrs.Has(entry.attr) {
			params = append(params, entry.param)
		}
	}
	params = appendColorParams(params, cell.Fg, 30, 90, 38)
	params = appendColorParams(params, cell.Bg, 40, 100, 48)
	return "\x1b[" + strings.Join(params, ";") + "m"
}

// appendColorParams adds the parameters for one color: base+i for the
// first eight palette entries, bright+i for the next eight, and the
// extended form after that.
func appendColorParams(params []string, color Color, base, bright, extended int) []string {
	switch color.Kind {
	case ColorPalette:
		switch {
		case color.Index < 8:
			return append(params, strconv.Itoa(base+int(color.Index)))
		case color.Index < 16:
			return append(params, strconv.Itoa(bright+int(color.Index)-8))
		default:
			return append(params, strconv.Itoa(extended), "5", strconv.Itoa(int(color.Index)))
		}
	case ColorRGB:
		return append(params, strconv.Itoa(extended), "2",
			strconv.Itoa(int(color.R)), strconv.Itoa(int(color.G)), strconv.Itoa(int(color.B)))
	default:
		return params
	}
}
