// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

// selectGraphicRendition applies an SGR parameter list to the pen.
// Unknown codes are skipped.
func (in *Interpreter) selectGraphicRendition() {
	pen := &in.screen.pen
	params := in.params
	if len(params) == 0 {
		params = []int{0}
	}
	for i := 0; i < len(params); i++ {
		code := params[i]
		switch {
		case code == 0:
			*pen = Pen{}
		case code == 1:
			pen.Attrs |= AttrBold
		case code == 2:
			pen.Attrs |= AttrDim
		case code == 3:
			pen.Attrs |= AttrItalic
		case code == 4:
			pen.Attrs |= AttrUnderline
		case code == 7:
			pen.Attrs |= AttrInverse
		case code == 8:
			pen.Attrs |= AttrInvisible
		case code == 9:
			pen.Attrs |= AttrStrikethrough
		case code == 22:
			pen.Attrs &^= AttrBold | AttrDim
		case code == 23:
			pen.Attrs &^= AttrItalic
		case code == 24:
			pen.Attrs &^= AttrUnderline
		case code == 27:
			pen.Attrs &^= AttrInverse
		case code == 28:
			pen.Attrs &^= AttrInvisible
		case code == 29:
			pen.Attrs &^= AttrStrikethrough
		case code >= 30 && code <= 37:
			pen.Fg = PaletteColor(uint8(code - 30))
		case code == 38:
			color, consumed, ok := extendedColor(params[i+1:])
			if ok {
				pen.Fg = color
			}
			i += consumed
		case code == 39:
			pen.Fg = DefaultColor()
		case code >= 40 && code <= 47:
			pen.Bg = PaletteColor(uint8(code - 40))
		case code == 48:
			color, consumed, ok := extendedColor(params[i+1:])
			if ok {
				pen.Bg = color
			}
			i += consumed
		case code == 49:
			pen.Bg = DefaultColor()
		case code >= 90 && code <= 97:
			pen.Fg = PaletteColor(uint8(code - 90 + 8))
		case code >= 100 && code <= 107:
			pen.Bg = PaletteColor(uint8(code - 100 + 8))
		}
	}
}

// extendedColor parses the parameters following 38 or 48: "5;N" for a
// palette index or "2;R;G;B" for direct color. It returns how many
// parameters it consumed; an incomplete form consumes the rest of the
// list so its leftovers are not misread as separate codes.
func extendedColor(params []int) (color Color, consumed int, ok bool) {
	if len(params) == 0 {
		return Color{}, 0, false
	}
	switch params[0] {
	case 5:
		if len(params) < 2 {
			return Color{}, len(params), false
		}
		if params[1] > 255 {
			return Color{}, 2, false
		}
		return PaletteColor(uint8(params[1])), 2, true
	case 2:
		if len(params) < 4 {
			return Color{}, len(params), false
		}
		channel := func(v int) uint8 { return uint8(min(v, 255)) }
		return RGBColor(channel(params[1]), channel(params[2]), channel(params[3])), 4, true
	default:
		return Color{}, 1, false
	}
}
