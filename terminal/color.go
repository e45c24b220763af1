// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import "fmt"

// ColorKind distinguishes the three ways a cell color can be specified.
type ColorKind uint8

const (
	// ColorDefault means "whatever the renderer's default is". It is
	// the zero value so a zero Cell has default colors.
	ColorDefault ColorKind = iota

	// ColorPalette selects an entry of the 256-color palette.
	ColorPalette

	// ColorRGB is an exact 24-bit color.
	ColorRGB
)

// Color is a foreground or background color. Values are canonical:
// constructors only populate the fields meaningful for their kind, so
// two Colors describing the same color compare equal with ==.
type Color struct {
	Kind  ColorKind
	Index uint8
	R     uint8
	G     uint8
	B     uint8
}

// DefaultColor returns the renderer-default color.
func DefaultColor() Color { return Color{} }

// PaletteColor returns a 256-color palette entry.
func PaletteColor(index uint8) Color {
	return Color{Kind: ColorPalette, Index: index}
}

// RGBColor returns an exact 24-bit color.
func RGBColor(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, R: r, G: g, B: b}
}

// IsDefault reports whether the color is the renderer default.
func (c Color) IsDefault() bool { return c.Kind == ColorDefault }

// String formats the color for logs and test failures.
func (c Color) String() string {
	switch c.Kind {
	case ColorDefault:
		return "default"
	case ColorPalette:
		return fmt.Sprintf("palette(%d)", c.Index)
	case ColorRGB:
		return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
	default:
		return fmt.Sprintf("unknown(%d)", c.Kind)
	}
}

// RGB resolves the color to a 24-bit triple. ok is false for the
// default color, which has no fixed value.
func (c Color) RGB() (r, g, b uint8, ok bool) {
	switch c.Kind {
	case ColorPalette:
		entry := paletteRGB(c.Index)
		return entry[0], entry[1], entry[2], true
	case ColorRGB:
		return c.R, c.G, c.B, true
	default:
		return 0, 0, 0, false
	}
}

// standardColors are the 16 base colors (xterm defaults): the eight
// normal colors followed by their bright variants.
var standardColors = [16][3]uint8{
	{0, 0, 0},
	{205, 0, 0},
	{0, 205, 0},
	{205, 205, 0},
	{0, 0, 238},
	{205, 0, 205},
	{0, 205, 205},
	{229, 229, 229},
	{127, 127, 127},
	{255, 0, 0},
	{0, 255, 0},
	{255, 255, 0},
	{92, 92, 255},
	{255, 0, 255},
	{0, 255, 255},
	{255, 255, 255},
}

// cubeLevels are the component intensities of the 6×6×6 color cube
// occupying palette indexes 16–231.
var cubeLevels = [6]uint8{0, 95, 135, 175, 215, 255}

// paletteRGB maps a 256-color palette index to RGB. 0–15 are the
// standard colors, 16–231 the color cube, 232–255 a 24-step grayscale
// ramp from 8 to 238.
func paletteRGB(index uint8) [3]uint8 {
	switch {
	case index < 16:
		return standardColors[index]
	case index < 232:
		offset := int(index) - 16
		return [3]uint8{
			cubeLevels[offset/36],
			cubeLevels[(offset/6)%6],
			cubeLevels[offset%6],
		}
	default:
		level := uint8(8 + 10*(int(index)-232))
		return [3]uint8{level, level, level}
	}
}
