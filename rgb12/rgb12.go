/*
Package rgb12 implements the 12-bit color model used by the Commander X16
VERA chip.

Each channel is stored as 4 bits so there are 4096 representable colors. A
color is packed into two bytes; the first holds green in the upper nibble and
blue in the lower nibble, the second holds red in the lower nibble:

	byte1 = GGGGBBBB
	byte2 = 0000RRRR
*/
package rgb12

import (
	"image"
	"image/color"
)

const (
	// NumColors is the number of distinct 12-bit colors
	NumColors = 1 << 12

	// ColormapSize is the width and height of the image returned by
	// Colormap
	ColormapSize = 64
)

// Color is an opaque 24-bit RGB color.
type Color struct {
	R, G, B uint8
}

// Black is used to pad palettes.
var Black = Color{}

// RGBA implements the color.Color interface.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

// Less reports whether c sorts before o, comparing red, then green, then
// blue.
func (c Color) Less(o Color) bool {
	if c.R != o.R {
		return c.R < o.R
	}
	if c.G != o.G {
		return c.G < o.G
	}
	return c.B < o.B
}

// FromColor returns the 8-bit channels of c. Alpha is ignored.
func FromColor(c color.Color) Color {
	if rc, ok := c.(Color); ok {
		return rc
	}
	r, g, b, _ := c.RGBA()
	return Color{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

// Packed is the two byte hardware representation of a color.
type Packed [2]byte

// Pack truncates each channel to its top 4 bits and packs the result.
func Pack(c Color) Packed {
	return Packed{
		c.G>>4<<4 | c.B>>4,
		c.R >> 4,
	}
}

// Unpack expands a packed color back to 8 bits per channel by repeating
// each nibble.
func Unpack(p Packed) Color {
	return Color{
		expand(p[1] & 0x0f),
		expand(p[0] >> 4),
		expand(p[0] & 0x0f),
	}
}

func expand(n uint8) uint8 {
	return n<<4 | n
}

func snap(v uint8) uint8 {
	return expand(uint8((uint16(v) + 8) / 17))
}

// Snap returns the 12-bit representable color nearest to c.
func Snap(c Color) Color {
	return Color{snap(c.R), snap(c.G), snap(c.B)}
}

// Index returns the position of the nearest 12-bit color in Palette.
func Index(c Color) int {
	s := Pack(Snap(c))
	return int(s[1])<<8 | int(s[0])
}

// Model converts any color to the nearest 12-bit color.
var Model color.Model = color.ModelFunc(func(c color.Color) color.Color {
	return Snap(FromColor(c))
})

var palette = func() color.Palette {
	p := make(color.Palette, 0, NumColors)
	for r := 0; r < 16; r++ {
		for g := 0; g < 16; g++ {
			for b := 0; b < 16; b++ {
				p = append(p, Color{expand(uint8(r)), expand(uint8(g)), expand(uint8(b))})
			}
		}
	}
	return p
}()

// Palette returns all 4096 12-bit colors ordered by red, then green, then
// blue. The returned palette is a copy.
func Palette() color.Palette {
	return append(color.Palette(nil), palette...)
}

// Colormap returns a 64 by 64 image containing every 12-bit color once, in
// Palette order.
func Colormap() *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, ColormapSize, ColormapSize))
	for i, c := range palette {
		m.Set(i%ColormapSize, i/ColormapSize, c)
	}
	return m
}
