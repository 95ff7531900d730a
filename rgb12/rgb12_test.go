package rgb12

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPack(t *testing.T) {
	tables := []struct {
		name  string
		color Color
		want  Packed
	}{
		{"black", Color{0x00, 0x00, 0x00}, Packed{0x00, 0x00}},
		{"white", Color{0xff, 0xff, 0xff}, Packed{0xff, 0x0f}},
		{"red", Color{0xff, 0x00, 0x00}, Packed{0x00, 0x0f}},
		{"green", Color{0x00, 0xff, 0x00}, Packed{0xf0, 0x00}},
		{"blue", Color{0x00, 0x00, 0xff}, Packed{0x0f, 0x00}},
		{"mixed", Color{0x12, 0x34, 0x56}, Packed{0x35, 0x01}},
		{"truncates", Color{0x1f, 0x2f, 0x3f}, Packed{0x23, 0x01}},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			assert.Equal(t, table.want, Pack(table.color))
		})
	}
}

func TestUnpack(t *testing.T) {
	for _, c := range palette {
		rc := c.(Color)
		assert.Equal(t, rc, Unpack(Pack(rc)))
	}
	assert.Equal(t, Color{0x11, 0x33, 0x55}, Unpack(Pack(Color{0x12, 0x34, 0x56})))
}

func TestSnap(t *testing.T) {
	assert.Equal(t, Color{0x00, 0x00, 0x00}, Snap(Color{0x08, 0x00, 0x00}))
	assert.Equal(t, Color{0x11, 0x00, 0x00}, Snap(Color{0x09, 0x00, 0x00}))
	assert.Equal(t, Color{0x88, 0x88, 0xff}, Snap(Color{0x80, 0x90, 0xfa}))
	assert.Equal(t, Color{0xff, 0xff, 0xff}, Snap(Color{0xff, 0xff, 0xff}))

	for v := 0; v < 256; v++ {
		s := Snap(Color{uint8(v), 0, 0}).R
		assert.Equal(t, s>>4, s&0x0f, "value %d snapped off the grid", v)
		d := int(s) - v
		if d < 0 {
			d = -d
		}
		assert.LessOrEqual(t, d, 8)
	}
}

func TestPalette(t *testing.T) {
	p := Palette()
	assert.Len(t, p, NumColors)
	assert.Equal(t, Color{0x00, 0x00, 0x00}, p[0])
	assert.Equal(t, Color{0x00, 0x00, 0x11}, p[1])
	assert.Equal(t, Color{0x00, 0x11, 0x00}, p[16])
	assert.Equal(t, Color{0x11, 0x00, 0x00}, p[256])
	assert.Equal(t, Color{0xff, 0xff, 0xff}, p[NumColors-1])

	seen := make(map[color.Color]struct{}, NumColors)
	for i, c := range p {
		seen[c] = struct{}{}
		assert.Equal(t, i, Index(c.(Color)))
	}
	assert.Len(t, seen, NumColors)

	// Modifying the copy must not affect the package palette
	p[0] = Color{0xff, 0, 0}
	assert.Equal(t, Color{}, Palette()[0])
}

func TestColormap(t *testing.T) {
	m := Colormap()
	assert.Equal(t, ColormapSize, m.Bounds().Dx())
	assert.Equal(t, ColormapSize, m.Bounds().Dy())
	assert.Equal(t, color.NRGBA{0x00, 0x00, 0x11, 0xff}, m.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{0x00, 0x44, 0x00, 0xff}, m.NRGBAAt(0, 1))
	assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0xff}, m.NRGBAAt(63, 63))
}

func TestFromColor(t *testing.T) {
	assert.Equal(t, Color{0x12, 0x34, 0x56}, FromColor(color.RGBA{0x12, 0x34, 0x56, 0xff}))
	assert.Equal(t, Color{0x12, 0x34, 0x56}, FromColor(Color{0x12, 0x34, 0x56}))
	assert.Equal(t, Color{0x80, 0x80, 0x80}, FromColor(color.Gray{0x80}))
	assert.Equal(t, Color{0x22, 0x44, 0x66}, Model.Convert(color.RGBA{0x20, 0x45, 0x66, 0xff}))
}

func TestLess(t *testing.T) {
	assert.True(t, Color{0, 0, 1}.Less(Color{0, 1, 0}))
	assert.True(t, Color{0, 0xff, 0xff}.Less(Color{1, 0, 0}))
	assert.False(t, Color{1, 2, 3}.Less(Color{1, 2, 3}))
	assert.False(t, Color{1, 2, 4}.Less(Color{1, 2, 3}))
}
