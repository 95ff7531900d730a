/*
Package strip splits an image into fixed height horizontal strips and gives
each strip its own small palette.

A strip that uses no more colors than the palette capacity keeps those colors
exactly, sorted so the result is reproducible. Anything with more colors is
handed to a Reducer which is allowed to lose fidelity.
*/
package strip

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/akubiczek/x16-4096-colours/rgb12"
)

// MaxCapacity is the largest palette an index byte can address.
const MaxCapacity = 256

var (
	errBadHeight   = errors.New("strip: height must be positive")
	errBadCapacity = fmt.Errorf("strip: capacity must be between 1 and %d", MaxCapacity)
)

// Strip is a horizontal band of an image with its local palette.
type Strip struct {
	// Bounds is the area of the source image covered by the strip
	Bounds image.Rectangle

	// Palette always holds exactly capacity colors, any unused
	// entries are black
	Palette []rgb12.Color

	// Used is the number of palette entries referenced by Indices
	Used int

	// Unique is the number of distinct colors in the source strip
	Unique int

	// Reduced is set when the strip had to be passed through a Reducer
	Reduced bool

	// Indices holds one palette index per pixel, row-major
	Indices []byte
}

// Image returns the strip as a paletted image positioned at its original
// bounds.
func (s *Strip) Image() *image.Paletted {
	p := make(color.Palette, len(s.Palette))
	for i, c := range s.Palette {
		p[i] = c
	}
	m := image.NewPaletted(s.Bounds, p)
	copy(m.Pix, s.Indices)
	return m
}

// Partition splits r into rectangles of height h, top to bottom. The last
// one is shorter if the height of r isn't a multiple of h.
func Partition(r image.Rectangle, h int) []image.Rectangle {
	if h <= 0 || r.Empty() {
		return nil
	}
	out := make([]image.Rectangle, 0, (r.Dy()+h-1)/h)
	for y := r.Min.Y; y < r.Max.Y; y += h {
		out = append(out, image.Rect(r.Min.X, y, r.Max.X, min(y+h, r.Max.Y)))
	}
	return out
}

func uniqueColors(m image.Image, r image.Rectangle) []rgb12.Color {
	seen := make(map[rgb12.Color]struct{})
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			seen[rgb12.FromColor(m.At(x, y))] = struct{}{}
		}
	}
	p := make([]rgb12.Color, 0, len(seen))
	for c := range seen {
		p = append(p, c)
	}
	sortColors(p)
	return p
}

func sortColors(p []rgb12.Color) {
	sort.Slice(p, func(i, j int) bool { return p[i].Less(p[j]) })
}

func padPalette(p []rgb12.Color, capacity int) []rgb12.Color {
	out := make([]rgb12.Color, capacity)
	copy(out, p)
	return out
}

// Quantize builds the strip covering r in m with a palette of capacity
// colors.
func Quantize(m image.Image, r image.Rectangle, capacity int, reducer Reducer) (*Strip, error) {
	if r.Dy() <= 0 {
		return nil, errBadHeight
	}
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, errBadCapacity
	}
	r = r.Intersect(m.Bounds())

	s := &Strip{
		Bounds:  r,
		Indices: make([]byte, 0, r.Dx()*r.Dy()),
	}

	colors := uniqueColors(m, r)
	s.Unique = len(colors)

	if len(colors) <= capacity {
		lookup := make(map[rgb12.Color]byte, len(colors))
		for i, c := range colors {
			lookup[c] = byte(i)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				s.Indices = append(s.Indices, lookup[rgb12.FromColor(m.At(x, y))])
			}
		}
		s.Used = len(colors)
		s.Palette = padPalette(colors, capacity)
		return s, nil
	}

	if reducer == nil {
		return nil, fmt.Errorf("strip: %d colors exceed capacity %d and no reducer is set", len(colors), capacity)
	}

	p, indices, err := reducer.Reduce(subImage(m, r), capacity)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 || len(p) > capacity {
		return nil, fmt.Errorf("strip: reducer returned %d colors for capacity %d", len(p), capacity)
	}
	if len(indices) != r.Dx()*r.Dy() {
		return nil, fmt.Errorf("strip: reducer returned %d indices for %d pixels", len(indices), r.Dx()*r.Dy())
	}
	for _, i := range indices {
		if int(i) >= len(p) {
			return nil, fmt.Errorf("strip: reducer returned index %d for a palette of %d", i, len(p))
		}
	}

	s.Reduced = true
	s.Used = len(p)
	s.Palette = padPalette(p, capacity)
	s.Indices = append(s.Indices, indices...)
	return s, nil
}
