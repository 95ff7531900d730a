package strip

import (
	"fmt"
	"image"
	"image/color"

	"github.com/akubiczek/x16-4096-colours/rgb12"
	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/esimov/colorquant"
)

// Reducer reduces an image to at most capacity colors, returning the
// palette and one index per pixel, row-major.
type Reducer interface {
	Reduce(m image.Image, capacity int) ([]rgb12.Color, []byte, error)
}

// ReducerFunc adapts an ordinary function to the Reducer interface.
type ReducerFunc func(image.Image, int) ([]rgb12.Color, []byte, error)

// Reduce calls f(m, capacity).
func (f ReducerFunc) Reduce(m image.Image, capacity int) ([]rgb12.Color, []byte, error) {
	return f(m, capacity)
}

// MedianCut reduces colors with a median cut quantizer.
type MedianCut struct{}

// Reduce implements the Reducer interface.
func (MedianCut) Reduce(m image.Image, capacity int) ([]rgb12.Color, []byte, error) {
	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, capacity), m)
	return remap(m, p)
}

// ColorQuant reduces colors with the colorquant package, which doesn't
// dither. colorquant needs at least two clusters, a single color palette is
// left to MedianCut.
type ColorQuant struct{}

// Reduce implements the Reducer interface.
func (ColorQuant) Reduce(m image.Image, capacity int) ([]rgb12.Color, []byte, error) {
	if capacity < 2 {
		return MedianCut{}.Reduce(m, capacity)
	}

	dst := image.NewRGBA(m.Bounds())
	out := colorquant.NoDither.Quantize(m, dst, capacity, false, true)

	p := make(color.Palette, 0, capacity)
	for _, c := range uniqueColors(out, out.Bounds()) {
		p = append(p, c)
	}
	if len(p) > capacity {
		// Shouldn't happen but don't trust it
		return MedianCut{}.Reduce(out, capacity)
	}
	return remap(m, p)
}

// remap snaps p onto the 12-bit grid, sorts it and then maps every pixel in
// m to the nearest remaining color.
func remap(m image.Image, p color.Palette) ([]rgb12.Color, []byte, error) {
	if len(p) == 0 {
		return nil, nil, fmt.Errorf("strip: empty palette")
	}

	seen := make(map[rgb12.Color]struct{}, len(p))
	colors := make([]rgb12.Color, 0, len(p))
	for _, c := range p {
		s := rgb12.Snap(rgb12.FromColor(c))
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			colors = append(colors, s)
		}
	}
	sortColors(colors)

	sorted := make(color.Palette, len(colors))
	for i, c := range colors {
		sorted[i] = c
	}

	b := m.Bounds()
	indices := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			indices = append(indices, byte(sorted.Index(rgb12.FromColor(m.At(x, y)))))
		}
	}
	return colors, indices, nil
}

// subImage returns a copy of the area r of m with its origin at (0, 0).
func subImage(m image.Image, r image.Rectangle) image.Image {
	return imaging.Crop(m, r)
}

// ReducerByName returns the named Reducer, either "median-cut" or
// "colorquant".
func ReducerByName(name string) (Reducer, error) {
	switch name {
	case "", "median-cut":
		return MedianCut{}, nil
	case "colorquant":
		return ColorQuant{}, nil
	default:
		return nil, fmt.Errorf("strip: unknown reducer %q", name)
	}
}
