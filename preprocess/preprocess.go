/*
Package preprocess prepares a source image for asset encoding: it scales and
centers the image on a fixed size canvas and reduces it to the 4096 colors
the hardware can display.
*/
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/KononK/resize"
	"github.com/akubiczek/x16-4096-colours/rgb12"
	"github.com/disintegration/imaging"
)

// An ExternalToolError wraps a failure of one of the image processing steps.
type ExternalToolError struct {
	Tool string
	Err  error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("preprocess: %s: %v", e.Tool, e.Err)
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// Scaler resizes an image to exactly w by h pixels.
type Scaler interface {
	Scale(m image.Image, w, h int) image.Image
}

type imagingScaler struct {
	filter imaging.ResampleFilter
}

func (s imagingScaler) Scale(m image.Image, w, h int) image.Image {
	return imaging.Resize(m, w, h, s.filter)
}

type resizeScaler struct {
	interp resize.InterpolationFunction
}

func (s resizeScaler) Scale(m image.Image, w, h int) image.Image {
	return resize.Resize(uint(w), uint(h), m, s.interp)
}

var scalers = map[string]Scaler{
	"lanczos":         imagingScaler{imaging.Lanczos},
	"catmull-rom":     imagingScaler{imaging.CatmullRom},
	"linear":          imagingScaler{imaging.Linear},
	"box":             imagingScaler{imaging.Box},
	"nearest":         imagingScaler{imaging.NearestNeighbor},
	"resize/nearest":  resizeScaler{resize.NearestNeighbor},
	"resize/bilinear": resizeScaler{resize.Bilinear},
	"resize/bicubic":  resizeScaler{resize.Bicubic},
	"resize/lanczos3": resizeScaler{resize.Lanczos3},
}

// ScalerByName returns the named Scaler. The plain names use the imaging
// package filters, names prefixed with "resize/" use the resize package.
func ScalerByName(name string) (Scaler, error) {
	if name == "" {
		name = "lanczos"
	}
	s, ok := scalers[name]
	if !ok {
		return nil, fmt.Errorf("preprocess: unknown resample filter %q", name)
	}
	return s, nil
}

// fit returns the largest size with the same aspect ratio as sw by sh that
// fits within w by h
func fit(sw, sh, w, h int) (int, int) {
	scale := math.Min(float64(w)/float64(sw), float64(h)/float64(sh))
	fw := int(math.Round(float64(sw) * scale))
	fh := int(math.Round(float64(sh) * scale))
	return max(1, min(fw, w)), max(1, min(fh, h))
}

// Letterbox scales m, up or down, until it fits within w by h without
// changing its aspect ratio and centers it on a black canvas of exactly that
// size.
func Letterbox(m image.Image, w, h int, s Scaler) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, &ExternalToolError{"letterbox", fmt.Errorf("invalid canvas %dx%d", w, h)}
	}
	b := m.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &ExternalToolError{"letterbox", fmt.Errorf("invalid source %dx%d", b.Dx(), b.Dy())}
	}
	if s == nil {
		s = scalers["lanczos"]
	}

	fw, fh := fit(b.Dx(), b.Dy(), w, h)
	scaled := m
	if fw != b.Dx() || fh != b.Dy() {
		scaled = s.Scale(m, fw, fh)
	}
	if sb := scaled.Bounds(); sb.Dx() != fw || sb.Dy() != fh {
		return nil, &ExternalToolError{"letterbox", fmt.Errorf("scaler returned %dx%d, wanted %dx%d", sb.Dx(), sb.Dy(), fw, fh)}
	}

	// Flatten any transparency onto black as well
	canvas := imaging.New(w, h, color.NRGBA{0, 0, 0, 0xff})
	return imaging.OverlayCenter(canvas, scaled, 1.0), nil
}

// ReduceToGrid maps every pixel of m onto the nearest of the 4096 12-bit
// colors. With dither set the rounding error is diffused to neighbouring
// pixels using Floyd-Steinberg weights.
func ReduceToGrid(m image.Image, dither bool) *image.NRGBA {
	b := m.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if !dither {
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.Set(x, y, rgb12.Snap(rgb12.FromColor(m.At(b.Min.X+x, b.Min.Y+y))))
			}
		}
		return out
	}

	// Error for the current and next row, one extra column either side
	w := b.Dx() + 2
	cur := make([][3]float32, w)
	next := make([][3]float32, w)

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := rgb12.FromColor(m.At(b.Min.X+x, b.Min.Y+y))
			want := [3]float32{
				float32(c.R) + cur[x+1][0],
				float32(c.G) + cur[x+1][1],
				float32(c.B) + cur[x+1][2],
			}
			s := rgb12.Snap(rgb12.Color{R: clamp(want[0]), G: clamp(want[1]), B: clamp(want[2])})
			out.Set(x, y, s)

			got := [3]float32{float32(s.R), float32(s.G), float32(s.B)}
			for i := range want {
				e := want[i] - got[i]
				cur[x+2][i] += e * 7 / 16
				next[x][i] += e * 3 / 16
				next[x+1][i] += e * 5 / 16
				next[x+2][i] += e * 1 / 16
			}
		}
		cur, next = next, cur
		for i := range next {
			next[i] = [3]float32{}
		}
	}
	return out
}

func clamp(v float32) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	}
	return uint8(v + 0.5)
}
