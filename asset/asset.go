/*
Package asset implements the X16 strip palette asset encoder and decoder.

An image is split into strips of a fixed height, usually 8 pixels. Each strip
has its own palette of NUMBER_OF_COLORS 12-bit colors, usually 16, and each
pixel is stored as one byte indexing into the palette of its strip.

The asset is written as two ca65 assembler sources. The palette file holds
NUMBER_OF_PALETTES blocks of 2 * NUMBER_OF_COLORS bytes, one packed color
pair per palette entry. The pixel file holds the strip indices, top to bottom
and row-major within each strip, optionally compressed with package rle.
*/
package asset

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"github.com/akubiczek/x16-4096-colours/rgb12"
	"github.com/akubiczek/x16-4096-colours/rle"
	"github.com/akubiczek/x16-4096-colours/strip"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStripHeight is the strip height used by the X16 display code
	DefaultStripHeight = 8

	// DefaultCapacity is the default number of colors per strip palette
	DefaultCapacity = 16

	// MaxCapacity is the most colors a one byte index can address
	MaxCapacity = strip.MaxCapacity

	bytesPerColor = len(rgb12.Packed{})
)

// A ConfigError reports an invalid encoding parameter.
type ConfigError struct {
	Field string
	Value interface{}
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("asset: invalid %s %v: %s", e.Field, e.Value, e.Msg)
}

// An ImageError reports a source image that can't be encoded.
type ImageError struct {
	Msg string
	Err error
}

func (e *ImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asset: %s: %v", e.Msg, e.Err)
	}
	return "asset: " + e.Msg
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// StripEvent describes a strip that has finished encoding.
type StripEvent struct {
	Index   int
	Total   int
	Unique  int
	Reduced bool
}

// Observer is notified as each strip is encoded. Calls are made from a
// single goroutine, in completion order rather than strip order.
type Observer interface {
	StripDone(StripEvent)
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(StripEvent)

// StripDone calls f(e).
func (f ObserverFunc) StripDone(e StripEvent) {
	f(e)
}

// Options control how an image is encoded.
type Options struct {
	StripHeight int
	Capacity    int
	Compress    bool

	// Reducer handles strips with more colors than Capacity. Defaults
	// to strip.MedianCut
	Reducer strip.Reducer

	// Workers bounds the number of strips encoded concurrently,
	// GOMAXPROCS if zero or less
	Workers int

	Observer Observer
}

// Validate checks the options describe an encodable asset.
func (o *Options) Validate() error {
	if o.StripHeight <= 0 {
		return &ConfigError{"strip height", o.StripHeight, "must be positive"}
	}
	if o.Capacity <= 0 || o.Capacity > MaxCapacity {
		return &ConfigError{"capacity", o.Capacity, fmt.Sprintf("must be between 1 and %d", MaxCapacity)}
	}
	return nil
}

// Asset is an encoded image.
type Asset struct {
	Width, Height int
	StripHeight   int
	Capacity      int
	Compressed    bool

	Strips []*strip.Strip

	// Palettes holds the packed palette of every strip in order
	Palettes []byte

	// Pixels holds the uncompressed strip indices
	Pixels []byte

	// Data is Pixels, compressed if Compressed is set
	Data []byte
}

// StripCount returns the number of strips, and therefore palettes.
func (a *Asset) StripCount() int {
	if a.Capacity <= 0 {
		return 0
	}
	return len(a.Palettes) / (a.Capacity * bytesPerColor)
}

// Image returns the asset rendered back into 12-bit colors.
func (a *Asset) Image() *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, a.Width, a.Height))
	i := 0
	for s, rect := range strip.Partition(m.Bounds(), a.StripHeight) {
		base := s * a.Capacity * bytesPerColor
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				o := base + int(a.Pixels[i])*bytesPerColor
				m.Set(x, y, rgb12.Unpack(rgb12.Packed{a.Palettes[o], a.Palettes[o+1]}))
				i++
			}
		}
	}
	return m
}

type result struct {
	index int
	strip *strip.Strip
}

// Encode splits m into strips, quantizes each one and packs the result.
func Encode(m image.Image, o Options) (*Asset, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	b := m.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &ImageError{Msg: fmt.Sprintf("image has no pixels (%dx%d)", b.Dx(), b.Dy())}
	}

	reducer := o.Reducer
	if reducer == nil {
		reducer = strip.MedianCut{}
	}

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rects := strip.Partition(b, o.StripHeight)
	strips := make([]*strip.Strip, len(rects))

	results := make(chan result)
	errc := make(chan error, 1)

	go func() {
		defer close(results)
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(workers)
		for i, r := range rects {
			g.Go(func() error {
				// Skip the remaining strips once one has failed
				if err := ctx.Err(); err != nil {
					return err
				}
				s, err := strip.Quantize(m, r, o.Capacity, reducer)
				if err != nil {
					return fmt.Errorf("asset: strip %d: %w", i, err)
				}
				results <- result{i, s}
				return nil
			})
		}
		errc <- g.Wait()
	}()

	for r := range results {
		strips[r.index] = r.strip
		if o.Observer != nil {
			o.Observer.StripDone(StripEvent{
				Index:   r.index,
				Total:   len(rects),
				Unique:  r.strip.Unique,
				Reduced: r.strip.Reduced,
			})
		}
	}
	if err := <-errc; err != nil {
		return nil, err
	}

	a := &Asset{
		Width:       b.Dx(),
		Height:      b.Dy(),
		StripHeight: o.StripHeight,
		Capacity:    o.Capacity,
		Compressed:  o.Compress,
		Strips:      strips,
		Palettes:    make([]byte, 0, len(strips)*o.Capacity*bytesPerColor),
		Pixels:      make([]byte, 0, b.Dx()*b.Dy()),
	}

	for _, s := range strips {
		for _, c := range s.Palette {
			p := rgb12.Pack(c)
			a.Palettes = append(a.Palettes, p[:]...)
		}
		a.Pixels = append(a.Pixels, s.Indices...)
	}

	if a.Compressed {
		a.Data = rle.Encode(a.Pixels)
	} else {
		a.Data = a.Pixels
	}

	return a, nil
}
