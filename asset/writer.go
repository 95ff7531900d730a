package asset

import (
	"bufio"
	"fmt"
	"io"
)

const (
	bytesPerRow = 16

	paletteStartLabel = "palette_data_start"
	rleLabel          = "pixel_data_rle"
	rawLabel          = "pixel_data_raw"

	paletteCountSymbol = "NUMBER_OF_PALETTES"
	colorCountSymbol   = "NUMBER_OF_COLORS"
	dataSizeSymbol     = "image_data_size"
)

func stripLabel(i int) string {
	return fmt.Sprintf("strip_%03d_palette", i)
}

type encoder struct {
	w   *bufio.Writer
	err error
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: bufio.NewWriter(w)}
}

func (e *encoder) printf(format string, a ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, a...)
}

// writeBytes writes b as .byte directives of up to 16 values each
func (e *encoder) writeBytes(b []byte) {
	for len(b) > 0 && e.err == nil {
		n := min(len(b), bytesPerRow)
		e.printf("  .byte ")
		for i, v := range b[:n] {
			if i > 0 {
				e.printf(",")
			}
			e.printf("$%02x", v)
		}
		e.printf("\n")
		b = b[n:]
	}
}

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// WritePalettes writes the palette table of a to w. source is only used in
// the header comment.
func WritePalettes(w io.Writer, a *Asset, source string) error {
	e := newEncoder(w)

	e.printf("; Palettes for image '%s'\n\n", source)
	e.printf("%s = %d\n", paletteCountSymbol, a.StripCount())
	e.printf("%s = %d\n\n", colorCountSymbol, a.Capacity)
	e.printf("%s:\n", paletteStartLabel)

	size := a.Capacity * bytesPerColor
	for i := 0; i < a.StripCount(); i++ {
		unique := 0
		if i < len(a.Strips) {
			unique = a.Strips[i].Unique
		}
		e.printf("\n; Palette for strip #%d, %d unique colors\n", i+1, unique)
		e.printf("%s:\n", stripLabel(i))
		e.writeBytes(a.Palettes[i*size : (i+1)*size])
	}

	return e.flush()
}

// WritePixels writes the pixel stream of a to w. source is only used in the
// header comment.
func WritePixels(w io.Writer, a *Asset, source string) error {
	e := newEncoder(w)

	label := rawLabel
	if a.Compressed {
		label = rleLabel
		e.printf("; Image data for '%s' compressed using RLE\n", source)
	} else {
		e.printf("; Raw image data for '%s'\n", source)
	}
	e.printf("%s = %d\n", dataSizeSymbol, len(a.Data))
	e.printf("%s:\n", label)
	e.writeBytes(a.Data)

	return e.flush()
}
