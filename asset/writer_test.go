package asset

import (
	"bytes"
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/akubiczek/x16-4096-colours/rle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blackPalettes = `; Palettes for image 'black.png'

NUMBER_OF_PALETTES = 1
NUMBER_OF_COLORS = 16

palette_data_start:

; Palette for strip #1, 1 unique colors
strip_000_palette:
  .byte $00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00
  .byte $00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00
`

const blackPixels = `; Image data for 'black.png' compressed using RLE
image_data_size = 3
pixel_data_rle:
  .byte $bf,$00,$ff
`

func TestWriteBlack(t *testing.T) {
	a, err := Encode(blank(8, 8), defaultOptions())
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, WritePalettes(&b, a, "black.png"))
	assert.Equal(t, blackPalettes, b.String())

	b.Reset()
	require.NoError(t, WritePixels(&b, a, "black.png"))
	assert.Equal(t, blackPixels, b.String())
}

func TestWriteRaw(t *testing.T) {
	o := defaultOptions()
	o.Compress = false
	a, err := Encode(blank(5, 4), o)
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, WritePixels(&b, a, "raw.png"))
	assert.Equal(t, `; Raw image data for 'raw.png'
image_data_size = 20
pixel_data_raw:
  .byte $00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00
  .byte $00,$00,$00,$00
`, b.String())
}

func TestWriteMultipleStrips(t *testing.T) {
	m := blank(4, 12)
	m.SetNRGBA(0, 9, color.NRGBA{0xff, 0xee, 0xdd, 0xff})
	m.SetNRGBA(1, 9, color.NRGBA{0x10, 0x20, 0x30, 0xff})

	o := defaultOptions()
	o.Capacity = 4
	a, err := Encode(m, o)
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, WritePalettes(&b, a, "two.png"))
	s := b.String()

	assert.Contains(t, s, "NUMBER_OF_PALETTES = 2\n")
	assert.Contains(t, s, "NUMBER_OF_COLORS = 4\n")
	assert.Contains(t, s, "\n; Palette for strip #1, 1 unique colors\nstrip_000_palette:\n  .byte $00,$00,$00,$00,$00,$00,$00,$00\n")
	assert.Contains(t, s, "\n; Palette for strip #2, 3 unique colors\nstrip_001_palette:\n  .byte $00,$00,$23,$01,$ed,$0f,$00,$00\n")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteError(t *testing.T) {
	a, err := Encode(noisy(320, 240), defaultOptions())
	require.NoError(t, err)
	assert.Error(t, WritePalettes(failWriter{}, a, "x"))
	assert.Error(t, WritePixels(failWriter{}, a, "x"))
}

func TestReadRoundTrip(t *testing.T) {
	m := noisy(37, 29)
	for _, compress := range []bool{true, false} {
		o := defaultOptions()
		o.Compress = compress
		a, err := Encode(m, o)
		require.NoError(t, err)

		var pal, pix bytes.Buffer
		require.NoError(t, WritePalettes(&pal, a, "noisy.png"))
		require.NoError(t, WritePixels(&pix, a, "noisy.png"))

		b, err := Read(&pal, &pix, 37, DefaultStripHeight)
		require.NoError(t, err)
		assert.Equal(t, a.Width, b.Width)
		assert.Equal(t, a.Height, b.Height)
		assert.Equal(t, a.StripCount(), b.StripCount())
		assert.Equal(t, a.Compressed, b.Compressed)
		assert.Equal(t, a.Palettes, b.Palettes)
		assert.Equal(t, a.Pixels, b.Pixels)
		assert.Equal(t, a.Data, b.Data)
		assert.Equal(t, a.Image(), b.Image())
	}
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(blackPalettes), strings.NewReader(blackPixels), 8, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 8, cfg.Height)

	m, err := Decode(strings.NewReader(blackPalettes), strings.NewReader(blackPixels), 8, 8)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 0, 0, 0xff}, m.At(7, 7))
}

func TestReadErrors(t *testing.T) {
	tables := []struct {
		name        string
		palettes    string
		pixels      string
		width       int
		stripHeight int
		want        error
	}{
		{"bad width", blackPalettes, blackPixels, 0, 8, nil},
		{"bad strip height", blackPalettes, blackPixels, 8, 0, nil},
		{"width mismatch", blackPalettes, blackPixels, 7, 8, errBadDimension},
		{"strip mismatch", blackPalettes, blackPixels, 8, 4, nil},
		{"short palette", strings.Replace(blackPalettes, "  .byte $00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00,$00\n", "", 1), blackPixels, 8, 8, errNotEnough},
		{"long palette", blackPalettes + "  .byte $00\n", blackPixels, 8, 8, errTooMuch},
		{"size mismatch", blackPalettes, strings.Replace(blackPixels, "= 3", "= 4", 1), 8, 8, errNotEnough},
		{"no data", blackPalettes, "image_data_size = 0\n", 8, 8, errNoData},
		{"bad byte", blackPalettes, strings.Replace(blackPixels, "$bf", "$1ff", 1), 8, 8, nil},
		{"garbage", blackPalettes, blackPixels + "lda #$00\n", 8, 8, nil},
		{"bad index", blackPalettes, strings.Replace(blackPixels, "$bf,$00", "$bf,$10", 1), 8, 8, errBadIndex},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(table.palettes), strings.NewReader(table.pixels), table.width, table.stripHeight)
			require.Error(t, err)
			if table.want != nil {
				assert.Equal(t, table.want, err)
			}
		})
	}
}

func TestReadTruncatedStream(t *testing.T) {
	pixels := strings.Replace(blackPixels, "= 3", "= 2", 1)
	pixels = strings.Replace(pixels, "$bf,$00,$ff", "$bf,$00", 1)

	_, err := Read(strings.NewReader(blackPalettes), strings.NewReader(pixels), 8, 8)
	var fe *rle.FormatError
	assert.True(t, errors.As(err, &fe), "got %v", err)
}
