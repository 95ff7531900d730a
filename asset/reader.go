package asset

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/akubiczek/x16-4096-colours/rle"
)

var (
	errNotEnough    = errors.New("asset: not enough data")
	errTooMuch      = errors.New("asset: too much data")
	errBadIndex     = errors.New("asset: invalid palette index")
	errNoData       = errors.New("asset: no data label")
	errBadDimension = errors.New("asset: pixel count doesn't match dimensions")
)

// source is the parsed content of one of the assembler files.
type source struct {
	symbols map[string]int
	labels  []string
	data    map[string][]byte
}

func (s *source) symbol(name string) (int, error) {
	v, ok := s.symbols[name]
	if !ok {
		return 0, fmt.Errorf("asset: missing %s", name)
	}
	return v, nil
}

func (s *source) has(label string) bool {
	_, ok := s.data[label]
	return ok
}

func parseValue(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "$") {
		return strconv.ParseInt(v[1:], 16, 64)
	}
	return strconv.ParseInt(v, 0, 64)
}

// parse reads the subset of ca65 syntax emitted by the writer: comments,
// symbol assignments, labels and .byte directives.
func parse(r io.Reader) (*source, error) {
	s := &source{
		symbols: make(map[string]int),
		data:    make(map[string][]byte),
	}

	label := ""
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
		case strings.HasSuffix(line, ":"):
			label = strings.TrimSuffix(line, ":")
			s.labels = append(s.labels, label)
			s.data[label] = []byte{}
		case strings.HasPrefix(line, ".byte"):
			if label == "" {
				return nil, fmt.Errorf("asset: line %d: data before label", n)
			}
			for _, f := range strings.Split(strings.TrimPrefix(line, ".byte"), ",") {
				v, err := parseValue(f)
				if err != nil || v < 0 || v > 0xff {
					return nil, fmt.Errorf("asset: line %d: bad byte %q", n, strings.TrimSpace(f))
				}
				s.data[label] = append(s.data[label], byte(v))
			}
		case strings.Contains(line, "="):
			parts := strings.SplitN(line, "=", 2)
			v, err := parseValue(parts[1])
			if err != nil {
				return nil, fmt.Errorf("asset: line %d: bad value for %s", n, strings.TrimSpace(parts[0]))
			}
			s.symbols[strings.TrimSpace(parts[0])] = int(v)
		default:
			return nil, fmt.Errorf("asset: line %d: unexpected %q", n, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// PaletteTable is the parsed content of a palette file.
type PaletteTable struct {
	Count    int
	Capacity int
	Data     []byte
}

// ReadPalettes parses a palette file written by WritePalettes.
func ReadPalettes(r io.Reader) (*PaletteTable, error) {
	s, err := parse(r)
	if err != nil {
		return nil, err
	}

	t := new(PaletteTable)
	if t.Count, err = s.symbol(paletteCountSymbol); err != nil {
		return nil, err
	}
	if t.Capacity, err = s.symbol(colorCountSymbol); err != nil {
		return nil, err
	}
	if t.Capacity <= 0 || t.Capacity > MaxCapacity {
		return nil, &ConfigError{"capacity", t.Capacity, "out of range"}
	}

	// Strip labels follow the start label, the data may be split
	// across them
	started := false
	for _, label := range s.labels {
		if label == paletteStartLabel {
			started = true
		}
		if started {
			t.Data = append(t.Data, s.data[label]...)
		}
	}
	if !started {
		return nil, fmt.Errorf("asset: missing %s", paletteStartLabel)
	}

	switch size := t.Count * t.Capacity * bytesPerColor; {
	case len(t.Data) < size:
		return nil, errNotEnough
	case len(t.Data) > size:
		return nil, errTooMuch
	}
	return t, nil
}

// PixelStream is the parsed content of a pixel file.
type PixelStream struct {
	Compressed bool
	Data       []byte
}

// ReadPixels parses a pixel file written by WritePixels.
func ReadPixels(r io.Reader) (*PixelStream, error) {
	s, err := parse(r)
	if err != nil {
		return nil, err
	}

	p := new(PixelStream)
	switch {
	case s.has(rleLabel):
		p.Compressed = true
		p.Data = s.data[rleLabel]
	case s.has(rawLabel):
		p.Data = s.data[rawLabel]
	default:
		return nil, errNoData
	}

	size, err := s.symbol(dataSizeSymbol)
	if err != nil {
		return nil, err
	}
	switch {
	case len(p.Data) < size:
		return nil, errNotEnough
	case len(p.Data) > size:
		return nil, errTooMuch
	}
	return p, nil
}

// Pixels returns the uncompressed strip indices.
func (p *PixelStream) Pixels() ([]byte, error) {
	if !p.Compressed {
		return p.Data, nil
	}
	return rle.DecodeStrict(p.Data)
}

// Read reassembles an asset from its palette and pixel files. Neither file
// records the image dimensions so the width and strip height must be given.
func Read(palettes, pixels io.Reader, width, stripHeight int) (*Asset, error) {
	if width <= 0 {
		return nil, &ConfigError{"width", width, "must be positive"}
	}
	if stripHeight <= 0 {
		return nil, &ConfigError{"strip height", stripHeight, "must be positive"}
	}

	t, err := ReadPalettes(palettes)
	if err != nil {
		return nil, err
	}
	s, err := ReadPixels(pixels)
	if err != nil {
		return nil, err
	}
	indices, err := s.Pixels()
	if err != nil {
		return nil, err
	}

	if len(indices) == 0 || len(indices)%width != 0 {
		return nil, errBadDimension
	}
	height := len(indices) / width
	if strips := (height + stripHeight - 1) / stripHeight; strips != t.Count {
		return nil, fmt.Errorf("asset: %d palettes for %d strips", t.Count, strips)
	}
	for _, i := range indices {
		if int(i) >= t.Capacity {
			return nil, errBadIndex
		}
	}

	return &Asset{
		Width:       width,
		Height:      height,
		StripHeight: stripHeight,
		Capacity:    t.Capacity,
		Compressed:  s.Compressed,
		Palettes:    t.Data,
		Pixels:      indices,
		Data:        s.Data,
	}, nil
}

// Decode reads an asset and renders it as an image.Image.
func Decode(palettes, pixels io.Reader, width, stripHeight int) (image.Image, error) {
	a, err := Read(palettes, pixels, width, stripHeight)
	if err != nil {
		return nil, err
	}
	return a.Image(), nil
}

// DecodeConfig returns the dimensions of an asset without rendering it.
func DecodeConfig(palettes, pixels io.Reader, width, stripHeight int) (image.Config, error) {
	a, err := Read(palettes, pixels, width, stripHeight)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      a.Width,
		Height:     a.Height,
	}, nil
}
