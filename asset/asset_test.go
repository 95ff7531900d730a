package asset

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/akubiczek/x16-4096-colours/rgb12"
	"github.com/akubiczek/x16-4096-colours/rle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blank(w, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(m.Pix); i += 4 {
		m.Pix[i] = 0xff
	}
	return m
}

// noisy returns an image where every strip has more than 16 colors
func noisy(w, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, color.NRGBA{uint8(x * 13), uint8(y * 29), uint8(x*y + 7), 0xff})
		}
	}
	return m
}

func defaultOptions() Options {
	return Options{
		StripHeight: DefaultStripHeight,
		Capacity:    DefaultCapacity,
		Compress:    true,
	}
}

func TestEncodeBlackStrip(t *testing.T) {
	a, err := Encode(blank(8, 8), defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, a.StripCount())
	require.Len(t, a.Strips, 1)
	assert.Equal(t, 1, a.Strips[0].Unique)
	assert.Equal(t, make([]byte, 32), a.Palettes)
	assert.Equal(t, make([]byte, 64), a.Pixels)
	assert.Equal(t, []byte{0xbf, 0x00, 0xff}, a.Data)
	assert.True(t, a.Compressed)
}

func TestEncodeRaw(t *testing.T) {
	o := defaultOptions()
	o.Compress = false
	a, err := Encode(blank(8, 8), o)
	require.NoError(t, err)
	assert.False(t, a.Compressed)
	assert.Equal(t, a.Pixels, a.Data)
}

func TestEncodePalettes(t *testing.T) {
	m := blank(4, 3)
	m.SetNRGBA(0, 0, color.NRGBA{0xff, 0x00, 0x00, 0xff})
	m.SetNRGBA(1, 2, color.NRGBA{0x12, 0x34, 0x56, 0xff})

	o := defaultOptions()
	o.StripHeight = 2
	o.Capacity = 2
	a, err := Encode(m, o)
	require.NoError(t, err)

	assert.Equal(t, 2, a.StripCount())
	assert.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x0f, // black, red
		0x00, 0x00, 0x35, 0x01, // black, 123456
	}, a.Palettes)
	assert.Equal(t, []byte{
		1, 0, 0, 0,
		0, 0, 0, 0,
		0, 1, 0, 0,
	}, a.Pixels)
}

func TestEncodeCapacityInvariant(t *testing.T) {
	m := noisy(40, 30)
	for _, capacity := range []int{1, 2, 16, 256} {
		o := defaultOptions()
		o.Capacity = capacity
		a, err := Encode(m, o)
		require.NoError(t, err)

		assert.Equal(t, 4, a.StripCount())
		assert.Len(t, a.Palettes, 4*capacity*2)
		assert.Len(t, a.Pixels, 40*30)
		for _, s := range a.Strips {
			assert.Len(t, s.Palette, capacity)
		}
		for _, p := range a.Pixels {
			assert.Less(t, int(p), capacity)
		}

		out, err := rle.Decode(a.Data)
		require.NoError(t, err)
		assert.Equal(t, a.Pixels, out)
	}
}

func TestEncodeLastStrip(t *testing.T) {
	a, err := Encode(noisy(10, 21), defaultOptions())
	require.NoError(t, err)
	require.Equal(t, 3, a.StripCount())
	assert.Equal(t, 5, a.Strips[2].Bounds.Dy())
	assert.Len(t, a.Strips[2].Indices, 50)

	rows := 0
	for _, s := range a.Strips {
		rows += s.Bounds.Dy()
	}
	assert.Equal(t, 21, rows)
}

func TestEncodeDeterministic(t *testing.T) {
	m := noisy(64, 64)

	var want *Asset
	for _, workers := range []int{1, 2, 3, 8, 0} {
		o := defaultOptions()
		o.Workers = workers
		a, err := Encode(m, o)
		require.NoError(t, err)
		if want == nil {
			want = a
			continue
		}
		assert.Equal(t, want.Palettes, a.Palettes)
		assert.Equal(t, want.Pixels, a.Pixels)
		assert.Equal(t, want.Data, a.Data)
	}
}

func TestEncodeObserver(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]StripEvent)

	o := defaultOptions()
	o.Workers = 4
	o.Observer = ObserverFunc(func(e StripEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Index] = e
	})

	a, err := Encode(noisy(32, 40), o)
	require.NoError(t, err)
	require.Len(t, seen, 5)
	for i, s := range a.Strips {
		assert.Equal(t, 5, seen[i].Total)
		assert.Equal(t, s.Unique, seen[i].Unique)
		assert.True(t, seen[i].Reduced)
	}
}

func TestEncodeErrors(t *testing.T) {
	tables := []struct {
		name        string
		stripHeight int
		capacity    int
	}{
		{"zero strip height", 0, 16},
		{"negative strip height", -8, 16},
		{"zero capacity", 8, 0},
		{"capacity too big", 8, 257},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			o := defaultOptions()
			o.StripHeight = table.stripHeight
			o.Capacity = table.capacity
			_, err := Encode(blank(8, 8), o)
			var ce *ConfigError
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}

	_, err := Encode(blank(0, 8), defaultOptions())
	var ie *ImageError
	assert.True(t, errors.As(err, &ie), "got %v", err)

	_, err = Encode(blank(8, 0), defaultOptions())
	assert.True(t, errors.As(err, &ie), "got %v", err)

	o := defaultOptions()
	o.Capacity = 256
	_, err = Encode(blank(8, 8), o)
	assert.NoError(t, err)
}

func TestEncodeReducerError(t *testing.T) {
	boom := errors.New("boom")
	o := defaultOptions()
	o.Reducer = reducerFunc(func(image.Image, int) ([]rgb12.Color, []byte, error) {
		return nil, nil, boom
	})
	_, err := Encode(noisy(32, 32), o)
	assert.True(t, errors.Is(err, boom), "got %v", err)
}

type reducerFunc func(image.Image, int) ([]rgb12.Color, []byte, error)

func (f reducerFunc) Reduce(m image.Image, n int) ([]rgb12.Color, []byte, error) {
	return f(m, n)
}

func TestAssetImage(t *testing.T) {
	m := blank(4, 3)
	m.SetNRGBA(0, 0, color.NRGBA{0xff, 0x00, 0x00, 0xff})
	m.SetNRGBA(3, 2, color.NRGBA{0x12, 0x34, 0x56, 0xff})

	o := defaultOptions()
	o.StripHeight = 2
	a, err := Encode(m, o)
	require.NoError(t, err)

	out := a.Image()
	assert.Equal(t, m.Bounds(), out.Bounds())
	assert.Equal(t, color.NRGBA{0xff, 0x00, 0x00, 0xff}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{0x11, 0x33, 0x55, 0xff}, out.NRGBAAt(3, 2))
	assert.Equal(t, color.NRGBA{0x00, 0x00, 0x00, 0xff}, out.NRGBAAt(1, 1))
}
