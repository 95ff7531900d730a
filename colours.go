/*
Package colours converts images into Commander X16 bitmap assets that show
up to 4096 colors on screen by giving every strip of the picture its own
palette.

A conversion letterboxes the source onto the configured canvas, reduces it to
the 12-bit color grid and encodes it with package asset. The palette and
pixel sources are staged in a temporary directory and only moved into place
once everything has been written.
*/
package colours

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/akubiczek/x16-4096-colours/asset"
	"github.com/akubiczek/x16-4096-colours/config"
	"github.com/akubiczek/x16-4096-colours/preprocess"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	palettesSuffix = "_palettes.s"
	pixelsSuffix   = "_pixels.s"
	resultName     = "result_12bit.png"
	tempPattern    = ".x16conv-"
)

// Converter turns source images into asset files.
type Converter struct {
	cfg      *config.Config
	logger   *log.Logger
	observer asset.Observer
	cache    *Cache
}

// Result describes the files written by a conversion.
type Result struct {
	Palettes string
	Pixels   string

	// Debug lists the debug images written, if any
	Debug []string

	// Asset is nil if the artifacts came from the cache
	Asset *asset.Asset

	Cached bool
}

// New returns a Converter using cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, logger *log.Logger) *Converter {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Converter{
		cfg:    cfg,
		logger: logger,
	}
}

// Observe sets the observer notified as each strip is encoded.
func (c *Converter) Observe(o asset.Observer) {
	c.observer = o
}

// UseCache enables looking up and storing artifacts in cache.
func (c *Converter) UseCache(cache *Cache) {
	c.cache = cache
}

// PalettesFile returns the name of the palette source for prefix.
func PalettesFile(prefix string) string {
	return prefix + palettesSuffix
}

// PixelsFile returns the name of the pixel source for prefix.
func PixelsFile(prefix string) string {
	return prefix + pixelsSuffix
}

// Convert converts the image in input and writes the palette and pixel
// sources named after prefix.
func (c *Converter) Convert(input, prefix string) (*Result, error) {
	opts, err := c.cfg.EncoderOptions()
	if err != nil {
		return nil, err
	}
	opts.Observer = c.observer

	src, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}

	// Debug images need the strips, which aren't cached
	var key string
	if c.cache != nil && !c.cfg.EmitDebugArtifacts {
		key = cacheKey(src, c.cfg.Fingerprint(), input)
		e, err := c.cache.Find(key)
		if err != nil {
			return nil, err
		}
		if e != nil {
			c.logger.Printf("Using cached artifacts for \"%s\"\n", input)
			res, err := c.commit(prefix, nil, []byte(e.Palettes), []byte(e.Pixels))
			if err != nil {
				return nil, err
			}
			res.Cached = true
			return res, nil
		}
	}

	a, err := c.encode(src, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	var palettes, pixels bytes.Buffer
	if err := asset.WritePalettes(&palettes, a, input); err != nil {
		return nil, err
	}
	if err := asset.WritePixels(&pixels, a, input); err != nil {
		return nil, err
	}

	res, err := c.commit(prefix, a, palettes.Bytes(), pixels.Bytes())
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := c.cache.Store(&Entry{Key: key, Palettes: palettes.String(), Pixels: pixels.String()}); err != nil {
			return nil, err
		}
	}

	c.logger.Printf("Converted \"%s\" into %d strips, %d bytes of pixel data\n", input, a.StripCount(), len(a.Data))

	return res, nil
}

func (c *Converter) encode(src []byte, opts asset.Options) (*asset.Asset, error) {
	m, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, &asset.ImageError{Msg: "cannot decode image", Err: err}
	}
	if b := m.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &asset.ImageError{Msg: fmt.Sprintf("image has no pixels (%dx%d)", b.Dx(), b.Dy())}
	}
	c.logger.Printf("Decoded %s image, %dx%d\n", format, m.Bounds().Dx(), m.Bounds().Dy())

	s, err := c.cfg.Scaler()
	if err != nil {
		return nil, err
	}
	boxed, err := preprocess.Letterbox(m, c.cfg.CanvasWidth, c.cfg.CanvasHeight, s)
	if err != nil {
		return nil, err
	}

	return asset.Encode(preprocess.ReduceToGrid(boxed, c.cfg.Dither), opts)
}

// commit writes everything into a temporary directory next to prefix and
// then renames it into place. If any file fails to move, the ones already
// moved are removed and the files they replaced are restored.
func (c *Converter) commit(prefix string, a *asset.Asset, palettes, pixels []byte) (*Result, error) {
	dir := filepath.Dir(prefix)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp(dir, tempPattern)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	res := &Result{
		Palettes: PalettesFile(prefix),
		Pixels:   PixelsFile(prefix),
		Asset:    a,
	}

	// Staged file to destination, in commit order
	var moves [][2]string
	for _, f := range []struct {
		dst string
		b   []byte
	}{
		{res.Palettes, palettes},
		{res.Pixels, pixels},
	} {
		src := filepath.Join(tmp, filepath.Base(f.dst))
		if err := os.WriteFile(src, f.b, 0666); err != nil {
			return nil, err
		}
		moves = append(moves, [2]string{src, f.dst})
	}

	if a != nil && c.cfg.EmitDebugArtifacts {
		debug, err := writeDebug(filepath.Join(tmp, "debug"), a)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(c.cfg.DebugDir, 0777); err != nil {
			return nil, err
		}
		for _, name := range debug {
			dst := filepath.Join(c.cfg.DebugDir, name)
			moves = append(moves, [2]string{filepath.Join(tmp, "debug", name), dst})
			res.Debug = append(res.Debug, dst)
		}
	}

	for _, m := range moves {
		if fi, err := os.Stat(m[1]); err == nil && fi.IsDir() {
			return nil, fmt.Errorf("%s: is a directory", m[1])
		}
	}

	var done commitLog
	for _, m := range moves {
		if err := done.move(m[0], m[1]); err != nil {
			done.rollback()
			return nil, err
		}
	}
	done.finish()

	if len(res.Debug) > 0 {
		c.logger.Printf("Saved %d debug images to \"%s\"\n", len(res.Debug), c.cfg.DebugDir)
	}

	return res, nil
}

// committed is a file moved into place along with the file it replaced, if
// there was one
type committed struct {
	dst    string
	backup string
}

type commitLog []committed

// move moves src to dst, first setting any existing dst aside
func (l *commitLog) move(src, dst string) error {
	backup := ""
	if _, err := os.Lstat(dst); err == nil {
		backup = filepath.Join(filepath.Dir(dst), tempPattern+"old-"+filepath.Base(dst))
		if err := os.Rename(dst, backup); err != nil {
			return err
		}
	}

	if err := move(src, dst); err != nil {
		if backup != "" {
			os.Rename(backup, dst)
		}
		return err
	}

	*l = append(*l, committed{dst, backup})
	return nil
}

func (l commitLog) rollback() {
	for i := len(l) - 1; i >= 0; i-- {
		os.Remove(l[i].dst)
		if l[i].backup != "" {
			os.Rename(l[i].backup, l[i].dst)
		}
	}
}

func (l commitLog) finish() {
	for _, c := range l {
		if c.backup != "" {
			os.Remove(c.backup)
		}
	}
}

// writeDebug saves every strip and the composite image as PNG files in dir
// and returns their names
func writeDebug(dir string, a *asset.Asset) ([]string, error) {
	if err := os.Mkdir(dir, 0777); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(a.Strips)+1)
	for i, s := range a.Strips {
		name := fmt.Sprintf("strip_%03d.png", i)
		if err := imaging.Save(s.Image(), filepath.Join(dir, name)); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if err := imaging.Save(a.Image(), filepath.Join(dir, resultName)); err != nil {
		return nil, err
	}
	return append(names, resultName), nil
}

// move renames src to dst, falling back to a copy if they are on different
// filesystems
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPattern+"*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// prefixFor returns the output prefix used for input when converting into
// dir
func prefixFor(dir, input string) string {
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
}
