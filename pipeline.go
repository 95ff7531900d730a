package colours

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/gobwas/glob"
)

// DefaultPattern matches the image formats that can be decoded.
const DefaultPattern = "*.{png,jpg,jpeg,gif,bmp,tif,tiff,webp}"

// job is an image to convert and the prefix for its sources
type job struct {
	file   string
	prefix string
}

func (c *Converter) findImages(ctx context.Context, base, outDir string, g glob.Glob) (<-chan job, <-chan error, error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		// Prefixes already handed out, "a.png" and "a.jpg" would share one
		claimed := make(map[string]string)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, including our own temporary directories
			if file != base && info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			if !g.Match(info.Name()) {
				return nil
			}

			rel, err := filepath.Rel(base, file)
			if err != nil {
				return err
			}
			prefix := prefixFor(filepath.Join(outDir, filepath.Dir(rel)), file)
			if other, ok := claimed[prefix]; ok {
				return fmt.Errorf("\"%s\" and \"%s\" would both be written to \"%s\"", other, file, prefix)
			}
			claimed[prefix] = file

			select {
			case out <- job{file, prefix}:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (c *Converter) imageWorker(ctx context.Context, in <-chan job) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for j := range in {
			if ctx.Err() != nil {
				return
			}

			res, err := c.Convert(j.file, j.prefix)
			if err != nil {
				errc <- err
				return
			}
			c.logger.Printf("Wrote \"%s\" and \"%s\"\n", res.Palettes, res.Pixels)
		}
	}()
	return errc, nil
}

// waitForPipeline returns the first error, cancelling the rest of the
// pipeline and waiting for it to wind down so nothing is still writing
func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	var first error
	for err := range mergeErrors(errs...) {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Batch converts every image under dir whose name matches pattern, writing
// the sources into the same relative directory under outDir. An empty
// pattern uses DefaultPattern. Two images that would be written to the same
// prefix, such as "a.png" and "a.jpg", are an error.
func (c *Converter) Batch(ctx context.Context, dir, pattern, outDir string) error {
	if pattern == "" {
		pattern = DefaultPattern
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return err
	}

	base, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := c.findImages(ctx, base, outDir, g)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	// Each conversion already encodes its strips in parallel
	workers := max(1, runtime.GOMAXPROCS(0)/2)
	for i := 0; i < workers; i++ {
		errc, err := c.imageWorker(ctx, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(cancelFunc, errcList...)
}
