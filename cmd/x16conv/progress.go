package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/akubiczek/x16-4096-colours/asset"
	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// progress prints a line for every strip encoded. Batch conversions share
// one progress between several encoders.
type progress struct {
	mu       sync.Mutex
	w        io.Writer
	color    bool
	capacity int
}

func newProgress(f *os.File, capacity int) *progress {
	p := &progress{w: f, capacity: capacity}
	fd := f.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		p.w = colorable.NewColorable(f)
		p.color = true
	}
	return p
}

func (p *progress) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + colorReset
}

func (p *progress) StripDone(e asset.StripEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var detail string
	if e.Reduced {
		detail = p.paint(colorYellow, fmt.Sprintf("%d colors, reduced to %d", e.Unique, p.capacity))
	} else {
		detail = p.paint(colorGreen, fmt.Sprintf("%d colors, used directly", e.Unique))
	}
	fmt.Fprintf(p.w, "Strip #%d/%d: %s\n", e.Index+1, e.Total, detail)
}
