package snap2pdf

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alnah/go-snap2pdf/internal/emit"
)

// Option configures a Capturer.
type Option func(*Capturer)

// capturerConfig holds internal configuration for Capturer.
type capturerConfig struct {
	timeout       time.Duration
	viewportWidth int
	maxDimension  int
}

// Saver delivers encoded artifacts. Save returns where the artifact went.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (location string, err error)
}

var (
	_ Saver = (*emit.DirSaver)(nil)
	_ Saver = (*emit.WriterSaver)(nil)
)

// NewDirSaver returns a Saver that writes atomically into dir, creating it
// when missing.
func NewDirSaver(dir string) Saver { return &emit.DirSaver{Dir: dir} }

// NewWriterSaver returns a Saver that streams artifacts to w.
func NewWriterSaver(w io.Writer) Saver { return &emit.WriterSaver{W: w} }

// WithTimeout sets the page load timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("snap2pdf: WithTimeout duration must be positive")
	}
	return func(c *Capturer) {
		c.cfg.timeout = d
	}
}

// WithLogger sets the structured logger. Captures are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Capturer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithViewportWidth sets the browser layout width in CSS pixels.
// Panics if px <= 0.
func WithViewportWidth(px int) Option {
	if px <= 0 {
		panic("snap2pdf: WithViewportWidth must be positive")
	}
	return func(c *Capturer) {
		c.cfg.viewportWidth = px
	}
}

// WithSaver sets where artifacts are delivered. The default writes into
// the current directory.
func WithSaver(s Saver) Option {
	return func(c *Capturer) {
		if s != nil {
			c.saver = s
		}
	}
}

// WithOutputDir is shorthand for WithSaver(NewDirSaver(dir)).
func WithOutputDir(dir string) Option {
	return WithSaver(NewDirSaver(dir))
}

// WithMaxDimension caps the longer raster side in pixels for requests that do
// not set their own cap. Panics if px <= 0.
func WithMaxDimension(px int) Option {
	if px <= 0 {
		panic("snap2pdf: WithMaxDimension must be positive")
	}
	return func(c *Capturer) {
		c.cfg.maxDimension = px
	}
}

// withHost injects the document host (tests).
func withHost(h browserHost) Option {
	return func(c *Capturer) {
		c.host = h
	}
}
