// Package raster paints an isolated subtree into an opaque pixel buffer at a
// caller-chosen scale.
//
// Output size is round(layout size x scale) on each axis, independent of the
// device pixel ratio of the host, so repeated captures of the same layout
// always produce the same dimensions.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Defaults applied by Rasterize for zero option values.
const (
	DefaultScale        = 2.0
	DefaultMaxDimension = 16384
)

// Sentinel errors for rasterization.
var (
	ErrInvalidScale = errors.New("invalid scale factor")
	ErrEmptyLayout  = errors.New("subtree has zero layout area")
	ErrTainted      = errors.New("cross-origin asset taints the pixel source")
	ErrPaint        = errors.New("painting subtree failed")
)

// DefaultBackground is composited behind transparent pixels.
var DefaultBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Painter abstracts the host that can paint the isolated subtree.
type Painter interface {
	// Measure returns the current layout size of the subtree in CSS pixels.
	Measure(ctx context.Context) (width, height float64, err error)
	// Tainted returns the sources of loaded assets whose pixels cannot be
	// read back because of cross-origin restrictions.
	Tainted(ctx context.Context) ([]string, error)
	// ReloadAnonymous reloads the given sources with CORS-anonymous
	// requests and waits for them to settle. It fails when any of them
	// does not load.
	ReloadAnonymous(ctx context.Context, sources []string) error
	// Paint renders the subtree at scale over background.
	Paint(ctx context.Context, scale float64, background color.Color) (image.Image, error)
}

// Options controls rasterization.
type Options struct {
	Scale      float64
	Background color.Color
	// MaxDimension caps the longer output side in pixels; the scale is
	// reduced to fit.
	MaxDimension int
	// AllowTainted skips the cross-origin check, for painters that read
	// pixels without canvas restrictions.
	AllowTainted bool
}

// Buffer is the single raster produced per capture.
type Buffer struct {
	Width, Height  int
	Image          *image.RGBA
	Scale          float64 // scale actually used
	RequestedScale float64
	// Reloaded lists sources recovered by the CORS-anonymous reload.
	Reloaded []string
}

// Clamped reports whether MaxDimension reduced the requested scale.
func (b *Buffer) Clamped() bool { return b.Scale < b.RequestedScale }

// Rasterize measures, checks, paints and flattens the subtree behind p.
func Rasterize(ctx context.Context, p Painter, opts Options) (*Buffer, error) {
	opts = withDefaults(opts)
	if math.IsNaN(opts.Scale) || math.IsInf(opts.Scale, 0) || opts.Scale <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, opts.Scale)
	}

	w, h, err := p.Measure(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: measuring layout: %v", ErrPaint, err)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %vx%v px", ErrEmptyLayout, w, h)
	}

	buf := &Buffer{RequestedScale: opts.Scale}
	if !opts.AllowTainted {
		reloaded, err := untaint(ctx, p)
		if err != nil {
			return nil, err
		}
		buf.Reloaded = reloaded
	}

	scale, tw, th := TargetSize(w, h, opts.Scale, opts.MaxDimension)
	img, err := p.Paint(ctx, scale, opts.Background)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaint, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: host returned an empty image", ErrPaint)
	}

	buf.Width, buf.Height = tw, th
	buf.Scale = scale
	buf.Image = Flatten(img, tw, th, opts.Background)
	return buf, nil
}

// untaint looks for tainted assets and attempts one anonymous reload.
func untaint(ctx context.Context, p Painter) ([]string, error) {
	tainted, err := p.Tainted(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: checking assets for taint: %v", ErrPaint, err)
	}
	if len(tainted) == 0 {
		return nil, nil
	}
	if err := p.ReloadAnonymous(ctx, tainted); err != nil {
		return nil, fmt.Errorf("%w: %s (anonymous reload failed: %v)", ErrTainted, strings.Join(tainted, ", "), err)
	}
	still, err := p.Tainted(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: checking assets for taint: %v", ErrPaint, err)
	}
	if len(still) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrTainted, strings.Join(still, ", "))
	}
	return tainted, nil
}

// TargetSize returns the effective scale and the output pixel size for a
// layout of w x h CSS pixels. A positive maxDim reduces the scale so that the
// longer side fits.
func TargetSize(w, h, scale float64, maxDim int) (float64, int, int) {
	if maxDim > 0 {
		longest := math.Max(w, h)
		if math.Round(longest*scale) > float64(maxDim) {
			scale = float64(maxDim) / longest
		}
	}
	tw := max(int(math.Round(w*scale)), 1)
	th := max(int(math.Round(h*scale)), 1)
	if maxDim > 0 {
		tw, th = min(tw, maxDim), min(th, maxDim)
	}
	return scale, tw, th
}

// Flatten composites img over an opaque background into a fresh w x h buffer,
// resampling when the host painted a slightly different size.
func Flatten(img image.Image, w, h int, background color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(opaque(background)), image.Point{}, draw.Src)

	src := img.Bounds()
	if src.Dx() == w && src.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}

func opaque(c color.Color) color.RGBA {
	if c == nil {
		return DefaultBackground
	}
	r, g, b, a := c.RGBA()
	if a == 0 {
		return DefaultBackground
	}
	// Un-premultiply, then force full alpha.
	return color.RGBA{
		R: uint8((r * 0xffff / a) >> 8),
		G: uint8((g * 0xffff / a) >> 8),
		B: uint8((b * 0xffff / a) >> 8),
		A: 0xff,
	}
}

func withDefaults(o Options) Options {
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	o.Background = opaque(o.Background)
	if o.MaxDimension == 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	return o
}
