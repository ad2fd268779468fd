package host

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-snap2pdf/internal/assetgate"
	"github.com/alnah/go-snap2pdf/internal/isolate"
	"github.com/alnah/go-snap2pdf/internal/raster"
)

// reloadTimeout bounds the CORS-anonymous reload of tainting assets.
const reloadTimeout = 5 * time.Second

// Compile-time interface checks
var (
	_ isolate.DOM     = (*Document)(nil)
	_ raster.Painter  = (*Painter)(nil)
	_ assetgate.Asset = (*asset)(nil)
)

// Document is one loaded page.
type Document struct {
	page   *rod.Page
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

type box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type cloneResult struct {
	box
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// eval runs a page script under ctx and decodes its JSON result into out.
func (d *Document) eval(ctx context.Context, js string, out any, args ...any) error {
	res, err := d.page.Context(ctx).Eval(js, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrScript, err)
	}
	if out == nil {
		return nil
	}
	if err := res.Value.Unmarshal(out); err != nil {
		return fmt.Errorf("%w: decoding result: %v", ErrScript, err)
	}
	return nil
}

// Clone implements isolate.DOM.
func (d *Document) Clone(ctx context.Context, selector string, dims isolate.Dimensions, token string) (isolate.Layout, error) {
	var res cloneResult
	if err := d.eval(ctx, cloneJS, &res, selector, dims.Width, dims.Height, token); err != nil {
		return isolate.Layout{}, err
	}
	if res.Error != "" {
		return isolate.Layout{}, fmt.Errorf("%w: %s", isolate.ErrSourceUnavailable, res.Reason)
	}
	d.logger.Debug("clone attached", "selector", selector, "token", token, "width", res.Width, "height", res.Height)
	return isolate.Layout{X: res.X, Y: res.Y, Width: res.Width, Height: res.Height}, nil
}

// Remove implements isolate.DOM.
func (d *Document) Remove(ctx context.Context, token string) error {
	return d.eval(ctx, removeJS, nil, token)
}

// CloneCount returns the number of clone containers attached to the page.
func (d *Document) CloneCount(ctx context.Context) (int, error) {
	var n int
	err := d.eval(ctx, countJS, &n)
	return n, err
}

// Assets enumerates the image-bearing elements of the clone tagged token.
func (d *Document) Assets(ctx context.Context, token string) ([]assetgate.Asset, error) {
	var found []struct {
		Source string `json:"source"`
		State  string `json:"state"`
	}
	if err := d.eval(ctx, assetsJS, &found, token); err != nil {
		return nil, err
	}

	assets := make([]assetgate.Asset, len(found))
	for i, f := range found {
		assets[i] = &asset{doc: d, token: token, index: i, source: f.Source, state: parseState(f.State)}
	}
	return assets, nil
}

// Painter returns the raster.Painter of the clone tagged token.
func (d *Document) Painter(token string) *Painter {
	return &Painter{doc: d, token: token}
}

// Close closes the page. Safe to call more than once.
func (d *Document) Close() error {
	d.closeOnce.Do(func() {
		if err := d.page.Close(); err != nil {
			d.closeErr = fmt.Errorf("closing page: %w", err)
		}
	})
	return d.closeErr
}

func parseState(s string) assetgate.State {
	switch s {
	case "loaded":
		return assetgate.Loaded
	case "failed":
		return assetgate.Failed
	}
	return assetgate.Pending
}

// asset is one registered image of a clone.
type asset struct {
	doc    *Document
	token  string
	index  int
	source string
	state  assetgate.State
}

func (a *asset) Source() string { return a.source }

func (a *asset) Status() assetgate.State { return a.state }

func (a *asset) Wait(ctx context.Context) (assetgate.State, error) {
	var s string
	if err := a.doc.eval(ctx, waitJS, &s, a.token, a.index); err != nil {
		return assetgate.Pending, err
	}
	return parseState(s), nil
}

// Painter paints a clone with the page's screenshot primitive.
type Painter struct {
	doc   *Document
	token string

	mu   sync.Mutex
	last *box
}

// Measure implements raster.Painter.
func (p *Painter) Measure(ctx context.Context) (float64, float64, error) {
	var b *box
	if err := p.doc.eval(ctx, measureJS, &b, p.token); err != nil {
		return 0, 0, err
	}
	if b == nil {
		return 0, 0, fmt.Errorf("%w: clone %s is not attached", ErrScript, p.token)
	}
	p.mu.Lock()
	p.last = b
	p.mu.Unlock()
	return b.Width, b.Height, nil
}

// Tainted implements raster.Painter.
func (p *Painter) Tainted(ctx context.Context) ([]string, error) {
	var sources []string
	err := p.doc.eval(ctx, taintedJS, &sources, p.token)
	return sources, err
}

// ReloadAnonymous implements raster.Painter.
func (p *Painter) ReloadAnonymous(ctx context.Context, sources []string) error {
	var failed []string
	if err := p.doc.eval(ctx, reloadJS, &failed, p.token, sources, reloadTimeout.Milliseconds()); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s did not load with CORS", ErrScript, strings.Join(failed, ", "))
	}
	p.doc.logger.Debug("reloaded cross-origin assets", "count", len(sources))
	return nil
}

// Paint implements raster.Painter. The clip uses the layout of the last
// Measure so that the painted size matches the one the scale was chosen for.
func (p *Painter) Paint(ctx context.Context, scale float64, background color.Color) (image.Image, error) {
	p.mu.Lock()
	b := p.last
	p.mu.Unlock()
	if b == nil {
		if _, _, err := p.Measure(ctx); err != nil {
			return nil, err
		}
		p.mu.Lock()
		b = p.last
		p.mu.Unlock()
	}

	if err := p.doc.eval(ctx, backgroundJS, nil, p.token, cssColor(background)); err != nil {
		return nil, err
	}

	data, err := p.doc.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      b.X,
			Y:      b.Y,
			Width:  b.Width,
			Height: b.Height,
			Scale:  scale,
		},
		FromSurface:           true,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}
	return img, nil
}

// cssColor formats c as an opaque CSS rgb() color.
func cssColor(c color.Color) string {
	if c == nil {
		return "transparent"
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("rgb(%d, %d, %d)", n.R, n.G, n.B)
}
