package snap2pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alnah/go-snap2pdf/internal/assetgate"
	"github.com/alnah/go-snap2pdf/internal/compose"
	"github.com/alnah/go-snap2pdf/internal/emit"
	"github.com/alnah/go-snap2pdf/internal/fileutil"
	"github.com/alnah/go-snap2pdf/internal/host"
	"github.com/alnah/go-snap2pdf/internal/isolate"
	"github.com/alnah/go-snap2pdf/internal/raster"
	"github.com/alnah/go-snap2pdf/internal/release"
	"github.com/alnah/go-snap2pdf/internal/resolve"
)

// overflowTolerance absorbs float noise when comparing placements to pages (mm).
const overflowTolerance = 1e-6

// browserHost opens documents for capture.
type browserHost interface {
	Open(ctx context.Context, target string) (captureDocument, error)
	Close() error
}

// captureDocument is one loaded document and the capabilities each stage
// needs from it.
type captureDocument interface {
	isolate.DOM
	Assets(ctx context.Context, token string) ([]assetgate.Asset, error)
	Painter(token string) raster.Painter
	Close() error
}

// Compile-time interface implementation checks.
var (
	_ browserHost     = (*rodHost)(nil)
	_ captureDocument = (*rodDocument)(nil)
)

// rodHost adapts host.Browser to browserHost.
type rodHost struct {
	browser *host.Browser
}

func (h *rodHost) Open(ctx context.Context, target string) (captureDocument, error) {
	doc, err := h.browser.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	return &rodDocument{Document: doc}, nil
}

func (h *rodHost) Close() error { return h.browser.Close() }

type rodDocument struct {
	*host.Document
}

func (d *rodDocument) Painter(token string) raster.Painter { return d.Document.Painter(token) }

// Capturer runs the capture pipeline against a headless Chrome it owns.
// Chrome starts on the first capture. A Capturer is safe for concurrent use:
// each capture works in its own page.
type Capturer struct {
	cfg    capturerConfig
	logger *slog.Logger
	saver  Saver
	host   browserHost

	mu     sync.Mutex
	closed bool
}

// NewCapturer creates a Capturer with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithOutputDir).
func NewCapturer(opts ...Option) *Capturer {
	c := &Capturer{
		cfg:    capturerConfig{timeout: host.DefaultTimeout, viewportWidth: host.DefaultViewportWidth},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.saver == nil {
		c.saver = NewDirSaver(".")
	}
	// Create host if not injected (e.g., by tests)
	if c.host == nil {
		c.host = &rodHost{browser: host.NewBrowser(host.Config{
			Timeout:       c.cfg.timeout,
			ViewportWidth: c.cfg.viewportWidth,
			Logger:        c.logger,
		})}
	}
	return c
}

// Capture isolates the requested subtree, waits for its images, rasterizes
// it, lays it out on pages and delivers the artifact through the saver.
// Fatal failures are *CaptureError values; asset timeouts are reported as
// warnings on the result.
func (c *Capturer) Capture(ctx context.Context, req CaptureRequest) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrCapturerClosed
	}

	p, err := req.plan()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	logger := c.logger.With("capture", p.id)
	result = &Result{}

	scope := release.New()
	emitted := false
	defer func() {
		// Emit already closed the scope and logged its failure.
		if rerr := scope.Close(ctx); rerr != nil && !emitted {
			logger.Warn("releasing capture temporaries", "error", rerr)
		}
	}()

	target, err := prepareSource(p, scope)
	if err != nil {
		return nil, err
	}

	doc, err := c.host.Open(ctx, target)
	if err != nil {
		if errors.Is(err, host.ErrPageLoad) {
			return nil, captureErr(KindSourceUnavailable, "loading document", err)
		}
		return nil, err
	}
	_ = scope.Defer("page", func(context.Context) error { return doc.Close() })

	h, err := isolate.Isolate(ctx, doc, p.selector, p.dims)
	if err != nil {
		return nil, isolateErr(ctx, p.selector, err)
	}
	_ = scope.Defer("clone", h.Release)
	logger.Debug("subtree isolated", "selector", p.selector, "width", h.Layout().Width, "height", h.Layout().Height)

	manifest := c.awaitAssets(ctx, logger, doc, h.Token(), p.timeout, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf, err := raster.Rasterize(ctx, doc.Painter(h.Token()), raster.Options{
		Scale:        p.scale,
		Background:   p.background,
		MaxDimension: c.maxDimension(p),
		AllowTainted: req.AllowTainted,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, captureErr(KindRasterizationFailed, "", err)
	}
	result.Raster = RasterInfo{
		Width:          buf.Width,
		Height:         buf.Height,
		Scale:          buf.Scale,
		RequestedScale: buf.RequestedScale,
		Reloaded:       buf.Reloaded,
	}
	if buf.Clamped() {
		result.Warnings = append(result.Warnings, Warning{
			Msg: fmt.Sprintf("scale reduced from %g to %.3g to fit %d px", buf.RequestedScale, buf.Scale, c.maxDimension(p)),
		})
	}
	logger.Debug("subtree rasterized", "width", buf.Width, "height", buf.Height, "scale", buf.Scale)

	layout, err := layoutPages(buf, p)
	if err != nil {
		return nil, err
	}
	result.Pages = toPages(layout)
	if over := overflow(layout); over > 0 {
		result.Warnings = append(result.Warnings, Warning{
			Msg: fmt.Sprintf("content overflows the page by %.1f mm; enable pagination to keep it", over),
		})
	}

	emitter := &emit.Emitter{Saver: c.saver, Logger: logger}
	emitted = true
	art, err := emitter.Emit(ctx, buf.Image, layout, emit.Request{
		Name:   p.name,
		Format: p.format,
		Metadata: emit.Metadata{
			Title:   req.Title,
			Subject: p.selector,
			Creator: "snap2pdf",
		},
		Release: scope,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, captureErr(KindEncodingFailed, "", err)
	}

	result.Artifact = Artifact{
		Name:      art.Name,
		Location:  art.Location,
		Format:    Format(art.Format.String()),
		MediaType: art.MediaType,
		Pages:     art.Pages,
		Data:      art.Data,
	}
	result.Duration = time.Since(start)
	logger.Info("capture complete",
		"artifact", art.Location,
		"pages", art.Pages,
		"assets", manifest.Len(),
		"warnings", len(result.Warnings),
		"duration", result.Duration)
	return result, nil
}

// awaitAssets enumerates and settles the images of the clone, recording their
// states and any warnings on result. Enumeration failures are not fatal.
func (c *Capturer) awaitAssets(ctx context.Context, logger *slog.Logger, doc captureDocument, token string, timeout time.Duration, result *Result) assetgate.Manifest {
	assets, err := doc.Assets(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return assetgate.Manifest{}
		}
		logger.Warn("enumerating assets", "error", err)
		result.Warnings = append(result.Warnings, Warning{Msg: "images could not be enumerated; capturing without waiting"})
		return assetgate.Manifest{}
	}

	manifest := assetgate.Await(ctx, assets, timeout)
	var timedOut, broken []string
	for _, e := range manifest.Entries {
		result.Assets = append(result.Assets, AssetStatus{
			Source:  e.Source,
			State:   e.State.String(),
			Reason:  e.Reason,
			Elapsed: e.Elapsed,
		})
		if e.State != assetgate.Failed {
			continue
		}
		if e.Reason == assetgate.ReasonTimeout {
			timedOut = append(timedOut, e.Source)
		} else {
			broken = append(broken, e.Source)
		}
	}

	if len(timedOut) > 0 {
		result.Warnings = append(result.Warnings, Warning{
			Kind:    KindAssetTimeout,
			Msg:     fmt.Sprintf("%d of %d images unsettled after %v", len(timedOut), manifest.Len(), timeout),
			Sources: timedOut,
		})
		logger.Warn("assets timed out", "count", len(timedOut), "timeout", timeout)
	}
	if len(broken) > 0 {
		result.Warnings = append(result.Warnings, Warning{
			Msg:     fmt.Sprintf("%d images failed to load", len(broken)),
			Sources: broken,
		})
		logger.Warn("assets failed", "count", len(broken))
	}
	logger.Debug("assets settled", "count", manifest.Len(), "loaded", manifest.Count(assetgate.Loaded), "duration", manifest.Elapsed)
	return manifest
}

func (c *Capturer) maxDimension(p *plan) int {
	if p.maxDim > 0 {
		return p.maxDim
	}
	if c.cfg.maxDimension > 0 {
		return c.cfg.maxDimension
	}
	return raster.DefaultMaxDimension
}

// Close releases the browser. Captures after Close fail with ErrCapturerClosed.
func (c *Capturer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.host.Close()
}

// prepareSource returns the URL to navigate to. Inline HTML and rebased
// files are written to a temporary file released with the scope.
func prepareSource(p *plan, scope *release.Scope) (string, error) {
	src := p.target
	if src.URL != "" {
		return src.URL, nil
	}

	content := src.HTML
	if src.File != "" {
		abs, err := filepath.Abs(src.File)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSourceNotFound, err)
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, src.File)
		}
		if p.base == nil {
			return resolve.DirURL(filepath.Dir(abs)).JoinPath(filepath.Base(abs)).String(), nil
		}
		if info.Size() > MaxSourceSize {
			return "", fmt.Errorf("%w: %s is %d bytes (max %d)", ErrSourceTooLarge, src.File, info.Size(), MaxSourceSize)
		}
		data, err := os.ReadFile(abs) // #nosec G304 -- user-provided source document
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSourceNotFound, err)
		}
		content = string(data)
	}
	if len(content) > MaxSourceSize {
		return "", fmt.Errorf("%w: inline HTML is %d bytes (max %d)", ErrSourceTooLarge, len(content), MaxSourceSize)
	}

	if p.base != nil {
		rewritten, err := resolve.Rewrite(content, p.base)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
		}
		content = rewritten
	}

	path, cleanup, err := fileutil.WriteTempFile(content, "html")
	if err != nil {
		return "", fmt.Errorf("staging source: %w", err)
	}
	_ = scope.Defer("temp file", func(context.Context) error {
		cleanup()
		return nil
	})
	return resolve.DirURL(filepath.Dir(path)).JoinPath(filepath.Base(path)).String(), nil
}

// layoutPages places the raster on the plan's page profile. Compose only
// refuses geometry, which is a rasterization fault once plan has validated
// the profile.
func layoutPages(buf *raster.Buffer, p *plan) (compose.Result, error) {
	layout, err := compose.Compose(buf.Width, buf.Height, p.profile, p.policy, compose.Options{Paginate: p.paginate})
	if err != nil {
		return compose.Result{}, captureErr(KindRasterizationFailed, "composing pages", err)
	}
	return layout, nil
}

func isolateErr(ctx context.Context, selector string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, isolate.ErrSourceUnavailable) {
		return captureErr(KindSourceUnavailable, "selector "+selector, err)
	}
	return captureErr(KindRasterizationFailed, "isolating subtree", err)
}

func toPages(layout compose.Result) []Page {
	pages := make([]Page, len(layout.Pages))
	for i, pg := range layout.Pages {
		pages[i] = Page{
			Width:        pg.Width,
			Height:       pg.Height,
			X:            pg.Placement.X,
			Y:            pg.Placement.Y,
			W:            pg.Placement.W,
			H:            pg.Placement.H,
			SourceTop:    pg.Source.Y0,
			SourceBottom: pg.Source.Y1,
		}
	}
	return pages
}

// overflow returns how far the lowest placement runs past its page, in mm.
func overflow(layout compose.Result) float64 {
	var over float64
	for _, pg := range layout.Pages {
		over = max(over, pg.Placement.Y+pg.Placement.H-pg.Height)
	}
	if over <= overflowTolerance {
		return 0
	}
	return over
}
