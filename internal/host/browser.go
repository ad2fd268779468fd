// Package host drives the headless Chrome page that renders the captured
// document, and adapts it to the isolate, assetgate and raster capabilities.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-snap2pdf/internal/process"
)

// Defaults for Config zero values.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// Sentinel errors for host operations.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrScript         = errors.New("page script failed")
)

// Config configures a Browser.
type Config struct {
	// Timeout bounds navigation and load of each document.
	Timeout time.Duration
	// ViewportWidth sets the layout width in CSS pixels. Device scale is
	// always 1: capture resolution comes from the raster scale alone.
	ViewportWidth  int
	ViewportHeight int
	Logger         *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = DefaultViewportWidth
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = DefaultViewportHeight
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Browser is a lazily launched headless Chrome.
// Rod automatically downloads Chromium on first run if not found.
type Browser struct {
	cfg Config

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowser returns a Browser; Chrome starts on the first Open.
func NewBrowser(cfg Config) *Browser {
	return &Browser{cfg: cfg.withDefaults()}
}

// ensureBrowser lazily launches and connects to the browser.
func (b *Browser) ensureBrowser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().
		Headless(true).
		// Local documents reference sibling assets through file:// URLs.
		Set("allow-file-access-from-files").
		Set("hide-scrollbars")

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		killLauncher(l)
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b.launcher = l
	b.browser = browser
	b.cfg.Logger.Debug("browser launched", "pid", l.PID())
	return browser, nil
}

// Open creates a page, navigates it to target and waits for the load event
// and web fonts. The returned Document must be closed by the caller.
func (b *Browser) Open(ctx context.Context, target string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := b.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	doc := &Document{page: page, logger: b.cfg.Logger}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.ViewportWidth,
		Height:            b.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = doc.Close()
		return nil, fmt.Errorf("%w: setting viewport: %v", ErrPageCreate, err)
	}

	// Wait for page to load with timeout from context or default
	timeout := b.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
		if timeout <= 0 {
			_ = doc.Close()
			return nil, context.DeadlineExceeded
		}
	}

	start := time.Now()
	loading := page.Context(ctx).Timeout(timeout)
	if err := loading.Navigate(target); err != nil {
		_ = doc.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, target, err)
	}
	if err := loading.WaitLoad(); err != nil {
		_ = doc.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, target, err)
	}
	if _, err := loading.Eval(fontsReadyJS); err != nil {
		b.cfg.Logger.Debug("web fonts not settled", "error", err)
	}
	b.cfg.Logger.Debug("document loaded", "url", target, "duration", time.Since(start))

	return doc, nil
}

// Close releases browser resources and kills the Chrome process tree.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		killLauncher(b.launcher)
		b.launcher = nil
	}
	return err
}

// killLauncher kills the process tree, then waits for exit and removes the
// profile directory.
func killLauncher(l *launcher.Launcher) {
	process.KillProcessGroup(l.PID())
	l.Kill()
	l.Cleanup()
}

// LookPath reports the Chrome binary rod would use, honoring ROD_BROWSER_BIN.
func LookPath() (path string, found bool) {
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		_, err := os.Stat(bin)
		return bin, err == nil
	}
	return launcher.LookPath()
}
