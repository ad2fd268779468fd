package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	snap2pdf "github.com/alnah/go-snap2pdf"
	"github.com/alnah/go-snap2pdf/internal/config"
	"github.com/alnah/go-snap2pdf/internal/fileutil"
	"github.com/alnah/go-snap2pdf/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput            = errors.New("no capture source specified")
	ErrReadStdin          = errors.New("failed to read HTML from stdin")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrSingleSourceOnly   = errors.New("option requires a single source")
)

// stdinSource is the source argument that reads HTML from standard input.
const stdinSource = "-"

// runCaptureCmd executes the capture command and returns an exit code.
func runCaptureCmd(args []string, env *Environment) int {
	flags, sources, err := parseCaptureFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsage
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	if err := runCapture(ctx, sources, flags, env); err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runCapture resolves settings, builds one request per source and runs the
// batch on a capturer pool.
func runCapture(ctx context.Context, sources []string, flags *captureFlags, env *Environment) error {
	if len(sources) == 0 {
		return ErrNoInput
	}
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}
	envCfg := loadEnvConfig()
	cfg, err := loadConfig(flags.common.config, envCfg.ConfigPath)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	toStdout := cfg.Output.Dir == stdinSource
	if len(sources) > 1 {
		if toStdout {
			return fmt.Errorf("%w: --output -", ErrSingleSourceOnly)
		}
		if flags.artifact.id != "" {
			return fmt.Errorf("%w: --id", ErrSingleSourceOnly)
		}
	}

	html, err := readStdinSource(sources, env.Stdin)
	if err != nil {
		return err
	}

	now := env.Now()
	jobs := make([]captureJob, 0, len(sources))
	for _, src := range sources {
		req, err := buildRequest(src, html, cfg, flags, now)
		if err != nil {
			return fmt.Errorf("%s: %w", sourceLabel(src), err)
		}
		if err := req.Validate(); err != nil {
			return fmt.Errorf("%s: %w", sourceLabel(src), err)
		}
		jobs = append(jobs, captureJob{Source: src, Request: req})
	}

	logger := newLogger(env.Stderr, flags.common)
	opts, err := capturerOptions(cfg, logger, env, toStdout)
	if err != nil {
		return err
	}

	size := min(snap2pdf.ResolvePoolSize(cfg.Browser.Workers), len(jobs))
	logger.Debug("starting captures", "sources", len(jobs), "workers", size)
	pool := env.NewPool(size, opts...)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing capturer pool", "error", err)
		}
	}()

	results := captureBatch(ctx, pool, jobs)

	// Reports go to stderr when stdout carries the artifact.
	out := env.Stdout
	if toStdout {
		out = env.Stderr
	}
	return batchErr(results, printResults(results, flags.common.quiet, flags.common.verbose, out, env.Stderr))
}

// validateWorkers checks the --workers range.
func validateWorkers(n int) error {
	if n < 0 || n > config.MaxWorkers {
		return fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidWorkerCount, n, config.MaxWorkers)
	}
	return nil
}

// loadConfig loads the config named by the flag, else by SNAP2PDF_CONFIG.
// No name means library defaults.
func loadConfig(flagName, envName string) (*config.Config, error) {
	name := flagName
	if name == "" {
		name = envName
	}
	if name == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadConfig(name)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !strings.ContainsAny(name, "/\\") {
			return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
// --fixed is applied in buildRequest because "natural" is not a config value.
func mergeFlags(flags *captureFlags, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if flags.changed(name) {
			*dst = v
		}
	}
	set("output", &cfg.Output.Dir, flags.output)
	set("name", &cfg.Output.Name, flags.artifact.name)
	set("format", &cfg.Output.Format, flags.artifact.format)
	set("preset", &cfg.Capture.Preset, flags.preset)
	set("selector", &cfg.Capture.Selector, flags.source.selector)
	set("base-url", &cfg.Capture.BaseURL, flags.source.baseURL)
	set("background", &cfg.Capture.Background, flags.raster.background)
	set("asset-timeout", &cfg.Capture.AssetTimeout, flags.raster.assetTimeout)
	set("page-size", &cfg.Page.Size, flags.page.size)
	set("orientation", &cfg.Page.Orientation, flags.page.orientation)
	set("fit", &cfg.Page.Fit, flags.page.fit)
	set("timeout", &cfg.Browser.Timeout, flags.browser.timeout)

	if flags.changed("scale") {
		cfg.Capture.Scale = flags.raster.scale
	}
	if flags.changed("max-dimension") {
		cfg.Capture.MaxDimension = flags.raster.maxDimension
	}
	if flags.changed("allow-tainted") {
		cfg.Capture.AllowTainted = flags.raster.allowTainted
	}
	if flags.changed("margin") {
		cfg.Page.Margin = flags.page.margin
	}
	if flags.changed("paginate") {
		cfg.Page.Paginate = flags.page.paginate
	}
	if flags.changed("workers") {
		cfg.Browser.Workers = flags.workers
	}
	if flags.changed("viewport-width") {
		cfg.Browser.ViewportWidth = flags.browser.viewportWidth
	}
}

// readStdinSource reads standard input when a source argument is "-".
func readStdinSource(sources []string, stdin io.Reader) (string, error) {
	n := 0
	for _, s := range sources {
		if s == stdinSource {
			n++
		}
	}
	switch n {
	case 0:
		return "", nil
	case 1:
	default:
		return "", fmt.Errorf("%w: stdin", ErrSingleSourceOnly)
	}

	data, err := io.ReadAll(io.LimitReader(stdin, snap2pdf.MaxSourceSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadStdin, err)
	}
	return string(data), nil
}

// buildRequest turns one source argument into a request. Layering, lowest
// first: library defaults, preset, merged config.
func buildRequest(src, stdinHTML string, cfg *config.Config, flags *captureFlags, now time.Time) (snap2pdf.CaptureRequest, error) {
	source := snap2pdf.Source{Selector: cfg.Capture.Selector}
	switch {
	case src == stdinSource:
		source.HTML = stdinHTML
	case fileutil.IsURL(src), strings.Contains(src, "://"):
		// Unsupported schemes are rejected by request validation.
		source.URL = src
	default:
		source.File = src
	}

	req := snap2pdf.NewCaptureRequest(source)
	req.CreatedAt = now

	if cfg.Capture.Preset != "" {
		var err error
		if req, err = snap2pdf.ApplyPreset(req, cfg.Capture.Preset); err != nil {
			return req, err
		}
	}

	fixed := cfg.Capture.Fixed
	if flags.changed("fixed") {
		fixed = flags.source.fixed
	}
	if fixed != "" {
		dims, err := snap2pdf.ParseDimensions(fixed)
		if err != nil {
			return req, err
		}
		req.Dimensions = dims
	}

	if cfg.Capture.Scale != 0 {
		req.Scale = cfg.Capture.Scale
	}
	if cfg.Capture.Background != "" {
		req.Background = cfg.Capture.Background
	}
	assetTimeout, err := parseDuration("asset timeout", cfg.Capture.AssetTimeout)
	if err != nil {
		return req, err
	}
	if assetTimeout > 0 {
		req.AssetTimeout = assetTimeout
	}
	req.BaseURL = cfg.Capture.BaseURL
	req.AllowTainted = cfg.Capture.AllowTainted

	if cfg.Page.Size != "" {
		req.Page.Size = cfg.Page.Size
	}
	if cfg.Page.Orientation != "" {
		req.Page.Orientation = cfg.Page.Orientation
	}
	if cfg.Page.Margin > 0 || flags.changed("margin") {
		req.Page.Margin = cfg.Page.Margin
	}
	if cfg.Page.Fit != "" {
		req.Fit = snap2pdf.FitPolicy(cfg.Page.Fit)
	}
	if cfg.Page.Paginate || flags.changed("paginate") {
		req.Paginate = cfg.Page.Paginate
	}

	if cfg.Output.Name != "" {
		req.Filename = cfg.Output.Name
	}
	if cfg.Output.Format != "" {
		req.Format = snap2pdf.Format(strings.ToLower(cfg.Output.Format))
	}
	if flags.artifact.id != "" {
		req.ID = flags.artifact.id
	}
	req.Title = flags.artifact.title
	return req, nil
}

// capturerOptions builds the options shared by every pooled capturer.
func capturerOptions(cfg *config.Config, logger *slog.Logger, env *Environment, toStdout bool) ([]snap2pdf.Option, error) {
	opts := []snap2pdf.Option{snap2pdf.WithLogger(logger)}

	if toStdout {
		opts = append(opts, snap2pdf.WithSaver(snap2pdf.NewWriterSaver(env.Stdout)))
	} else {
		opts = append(opts, snap2pdf.WithOutputDir(cfg.Output.Dir))
	}

	timeout, err := parseDuration("timeout", cfg.Browser.Timeout)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		opts = append(opts, snap2pdf.WithTimeout(timeout))
	}
	if cfg.Browser.ViewportWidth > 0 {
		opts = append(opts, snap2pdf.WithViewportWidth(cfg.Browser.ViewportWidth))
	}
	if cfg.Capture.MaxDimension > 0 {
		opts = append(opts, snap2pdf.WithMaxDimension(cfg.Capture.MaxDimension))
	}
	return opts, nil
}

// parseDuration parses a positive Go duration; empty means unset.
func parseDuration(what, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s %q (e.g., 30s, 2m)", ErrInvalidDuration, what, s)
	}
	return d, nil
}

// newLogger returns the pipeline logger: warnings by default, debug with
// --verbose, errors only with --quiet.
func newLogger(w io.Writer, f commonFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case f.verbose:
		level = slog.LevelDebug
	case f.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// sourceLabel names a source argument in messages.
func sourceLabel(src string) string {
	if src == stdinSource {
		return "stdin"
	}
	return src
}
