package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// sourceFlags holds what is captured.
type sourceFlags struct {
	selector string
	baseURL  string
	fixed    string
}

// rasterFlags holds rasterization flags.
type rasterFlags struct {
	scale        float64
	maxDimension int
	background   string
	assetTimeout string
	allowTainted bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
	fit         string
	paginate    bool
}

// artifactFlags holds artifact naming and metadata flags.
type artifactFlags struct {
	name   string
	format string
	id     string
	title  string
}

// browserFlags holds headless browser flags.
type browserFlags struct {
	timeout       string
	viewportWidth int
}

// captureFlags holds all flags for the capture command.
type captureFlags struct {
	common   commonFlags
	output   string
	workers  int
	preset   string
	source   sourceFlags
	raster   rasterFlags
	page     pageFlags
	artifact artifactFlags
	browser  browserFlags

	// changed reports whether a flag was set on the command line.
	changed func(name string) bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show pipeline logs and timing")
}

// addSourceFlags adds source flags to a FlagSet.
func addSourceFlags(fs *flag.FlagSet, f *sourceFlags) {
	fs.StringVarP(&f.selector, "selector", "s", "", "CSS selector of the element to capture (default: body)")
	fs.StringVar(&f.baseURL, "base-url", "", "base URL or directory for relative asset references")
	fs.StringVar(&f.fixed, "fixed", "", "fixed capture size WxH in CSS pixels, or natural")
}

// addRasterFlags adds raster flags to a FlagSet.
func addRasterFlags(fs *flag.FlagSet, f *rasterFlags) {
	fs.Float64Var(&f.scale, "scale", 0, "pixels per CSS pixel (default: 2)")
	fs.IntVar(&f.maxDimension, "max-dimension", 0, "longest raster side in pixels (0 = default)")
	fs.StringVar(&f.background, "background", "", "fill behind transparent pixels (#rgb or #rrggbb)")
	fs.StringVar(&f.assetTimeout, "asset-timeout", "", "wait bound for images (e.g., 10s)")
	fs.BoolVar(&f.allowTainted, "allow-tainted", false, "skip the cross-origin image check")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: a4, a5, a6, letter, legal or WxH mm")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in millimeters")
	fs.StringVar(&f.fit, "fit", "", "fit policy: stretch-fit-width, contain-centered, exact-fill")
	fs.BoolVar(&f.paginate, "paginate", false, "split tall captures over several pages")
}

// addArtifactFlags adds artifact flags to a FlagSet.
func addArtifactFlags(fs *flag.FlagSet, f *artifactFlags) {
	fs.StringVarP(&f.name, "name", "n", "", "filename template: {id}, {date[:fmt]}, {time[:fmt]}")
	fs.StringVarP(&f.format, "format", "f", "", "artifact format: pdf, png")
	fs.StringVar(&f.id, "id", "", "capture identifier (default: random UUID)")
	fs.StringVar(&f.title, "title", "", "PDF title metadata")
}

// addBrowserFlags adds browser flags to a FlagSet.
func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.StringVarP(&f.timeout, "timeout", "t", "", "page load timeout (e.g., 30s, 2m)")
	fs.IntVar(&f.viewportWidth, "viewport-width", 0, "layout width in CSS pixels (0 = default)")
}

// parseCaptureFlags parses capture command flags and returns positional args.
func parseCaptureFlags(args []string, stderr io.Writer) (*captureFlags, []string, error) {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	f := &captureFlags{changed: fs.Changed}

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output directory, or - for stdout")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel captures (0 = auto)")
	fs.StringVar(&f.preset, "preset", "", "request preset: coupon, invoice, redeemed")

	// Flag groups
	addCommonFlags(fs, &f.common)
	addSourceFlags(fs, &f.source)
	addRasterFlags(fs, &f.raster)
	addPageFlags(fs, &f.page)
	addArtifactFlags(fs, &f.artifact)
	addBrowserFlags(fs, &f.browser)

	fs.SetOutput(stderr)
	fs.Usage = func() { printCaptureUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
