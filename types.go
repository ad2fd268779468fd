package snap2pdf

import (
	"fmt"
	"image/color"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tdewolff/canvas"

	"github.com/alnah/go-snap2pdf/internal/compose"
	"github.com/alnah/go-snap2pdf/internal/emit"
	"github.com/alnah/go-snap2pdf/internal/fileutil"
	"github.com/alnah/go-snap2pdf/internal/isolate"
	"github.com/alnah/go-snap2pdf/internal/resolve"
)

// Page size constants.
const (
	PageSizeA4     = "a4"
	PageSizeA5     = "a5"
	PageSizeA6     = "a6"
	PageSizeLetter = "letter"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// FitPolicy selects how the raster is placed on the page.
type FitPolicy string

// Fit policies.
const (
	// FitStretch spans the content width; the height follows the aspect ratio
	// and may exceed the page unless Paginate is set.
	FitStretch FitPolicy = "stretch-fit-width"
	// FitContain is the largest centered fit that preserves the aspect ratio.
	FitContain FitPolicy = "contain-centered"
	// FitExact fills the content box, distorting if the ratios differ.
	FitExact FitPolicy = "exact-fill"
)

// Format is the artifact encoding.
type Format string

// Artifact formats.
const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// Request defaults and bounds.
const (
	DefaultSelector     = "body"
	DefaultScale        = 2.0
	MaxScale            = 10.0
	DefaultAssetTimeout = 10 * time.Second
	DefaultFilename     = "capture-{id}"
	DefaultBackground   = "#ffffff"
	DefaultPageSize     = PageSizeA4
	DefaultFit          = FitStretch

	// MaxMargin bounds the page margin in millimeters.
	MaxMargin = 50.0
	// MaxPageSide bounds custom page sides in millimeters (5 m).
	MaxPageSide = 5000.0
	// MaxSourceSize bounds local HTML sources read into memory.
	MaxSourceSize = 32 << 20
)

// pageSizes lists preset sizes in portrait millimeters.
var pageSizes = map[string][2]float64{
	PageSizeA4:     {210, 297},
	PageSizeA5:     {148, 210},
	PageSizeA6:     {105, 148},
	PageSizeLetter: {215.9, 279.4},
	PageSizeLegal:  {215.9, 355.6},
}

var (
	customSizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)x(\d+(?:\.\d+)?)$`)
	hexColorPattern   = regexp.MustCompile(`^#?(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// Source names the document and the subtree to capture. Exactly one of URL,
// File and HTML must be set.
type Source struct {
	URL  string // http(s) or file:// document
	File string // local HTML file
	HTML string // inline HTML document or fragment
	// Selector is the CSS selector of the capture root; defaults to "body".
	Selector string
}

// Dimensions is the capture size policy. The zero value captures the
// natural content box of the root.
type Dimensions struct {
	Width, Height int // CSS pixels
}

// FixedDimensions forces the clone to w x h CSS pixels.
func FixedDimensions(w, h int) Dimensions { return Dimensions{Width: w, Height: h} }

// ParseDimensions parses "WxH" in CSS pixels. An empty string or "natural"
// yields natural dimensions.
func ParseDimensions(s string) (Dimensions, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "natural" {
		return Dimensions{}, nil
	}
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return Dimensions{}, fmt.Errorf("%w: %q (want WxH)", ErrInvalidDimensions, s)
	}
	w, werr := strconv.Atoi(ws)
	h, herr := strconv.Atoi(hs)
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return Dimensions{}, fmt.Errorf("%w: %q (want positive WxH)", ErrInvalidDimensions, s)
	}
	return Dimensions{Width: w, Height: h}, nil
}

// IsFixed reports whether the dimensions force a size.
func (d Dimensions) IsFixed() bool { return d.Width != 0 || d.Height != 0 }

// PageProfile is the physical page.
type PageProfile struct {
	// Size is a preset name or "WxH" in millimeters. Ignored when Width and
	// Height are both set.
	Size          string
	Width, Height float64 // mm, portrait
	Orientation   string
	Margin        float64 // mm, applied to all sides
}

// CaptureRequest is one capture. Build it with NewCaptureRequest so that the
// identifier and creation time are fixed before the pipeline starts.
type CaptureRequest struct {
	Source     Source
	Dimensions Dimensions
	// Scale multiplies CSS pixels into raster pixels. Zero means DefaultScale.
	Scale float64
	// MaxDimension caps the longer raster side; zero keeps the capturer's cap.
	MaxDimension int
	Page         PageProfile
	Fit          FitPolicy
	// Paginate splits tall stretch-fit rasters over several pages.
	Paginate bool
	// AssetTimeout bounds the wait for images. Zero means DefaultAssetTimeout.
	AssetTimeout time.Duration
	// Background is the hex fill behind transparent pixels.
	Background string
	// AllowTainted skips the cross-origin readback check.
	AllowTainted bool
	// Filename is a template with {id}, {date[:fmt]} and {time[:fmt]}.
	Filename string
	Format   Format
	// BaseURL resolves relative asset references of File and HTML sources:
	// an http(s) URL or a local directory.
	BaseURL string
	// Title is written to the PDF metadata.
	Title     string
	ID        string
	CreatedAt time.Time
}

// NewCaptureRequest returns a request for src with defaults applied, a new
// identifier and the current time.
func NewCaptureRequest(src Source) CaptureRequest {
	if src.Selector == "" {
		src.Selector = DefaultSelector
	}
	return CaptureRequest{
		Source:       src,
		Scale:        DefaultScale,
		Page:         PageProfile{Size: DefaultPageSize, Orientation: OrientationPortrait},
		Fit:          DefaultFit,
		AssetTimeout: DefaultAssetTimeout,
		Background:   DefaultBackground,
		Filename:     DefaultFilename,
		Format:       FormatPDF,
		ID:           uuid.NewString(),
		CreatedAt:    time.Now(),
	}
}

// Validate checks the request without running it.
func (r CaptureRequest) Validate() error {
	_, err := r.plan()
	return err
}

// plan is a validated request translated for the pipeline stages.
type plan struct {
	target     Source
	selector   string
	dims       isolate.Dimensions
	scale      float64
	maxDim     int
	profile    compose.Profile
	policy     compose.Policy
	paginate   bool
	timeout    time.Duration
	background color.RGBA
	format     emit.Format
	name       string
	base       *url.URL
	id         string
	createdAt  time.Time
}

func (r CaptureRequest) plan() (*plan, error) {
	p := &plan{id: r.ID, createdAt: r.CreatedAt, paginate: r.Paginate, maxDim: r.MaxDimension}
	if p.id == "" {
		p.id = uuid.NewString()
	}
	if p.createdAt.IsZero() {
		p.createdAt = time.Now()
	}

	if err := validateSource(r.Source); err != nil {
		return nil, err
	}
	p.target = r.Source
	p.selector = strings.TrimSpace(r.Source.Selector)
	if p.selector == "" {
		p.selector = DefaultSelector
	}

	if r.Dimensions.Width < 0 || r.Dimensions.Height < 0 ||
		(r.Dimensions.IsFixed() && (r.Dimensions.Width == 0 || r.Dimensions.Height == 0)) {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, r.Dimensions.Width, r.Dimensions.Height)
	}
	p.dims = isolate.Dimensions{Width: r.Dimensions.Width, Height: r.Dimensions.Height}

	p.scale = r.Scale
	if p.scale == 0 {
		p.scale = DefaultScale
	}
	if math.IsNaN(p.scale) || p.scale < 0 || p.scale > MaxScale {
		return nil, fmt.Errorf("%w: %v (must be in (0, %v])", ErrInvalidScale, r.Scale, MaxScale)
	}
	if p.maxDim < 0 {
		return nil, fmt.Errorf("%w: max dimension %d", ErrInvalidScale, p.maxDim)
	}

	profile, err := r.Page.profile()
	if err != nil {
		return nil, err
	}
	p.profile = profile

	if p.policy, err = parseFit(r.Fit); err != nil {
		return nil, err
	}

	p.timeout = r.AssetTimeout
	if p.timeout < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimeout, r.AssetTimeout)
	}
	if p.timeout == 0 {
		p.timeout = DefaultAssetTimeout
	}

	if p.background, err = parseBackground(r.Background); err != nil {
		return nil, err
	}

	if p.format, err = emit.ParseFormat(string(r.Format)); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, r.Format)
	}

	tmpl := r.Filename
	if tmpl == "" {
		tmpl = DefaultFilename
	}
	if p.name, err = emit.Expand(tmpl, p.id, p.createdAt, p.format); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilename, err)
	}

	if p.base, err = resolve.ParseBase(r.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	return p, nil
}

func validateSource(s Source) error {
	set := 0
	for _, v := range []string{s.URL, s.File, s.HTML} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return ErrEmptySource
	case set > 1:
		return ErrAmbiguousSource
	case s.URL != "" && !fileutil.IsURL(s.URL):
		return fmt.Errorf("%w: %q", ErrInvalidSourceURL, s.URL)
	}
	return nil
}

// profile resolves the page size, orientation and margin.
func (pp PageProfile) profile() (compose.Profile, error) {
	w, h, err := pp.size()
	if err != nil {
		return compose.Profile{}, err
	}

	orientation := compose.Portrait
	switch strings.ToLower(pp.Orientation) {
	case "", OrientationPortrait:
	case OrientationLandscape:
		orientation = compose.Landscape
	default:
		return compose.Profile{}, fmt.Errorf("%w: %q", ErrInvalidOrientation, pp.Orientation)
	}

	if math.IsNaN(pp.Margin) || pp.Margin < 0 || pp.Margin > MaxMargin {
		return compose.Profile{}, fmt.Errorf("%w: %v mm (must be between 0 and %v)", ErrInvalidMargin, pp.Margin, MaxMargin)
	}
	if 2*pp.Margin >= math.Min(w, h) {
		return compose.Profile{}, fmt.Errorf("%w: %v mm leaves no content area on %vx%v mm", ErrInvalidMargin, pp.Margin, w, h)
	}
	return compose.Profile{Width: w, Height: h, Orientation: orientation, Margin: pp.Margin}, nil
}

func (pp PageProfile) size() (float64, float64, error) {
	if pp.Width != 0 || pp.Height != 0 {
		if !validSide(pp.Width) || !validSide(pp.Height) {
			return 0, 0, fmt.Errorf("%w: %vx%v mm", ErrInvalidPageSize, pp.Width, pp.Height)
		}
		return pp.Width, pp.Height, nil
	}

	name := strings.ToLower(strings.TrimSpace(pp.Size))
	if name == "" {
		name = DefaultPageSize
	}
	if wh, ok := pageSizes[name]; ok {
		return wh[0], wh[1], nil
	}
	m := customSizePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q (want a4, a5, a6, letter, legal or WxH in mm)", ErrInvalidPageSize, pp.Size)
	}
	w, _ := strconv.ParseFloat(m[1], 64)
	h, _ := strconv.ParseFloat(m[2], 64)
	if !validSide(w) || !validSide(h) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPageSize, pp.Size)
	}
	return w, h, nil
}

func validSide(v float64) bool {
	return v > 0 && v <= MaxPageSide
}

func parseFit(f FitPolicy) (compose.Policy, error) {
	switch FitPolicy(strings.ToLower(string(f))) {
	case "", FitStretch:
		return compose.StretchFitWidth, nil
	case FitContain:
		return compose.ContainCentered, nil
	case FitExact:
		return compose.ExactFill, nil
	}
	return 0, fmt.Errorf("%w: %q (want %s, %s or %s)", ErrInvalidFit, f, FitStretch, FitContain, FitExact)
}

func parseBackground(s string) (color.RGBA, error) {
	if s == "" {
		s = DefaultBackground
	}
	if !hexColorPattern.MatchString(s) {
		return color.RGBA{}, fmt.Errorf("%w: %q (want #rgb or #rrggbb)", ErrInvalidBackground, s)
	}
	return canvas.Hex(s), nil
}
