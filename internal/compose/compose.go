// Package compose maps a raster onto physical pages.
//
// Compose is a pure function of the raster pixel size, the page profile and the
// fit policy: the same inputs always yield the same placements, and nothing is
// read from outside its arguments. All lengths in results are millimeters,
// measured from the top-left corner of the page.
package compose

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned when the inputs cannot produce a placement.
var ErrInvalidGeometry = errors.New("invalid page geometry")

// ratioTolerance is the relative tolerance under which two aspect ratios count
// as equal for the CONTAIN_CENTERED / EXACT_FILL tie-break.
const ratioTolerance = 1e-9

// Orientation selects how a profile's sides map onto width and height.
type Orientation int

const (
	// Portrait puts the shorter side horizontally.
	Portrait Orientation = iota
	// Landscape puts the longer side horizontally.
	Landscape
)

// Policy is the rule mapping raster pixels onto a page's content box.
type Policy int

const (
	// StretchFitWidth scales the raster to the content width; height follows
	// the raster's aspect ratio and may overflow the page.
	StretchFitWidth Policy = iota
	// ContainCentered scales the raster to the largest size fitting the
	// content box and centers it.
	ContainCentered
	// ExactFill forces the raster onto the content box, ignoring its ratio.
	ExactFill
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case StretchFitWidth:
		return "stretch-fit-width"
	case ContainCentered:
		return "contain-centered"
	case ExactFill:
		return "exact-fill"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Profile describes a physical page.
type Profile struct {
	Width       float64 // mm
	Height      float64 // mm
	Orientation Orientation
	Margin      float64 // mm, applied to all sides
}

// Size returns the page width and height after applying the orientation.
func (p Profile) Size() (w, h float64) {
	short, long := math.Min(p.Width, p.Height), math.Max(p.Width, p.Height)
	if p.Orientation == Landscape {
		return long, short
	}
	return short, long
}

// Rect is an axis-aligned rectangle in millimeters.
type Rect struct {
	X, Y, W, H float64
}

// Band is a horizontal strip of source raster rows, [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// Page is one output page with the raster region placed on it.
type Page struct {
	Width, Height float64 // page size, mm
	Placement     Rect
	Source        Band
}

// Result is the ordered list of composed pages.
type Result struct {
	Policy Policy
	Pages  []Page
}

// Options tunes composition.
type Options struct {
	// Paginate splits a StretchFitWidth raster that is taller than the content
	// box into consecutive pages. Ignored by the other policies.
	Paginate bool
}

// Compose places a raster of pxW x pxH pixels on pages described by profile.
func Compose(pxW, pxH int, profile Profile, policy Policy, opts Options) (Result, error) {
	if pxW <= 0 || pxH <= 0 {
		return Result{}, fmt.Errorf("%w: raster %dx%d px", ErrInvalidGeometry, pxW, pxH)
	}
	pw, ph := profile.Size()
	if !positive(pw) || !positive(ph) {
		return Result{}, fmt.Errorf("%w: page %vx%v mm", ErrInvalidGeometry, pw, ph)
	}
	m := profile.Margin
	if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return Result{}, fmt.Errorf("%w: margin %v mm", ErrInvalidGeometry, m)
	}
	content := Rect{X: m, Y: m, W: pw - 2*m, H: ph - 2*m}
	if content.W <= 0 || content.H <= 0 {
		return Result{}, fmt.Errorf("%w: margin %v mm leaves no content area on %vx%v mm", ErrInvalidGeometry, m, pw, ph)
	}

	full := Band{Y0: 0, Y1: pxH}
	single := func(r Rect) Result {
		return Result{Policy: policy, Pages: []Page{{Width: pw, Height: ph, Placement: r, Source: full}}}
	}

	switch policy {
	case StretchFitWidth:
		h := content.W * float64(pxH) / float64(pxW)
		if opts.Paginate && h > content.H {
			return paginate(pxW, pxH, pw, ph, content, policy), nil
		}
		return single(Rect{X: content.X, Y: content.Y, W: content.W, H: h}), nil

	case ContainCentered:
		if sameRatio(float64(pxW)/float64(pxH), content.W/content.H) {
			return single(content), nil
		}
		s := math.Min(content.W/float64(pxW), content.H/float64(pxH))
		w, h := float64(pxW)*s, float64(pxH)*s
		return single(Rect{
			X: content.X + (content.W-w)/2,
			Y: content.Y + (content.H-h)/2,
			W: w,
			H: h,
		}), nil

	case ExactFill:
		return single(content), nil
	}

	return Result{}, fmt.Errorf("%w: unknown fit policy %v", ErrInvalidGeometry, policy)
}

// paginate slices the raster into bands that each fill at most one content box
// at the stretch scale.
func paginate(pxW, pxH int, pw, ph float64, content Rect, policy Policy) Result {
	mmPerPx := content.W / float64(pxW)
	rows := int(math.Floor(content.H/mmPerPx + ratioTolerance))
	if rows < 1 {
		rows = 1
	}

	res := Result{Policy: policy}
	for y0 := 0; y0 < pxH; y0 += rows {
		y1 := min(y0+rows, pxH)
		res.Pages = append(res.Pages, Page{
			Width:  pw,
			Height: ph,
			Placement: Rect{
				X: content.X,
				Y: content.Y,
				W: content.W,
				H: float64(y1-y0) * mmPerPx,
			},
			Source: Band{Y0: y0, Y1: y1},
		})
	}
	return res
}

func sameRatio(a, b float64) bool {
	return math.Abs(a-b) <= ratioTolerance*math.Max(a, b)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
