package snap2pdf

import (
	"fmt"
	"slices"
	"strings"
)

// Preset is a named set of request defaults for one kind of document.
type Preset struct {
	Name        string
	Description string
	Page        PageProfile
	Fit         FitPolicy
	Dimensions  Dimensions
	Scale       float64
	Paginate    bool
	Filename    string
}

var presets = map[string]Preset{
	"coupon": {
		Name:        "coupon",
		Description: "396x559 px card filling an A6 page",
		Page:        PageProfile{Size: PageSizeA6, Orientation: OrientationPortrait},
		Fit:         FitExact,
		Dimensions:  FixedDimensions(396, 559),
		Scale:       3,
		Filename:    "Coupon-{id}",
	},
	"invoice": {
		Name:        "invoice",
		Description: "full-width A4 with 2 mm margins, split over pages",
		Page:        PageProfile{Size: PageSizeA4, Orientation: OrientationPortrait, Margin: 2},
		Fit:         FitStretch,
		Scale:       2,
		Paginate:    true,
		Filename:    "invoice-{id}",
	},
	"redeemed": {
		Name:        "redeemed",
		Description: "redeemed coupon list, full-width A4",
		Page:        PageProfile{Size: PageSizeA4, Orientation: OrientationPortrait},
		Fit:         FitStretch,
		Scale:       2,
		Filename:    "Redeemed-{id}",
	},
}

// Presets returns the built-in presets sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Preset) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Apply returns r with the preset's page, fit, dimensions, scale,
// pagination and filename.
func (p Preset) Apply(r CaptureRequest) CaptureRequest {
	r.Page = p.Page
	r.Fit = p.Fit
	r.Dimensions = p.Dimensions
	if p.Scale > 0 {
		r.Scale = p.Scale
	}
	r.Paginate = p.Paginate
	if p.Filename != "" {
		r.Filename = p.Filename
	}
	return r
}

// ApplyPreset applies the preset called name to r.
func ApplyPreset(r CaptureRequest, name string) (CaptureRequest, error) {
	p, ok := LookupPreset(name)
	if !ok {
		names := make([]string, 0, len(presets))
		for _, p := range Presets() {
			names = append(names, p.Name)
		}
		return r, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(names, ", "))
	}
	return p.Apply(r), nil
}
