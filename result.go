package snap2pdf

import (
	"fmt"
	"strings"
	"time"
)

// Result describes a completed capture.
type Result struct {
	Artifact Artifact
	Raster   RasterInfo
	Pages    []Page
	// Assets lists every image of the captured subtree in document order.
	Assets []AssetStatus
	// Warnings are non-fatal conditions, asset timeouts among them.
	Warnings []Warning
	Duration time.Duration
}

// HasWarning reports whether the result carries a warning of kind k.
func (r *Result) HasWarning(k Kind) bool {
	for _, w := range r.Warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// Artifact is the delivered file.
type Artifact struct {
	Name      string
	Location  string // path written, or "-" for a stream
	Format    Format
	MediaType string
	Pages     int
	Data      []byte
}

// RasterInfo describes the pixel buffer the artifact was encoded from.
type RasterInfo struct {
	Width, Height  int
	Scale          float64 // scale used after the max-dimension cap
	RequestedScale float64
	// Reloaded lists cross-origin sources recovered by an anonymous reload.
	Reloaded []string
}

// Page is one composed page. Sizes are in millimeters from the top-left
// corner; SourceTop and SourceBottom are the raster rows placed on it.
type Page struct {
	Width, Height float64
	X, Y, W, H    float64
	SourceTop     int
	SourceBottom  int
}

// AssetStatus is the settled state of one image.
type AssetStatus struct {
	Source  string
	State   string // "loaded" or "failed"
	Reason  string
	Elapsed time.Duration
}

// Warning is a condition that did not stop the capture.
type Warning struct {
	Kind    Kind // KindAssetTimeout, or KindNone for advisory notes
	Msg     string
	Sources []string
}

func (w Warning) String() string {
	s := w.Kind.String() + ": " + w.Msg
	if len(w.Sources) > 0 {
		s += fmt.Sprintf(" (%s)", strings.Join(w.Sources, ", "))
	}
	return s
}
