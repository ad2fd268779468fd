package compose

// Notes:
// - Compose is pure, so every property is checked on concrete inputs: no fakes.
// - Float comparisons use a 1e-9 mm tolerance; EXACT_FILL and the tie-break are
//   checked with == because they must not introduce rounding at all.

import (
	"errors"
	"math"
	"testing"
)

const tol = 1e-9

var (
	a4 = Profile{Width: 210, Height: 297}
	a6 = Profile{Width: 105, Height: 148}
)

func near(a, b float64) bool {
	return math.Abs(a-b) <= tol
}

// ---------------------------------------------------------------------------
// TestProfile_Size - Orientation Handling
// ---------------------------------------------------------------------------

func TestProfile_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		p      Profile
		wantW  float64
		wantH  float64
	}{
		{"portrait keeps short side horizontal", Profile{Width: 210, Height: 297}, 210, 297},
		{"portrait normalizes swapped input", Profile{Width: 297, Height: 210}, 210, 297},
		{"landscape swaps sides", Profile{Width: 210, Height: 297, Orientation: Landscape}, 297, 210},
		{"square unaffected", Profile{Width: 100, Height: 100, Orientation: Landscape}, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, h := tt.p.Size()
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Size() = %vx%v, want %vx%v", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCompose_StretchFitWidth - Variable-Length Documents
// ---------------------------------------------------------------------------

func TestCompose_StretchFitWidth(t *testing.T) {
	t.Parallel()

	t.Run("tall raster overflows a single A4 page", func(t *testing.T) {
		t.Parallel()

		// 800x1800 CSS px captured at scale 2.
		res, err := Compose(1600, 3600, a4, StretchFitWidth, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Pages) != 1 {
			t.Fatalf("pages = %d, want 1", len(res.Pages))
		}
		p := res.Pages[0]
		if p.Placement.W != 210 {
			t.Errorf("placed width = %v, want 210", p.Placement.W)
		}
		if !near(p.Placement.H, 472.5) {
			t.Errorf("placed height = %v, want 472.5", p.Placement.H)
		}
		if p.Placement.H <= p.Height {
			t.Errorf("placed height %v should exceed page height %v", p.Placement.H, p.Height)
		}
		if p.Source != (Band{Y0: 0, Y1: 3600}) {
			t.Errorf("source = %+v, want full raster", p.Source)
		}
	})

	t.Run("margin narrows the content width", func(t *testing.T) {
		t.Parallel()

		p := a4
		p.Margin = 2
		res, err := Compose(1000, 1000, p, StretchFitWidth, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := res.Pages[0].Placement
		want := Rect{X: 2, Y: 2, W: 206, H: 206}
		if got != want {
			t.Errorf("placement = %+v, want %+v", got, want)
		}
	})
}

// ---------------------------------------------------------------------------
// TestCompose_Paginate - Multi-Page Split
// ---------------------------------------------------------------------------

func TestCompose_Paginate(t *testing.T) {
	t.Parallel()

	t.Run("bands cover every row exactly once", func(t *testing.T) {
		t.Parallel()

		const pxW, pxH = 1600, 3600
		res, err := Compose(pxW, pxH, a4, StretchFitWidth, Options{Paginate: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Pages) != 2 {
			t.Fatalf("pages = %d, want 2", len(res.Pages))
		}

		next := 0
		for i, p := range res.Pages {
			if p.Source.Y0 != next {
				t.Errorf("page %d starts at row %d, want %d", i, p.Source.Y0, next)
			}
			if p.Placement.H > p.Height+tol {
				t.Errorf("page %d placement height %v exceeds page %v", i, p.Placement.H, p.Height)
			}
			if p.Placement.Y != 0 {
				t.Errorf("page %d placement y = %v, want 0", i, p.Placement.Y)
			}
			next = p.Source.Y1
		}
		if next != pxH {
			t.Errorf("last band ends at %d, want %d", next, pxH)
		}
	})

	t.Run("short raster stays on one page", func(t *testing.T) {
		t.Parallel()

		res, err := Compose(1000, 500, a4, StretchFitWidth, Options{Paginate: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Pages) != 1 {
			t.Errorf("pages = %d, want 1", len(res.Pages))
		}
	})

	t.Run("ignored by other policies", func(t *testing.T) {
		t.Parallel()

		res, err := Compose(1600, 3600, a4, ContainCentered, Options{Paginate: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Pages) != 1 {
			t.Errorf("pages = %d, want 1", len(res.Pages))
		}
	})
}

// ---------------------------------------------------------------------------
// TestCompose_ContainCentered - Aspect Ratio and Centering
// ---------------------------------------------------------------------------

func TestCompose_ContainCentered(t *testing.T) {
	t.Parallel()

	sizes := []struct{ w, h int }{
		{1600, 3600}, // taller than A4
		{3000, 1000}, // wide
		{1188, 1677}, // near A6 ratio
		{1, 1},
		{7919, 104729},
	}
	profiles := []Profile{a4, a6, {Width: 210, Height: 297, Orientation: Landscape, Margin: 5}}

	for _, p := range profiles {
		for _, s := range sizes {
			res, err := Compose(s.w, s.h, p, ContainCentered, Options{})
			if err != nil {
				t.Fatalf("Compose(%dx%d, %+v): %v", s.w, s.h, p, err)
			}
			page := res.Pages[0]
			r := page.Placement

			wantRatio := float64(s.w) / float64(s.h)
			if math.Abs(r.W/r.H-wantRatio) > 1e-9*wantRatio {
				t.Errorf("%dx%d on %+v: ratio %v, want %v", s.w, s.h, p, r.W/r.H, wantRatio)
			}

			left := r.X
			right := page.Width - (r.X + r.W)
			if !near(left, right) {
				t.Errorf("%dx%d on %+v: left margin %v != right margin %v", s.w, s.h, p, left, right)
			}
			top := r.Y
			bottom := page.Height - (r.Y + r.H)
			if !near(top, bottom) {
				t.Errorf("%dx%d on %+v: top margin %v != bottom margin %v", s.w, s.h, p, top, bottom)
			}
			if r.W > page.Width-2*p.Margin+tol || r.H > page.Height-2*p.Margin+tol {
				t.Errorf("%dx%d on %+v: placement %+v exceeds content box", s.w, s.h, p, r)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// TestCompose_ExactFill - Fixed Card Output
// ---------------------------------------------------------------------------

func TestCompose_ExactFill(t *testing.T) {
	t.Parallel()

	t.Run("card raster fills A6 edge to edge", func(t *testing.T) {
		t.Parallel()

		// 396x559 CSS px at scale 3.
		res, err := Compose(1188, 1677, a6, ExactFill, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Pages) != 1 {
			t.Fatalf("pages = %d, want 1", len(res.Pages))
		}
		p := res.Pages[0]
		if p.Width != 105 || p.Height != 148 {
			t.Errorf("page = %vx%v, want 105x148", p.Width, p.Height)
		}
		if p.Placement != (Rect{X: 0, Y: 0, W: 105, H: 148}) {
			t.Errorf("placement = %+v, want full page", p.Placement)
		}
	})

	t.Run("ignores raster ratio", func(t *testing.T) {
		t.Parallel()

		for _, s := range []struct{ w, h int }{{10, 1000}, {1000, 10}, {333, 777}} {
			res, err := Compose(s.w, s.h, a4, ExactFill, Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			r := res.Pages[0].Placement
			if r.W != 210 || r.H != 297 {
				t.Errorf("%dx%d: placement %vx%v, want 210x297", s.w, s.h, r.W, r.H)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// TestCompose_TieBreak - Matching Ratios
// ---------------------------------------------------------------------------

func TestCompose_TieBreak(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		w, h    int
		profile Profile
	}{
		{"A4 ratio raster", 2100, 2970, a4},
		{"A6 ratio raster", 1050, 1480, a6},
		{"landscape with margin", 2870, 2000, Profile{Width: 210, Height: 297, Orientation: Landscape, Margin: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			contain, err := Compose(tt.w, tt.h, tt.profile, ContainCentered, Options{})
			if err != nil {
				t.Fatalf("contain: %v", err)
			}
			fill, err := Compose(tt.w, tt.h, tt.profile, ExactFill, Options{})
			if err != nil {
				t.Fatalf("fill: %v", err)
			}
			if contain.Pages[0].Placement != fill.Pages[0].Placement {
				t.Errorf("contain %+v != fill %+v", contain.Pages[0].Placement, fill.Pages[0].Placement)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCompose_Deterministic - Purity
// ---------------------------------------------------------------------------

func TestCompose_Deterministic(t *testing.T) {
	t.Parallel()

	for _, policy := range []Policy{StretchFitWidth, ContainCentered, ExactFill} {
		first, err := Compose(1234, 5678, a4, policy, Options{Paginate: true})
		if err != nil {
			t.Fatalf("%v: %v", policy, err)
		}
		for range 10 {
			again, err := Compose(1234, 5678, a4, policy, Options{Paginate: true})
			if err != nil {
				t.Fatalf("%v: %v", policy, err)
			}
			if len(again.Pages) != len(first.Pages) {
				t.Fatalf("%v: page count changed", policy)
			}
			for i := range again.Pages {
				if again.Pages[i] != first.Pages[i] {
					t.Errorf("%v: page %d changed: %+v vs %+v", policy, i, again.Pages[i], first.Pages[i])
				}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// TestCompose_InvalidGeometry - Error Paths
// ---------------------------------------------------------------------------

func TestCompose_InvalidGeometry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		w, h    int
		profile Profile
		policy  Policy
	}{
		{"zero raster width", 0, 10, a4, ExactFill},
		{"negative raster height", 10, -1, a4, ExactFill},
		{"zero page", 10, 10, Profile{}, ExactFill},
		{"infinite page", 10, 10, Profile{Width: math.Inf(1), Height: 10}, ExactFill},
		{"negative margin", 10, 10, Profile{Width: 210, Height: 297, Margin: -1}, ExactFill},
		{"margin eats page", 10, 10, Profile{Width: 210, Height: 297, Margin: 105}, ExactFill},
		{"unknown policy", 10, 10, a4, Policy(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Compose(tt.w, tt.h, tt.profile, tt.policy, Options{})
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("error = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}
