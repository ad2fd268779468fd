package hints

// Notes:
// - Runtime detection tests cannot use t.Parallel() because they:
//   1. Use t.Setenv() which modifies process environment
//   2. Point the package-level dockerenv marker at a temp file
// These are acceptable gaps: we test observable behavior through environment manipulation.

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setRuntime clears every detection variable and makes the Docker marker
// present or absent.
func setRuntime(t *testing.T, docker bool) {
	t.Helper()
	for _, k := range append([]string{"SNAP2PDF_CONTAINER", "container", "KUBERNETES_SERVICE_HOST",
		"ROD_NO_SANDBOX", "ROD_BROWSER_BIN"}, ciVars...) {
		t.Setenv(k, "")
	}

	marker := filepath.Join(t.TempDir(), ".dockerenv")
	if docker {
		if err := os.WriteFile(marker, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	orig := dockerenv
	t.Cleanup(func() { dockerenv = orig })
	dockerenv = marker
}

// ---------------------------------------------------------------------------
// TestDetectRuntime - Container and CI Signals
// ---------------------------------------------------------------------------

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name       string
		docker     bool
		env        map[string]string
		wantSignal string
		wantCI     bool
		wantNoSbx  bool
	}{
		{name: "bare host"},
		{name: "docker marker", docker: true, wantSignal: "/.dockerenv"},
		{name: "explicit override wins", docker: true, env: map[string]string{"SNAP2PDF_CONTAINER": "1"}, wantSignal: "SNAP2PDF_CONTAINER=1"},
		{name: "podman", env: map[string]string{"container": "podman"}, wantSignal: "container=podman"},
		{name: "kubernetes", env: map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1"}, wantSignal: "KUBERNETES_SERVICE_HOST"},
		{name: "ci", env: map[string]string{"GITLAB_CI": "true"}, wantCI: true},
		{name: "sandbox disabled", env: map[string]string{"ROD_NO_SANDBOX": "1"}, wantNoSbx: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRuntime(t, tt.docker)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			r := DetectRuntime()
			if r.Container != (tt.wantSignal != "") {
				t.Errorf("Container = %v, want %v", r.Container, tt.wantSignal != "")
			}
			if tt.wantSignal != "" && !strings.HasSuffix(r.ContainerSignal, tt.wantSignal) {
				t.Errorf("ContainerSignal = %q, want %q", r.ContainerSignal, tt.wantSignal)
			}
			if r.CI != tt.wantCI || r.NoSandbox != tt.wantNoSbx {
				t.Errorf("CI=%v NoSandbox=%v, want %v %v", r.CI, r.NoSandbox, tt.wantCI, tt.wantNoSbx)
			}
		})
	}
}

func TestRuntime_NeedsNoSandbox(t *testing.T) {
	t.Parallel()

	tests := []struct {
		r    Runtime
		want bool
	}{
		{Runtime{}, false},
		{Runtime{Container: true}, true},
		{Runtime{CI: true}, true},
		{Runtime{CI: true, NoSandbox: true}, false},
	}
	for _, tt := range tests {
		if got := tt.r.NeedsNoSandbox(); got != tt.want {
			t.Errorf("%+v.NeedsNoSandbox() = %v, want %v", tt.r, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestForBrowserConnect - Environment Detection
// ---------------------------------------------------------------------------

func TestForBrowserConnect_InCI(t *testing.T) {
	setRuntime(t, false)
	t.Setenv("CI", "true")

	hint := ForBrowserConnect()

	if !strings.HasPrefix(hint, "\n  hint: ") {
		t.Errorf("hint %q lacks prefix", hint)
	}
	for _, want := range []string{"ROD_NO_SANDBOX", "ROD_BROWSER_BIN", "snap2pdf doctor"} {
		if !strings.Contains(hint, want) {
			t.Errorf("hint %q should mention %s", hint, want)
		}
	}
}

func TestForBrowserConnect_InDocker(t *testing.T) {
	setRuntime(t, true)

	if hint := ForBrowserConnect(); !strings.Contains(hint, "ROD_NO_SANDBOX") {
		t.Error("expected ROD_NO_SANDBOX suggestion in Docker")
	}
}

func TestForBrowserConnect_AllSet(t *testing.T) {
	setRuntime(t, true)
	t.Setenv("ROD_NO_SANDBOX", "1")
	t.Setenv("ROD_BROWSER_BIN", "/usr/bin/chromium")

	want := "\n  hint: run snap2pdf doctor"
	if hint := ForBrowserConnect(); hint != want {
		t.Errorf("ForBrowserConnect() = %q, want %q", hint, want)
	}
}

// ---------------------------------------------------------------------------
// TestStaticHints - Fixed Messages
// ---------------------------------------------------------------------------

func TestStaticHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"timeout", ForTimeout(), "--timeout"},
		{"asset timeout", ForAssetTimeout(), "--asset-timeout"},
		{"output directory", ForOutputDirectory(), "writable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if !strings.HasPrefix(tt.got, "\n  hint: ") || !strings.Contains(tt.got, tt.want) {
				t.Errorf("hint = %q, want prefix and %q", tt.got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestForConfigNotFound - Suggested Paths
// ---------------------------------------------------------------------------

func TestForConfigNotFound(t *testing.T) {
	t.Parallel()

	t.Run("suggests user config path", func(t *testing.T) {
		t.Parallel()

		hint := ForConfigNotFound([]string{"work.yaml", "/home/u/.config/go-snap2pdf/work.yaml"})
		if !strings.Contains(hint, "--config") || !strings.Contains(hint, "create /home/u/.config/go-snap2pdf/work.yaml") {
			t.Errorf("hint = %q", hint)
		}
	})

	t.Run("no user path", func(t *testing.T) {
		t.Parallel()

		hint := ForConfigNotFound([]string{"work.yaml"})
		if strings.Contains(hint, "create") {
			t.Errorf("hint = %q, want no create suggestion", hint)
		}
	})
}

// ---------------------------------------------------------------------------
// TestForSelectorNotFound / TestForTainted - Capture Failures
// ---------------------------------------------------------------------------

func TestForSelectorNotFound(t *testing.T) {
	t.Parallel()

	if hint := ForSelectorNotFound("#coupon"); !strings.Contains(hint, "#coupon") {
		t.Errorf("hint = %q, want selector named", hint)
	}
	if hint := ForSelectorNotFound("body"); !strings.Contains(hint, "rendered nothing") {
		t.Errorf("hint = %q, want page-level hint", hint)
	}
}

func TestForTainted(t *testing.T) {
	t.Parallel()

	hint := ForTainted([]string{"https://cdn.example/a.png", "https://cdn.example/b.png"})
	if !strings.Contains(hint, "a.png, https://cdn.example/b.png") {
		t.Errorf("hint = %q, want sources listed", hint)
	}
	if !strings.Contains(hint, "--allow-tainted") {
		t.Errorf("hint = %q, want opt-out flag", hint)
	}
	if strings.Contains(ForTainted(nil), "cross-origin:") {
		t.Error("empty source list should not print a source prefix")
	}
}
