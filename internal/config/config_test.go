package config

// Notes:
// - TestLoadConfig_ByName changes the working directory with t.Chdir and so
//   cannot run in parallel.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return p
}

// ---------------------------------------------------------------------------
// TestLoadConfig - File Loading
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfig(""); !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("full config", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, t.TempDir(), "coupon.yaml", `output:
  dir: "./out"
  name: "Coupon-{id}"
  format: pdf
capture:
  preset: coupon
  selector: "#coupon-card"
  fixed: "396x559"
  scale: 3
  background: "#ffffff"
  assetTimeout: "15s"
  maxDimension: 8000
page:
  size: a6
  margin: 0
  fit: exact-fill
browser:
  timeout: "45s"
  viewportWidth: 1024
  workers: 2
`)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Capture.Selector != "#coupon-card" || cfg.Capture.Scale != 3 || cfg.Capture.Fixed != "396x559" {
			t.Errorf("Capture = %+v", cfg.Capture)
		}
		if cfg.Page.Size != "a6" || cfg.Page.Fit != "exact-fill" {
			t.Errorf("Page = %+v", cfg.Page)
		}
		if cfg.Output.Name != "Coupon-{id}" || cfg.Browser.Workers != 2 {
			t.Errorf("Output = %+v, Browser = %+v", cfg.Output, cfg.Browser)
		}
		if d, _ := cfg.AssetTimeoutDuration(); d != 15*time.Second {
			t.Errorf("AssetTimeoutDuration() = %v, want 15s", d)
		}
		if d, _ := cfg.BrowserTimeoutDuration(); d != 45*time.Second {
			t.Errorf("BrowserTimeoutDuration() = %v, want 45s", d)
		}
	})

	t.Run("nonexistent file path returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfig("/nonexistent/path/config.yaml"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid YAML returns ErrConfigParse", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, t.TempDir(), "bad.yaml", "capture: [unclosed")
		if _, err := LoadConfig(path); !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("unknown field returns ErrConfigParse in strict mode", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, t.TempDir(), "typo.yaml", "capture:\n  selecter: body\n")
		if _, err := LoadConfig(path); !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid value surfaces validation error", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, t.TempDir(), "scale.yaml", "capture:\n  scale: 50\n")
		if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})
}

func TestLoadConfig_ByName(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, "invoice.yml", "page:\n  size: a4\n  margin: 2\n")

	cfg, err := LoadConfig("invoice")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Page.Margin != 2 {
		t.Errorf("Page.Margin = %g, want 2", cfg.Page.Margin)
	}

	_, err = LoadConfig("missing")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("error = %v, want ErrConfigNotFound", err)
	}
	if !strings.Contains(err.Error(), "missing.yaml") || !strings.Contains(err.Error(), "missing.yml") {
		t.Errorf("error %q does not list tried paths", err)
	}
}

// ---------------------------------------------------------------------------
// TestSearchPaths - Lookup Order
// ---------------------------------------------------------------------------

func TestSearchPaths(t *testing.T) {
	t.Parallel()

	paths := SearchPaths("work")
	if len(paths) < 2 || paths[0] != "work.yaml" || paths[1] != "work.yml" {
		t.Fatalf("SearchPaths() = %v, current directory first", paths)
	}
	for _, p := range paths[2:] {
		if !strings.Contains(p, filepath.Join("go-snap2pdf", "work")) {
			t.Errorf("user path %q not under go-snap2pdf", p)
		}
	}
}

// ---------------------------------------------------------------------------
// TestConfig_Validate - Field Rules
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "default config", mutate: func(*Config) {}},
		{name: "png format", mutate: func(c *Config) { c.Output.Format = "PNG" }},
		{name: "landscape", mutate: func(c *Config) { c.Page.Orientation = "landscape" }},
		{name: "unknown format", mutate: func(c *Config) { c.Output.Format = "jpeg" }, wantErr: ErrInvalidValue},
		{name: "unknown orientation", mutate: func(c *Config) { c.Page.Orientation = "sideways" }, wantErr: ErrInvalidValue},
		{name: "bad fixed", mutate: func(c *Config) { c.Capture.Fixed = "396X559" }, wantErr: ErrInvalidValue},
		{name: "zero fixed side", mutate: func(c *Config) { c.Capture.Fixed = "0x559" }, wantErr: ErrInvalidValue},
		{name: "negative scale", mutate: func(c *Config) { c.Capture.Scale = -1 }, wantErr: ErrInvalidValue},
		{name: "negative margin", mutate: func(c *Config) { c.Page.Margin = -2 }, wantErr: ErrInvalidValue},
		{name: "negative max dimension", mutate: func(c *Config) { c.Capture.MaxDimension = -1 }, wantErr: ErrInvalidValue},
		{name: "too many workers", mutate: func(c *Config) { c.Browser.Workers = MaxWorkers + 1 }, wantErr: ErrInvalidValue},
		{name: "viewport too wide", mutate: func(c *Config) { c.Browser.ViewportWidth = MaxViewportWidth + 1 }, wantErr: ErrInvalidValue},
		{name: "bad asset timeout", mutate: func(c *Config) { c.Capture.AssetTimeout = "soon" }, wantErr: ErrInvalidValue},
		{name: "non-positive browser timeout", mutate: func(c *Config) { c.Browser.Timeout = "0s" }, wantErr: ErrInvalidValue},
		{name: "selector too long", mutate: func(c *Config) { c.Capture.Selector = strings.Repeat("a", MaxSelectorLength+1) }, wantErr: ErrFieldTooLong},
		{name: "base URL too long", mutate: func(c *Config) { c.Capture.BaseURL = strings.Repeat("u", MaxURLLength+1) }, wantErr: ErrFieldTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFieldLength(t *testing.T) {
	t.Parallel()

	if err := validateFieldLength("f", "abc", 3); err != nil {
		t.Errorf("at limit: %v", err)
	}
	err := validateFieldLength("page.size", "abcd", 3)
	if !errors.Is(err, ErrFieldTooLong) || !strings.Contains(err.Error(), "page.size (4 chars, max 3)") {
		t.Errorf("over limit: %v", err)
	}
}
