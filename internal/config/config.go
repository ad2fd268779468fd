// Package config loads snap2pdf capture settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/alnah/go-snap2pdf/internal/fileutil"
	"github.com/alnah/go-snap2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength        = 4096
	MaxURLLength         = 2048 // Browser limit
	MaxSelectorLength    = 1024
	MaxNameLength        = 255 // Filename template
	MaxPageSizeLength    = 32  // "a4" or "210x297"
	MaxOrientationLength = 10  // "portrait", "landscape"
	MaxFitLength         = 20  // "stretch-fit-width"
	MaxColorLength       = 7   // "#rrggbb"
	MaxPresetLength      = 20
	MaxFixedLength       = 16 // "396x559"
	MaxDurationLength    = 20 // "1m30s"
)

// Numeric limits.
const (
	MaxScale         = 10
	MaxWorkers       = 8
	MaxViewportWidth = 8192
)

var fixedPattern = regexp.MustCompile(`^[1-9][0-9]{0,4}x[1-9][0-9]{0,4}$`)

// Config holds all settings a capture can take from a file.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Capture CaptureConfig `yaml:"capture"`
	Page    PageConfig    `yaml:"page"`
	Browser BrowserConfig `yaml:"browser"`
}

// OutputConfig defines where and how artifacts are delivered.
type OutputConfig struct {
	Dir    string `yaml:"dir"`    // Empty = current directory; "-" = stdout
	Name   string `yaml:"name"`   // Filename template, {id} {date} {time}
	Format string `yaml:"format"` // "pdf" (default) or "png"
}

// CaptureConfig defines what is captured and how it is rasterized.
type CaptureConfig struct {
	Preset       string  `yaml:"preset"`       // "coupon", "invoice", "redeemed"
	Selector     string  `yaml:"selector"`     // CSS selector of the subtree (default: body)
	Fixed        string  `yaml:"fixed"`        // "WxH" CSS pixels; empty = natural
	Scale        float64 `yaml:"scale"`        // 0 = default (2)
	Background   string  `yaml:"background"`   // "#rgb" or "#rrggbb"
	AssetTimeout string  `yaml:"assetTimeout"` // Go duration, e.g. "10s"
	BaseURL      string  `yaml:"baseURL"`      // Base for relative asset URLs of file sources
	MaxDimension int     `yaml:"maxDimension"` // 0 = default (16384)
	AllowTainted bool    `yaml:"allowTainted"`
}

// PageConfig defines the page profile and fit policy.
type PageConfig struct {
	Size        string  `yaml:"size"`        // "a4", "a5", "a6", "letter", "legal" or "WxH" mm
	Orientation string  `yaml:"orientation"` // "portrait" (default), "landscape"
	Margin      float64 `yaml:"margin"`      // millimeters
	Fit         string  `yaml:"fit"`         // "stretch-fit-width", "contain-centered", "exact-fill"
	Paginate    bool    `yaml:"paginate"`
}

// BrowserConfig defines headless browser settings.
type BrowserConfig struct {
	Timeout       string `yaml:"timeout"`       // Page load timeout, Go duration
	ViewportWidth int    `yaml:"viewportWidth"` // CSS pixels; 0 = default
	Workers       int    `yaml:"workers"`       // Parallel captures; 0 = auto
}

// AssetTimeoutDuration parses capture.assetTimeout; zero when unset.
func (c *Config) AssetTimeoutDuration() (time.Duration, error) {
	return parseDuration("capture.assetTimeout", c.Capture.AssetTimeout)
}

// BrowserTimeoutDuration parses browser.timeout; zero when unset.
func (c *Config) BrowserTimeoutDuration() (time.Duration, error) {
	return parseDuration("browser.timeout", c.Browser.Timeout)
}

// Validate checks field lengths and ranges. Called automatically by
// LoadConfig, but available for consumers who construct Config manually.
// Values with a richer grammar (page size, fit, background, preset) are
// validated again when the capture request is built.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"output.dir", c.Output.Dir, MaxPathLength},
		{"output.name", c.Output.Name, MaxNameLength},
		{"capture.preset", c.Capture.Preset, MaxPresetLength},
		{"capture.selector", c.Capture.Selector, MaxSelectorLength},
		{"capture.fixed", c.Capture.Fixed, MaxFixedLength},
		{"capture.background", c.Capture.Background, MaxColorLength},
		{"capture.assetTimeout", c.Capture.AssetTimeout, MaxDurationLength},
		{"capture.baseURL", c.Capture.BaseURL, MaxURLLength},
		{"page.size", c.Page.Size, MaxPageSizeLength},
		{"page.orientation", c.Page.Orientation, MaxOrientationLength},
		{"page.fit", c.Page.Fit, MaxFitLength},
		{"browser.timeout", c.Browser.Timeout, MaxDurationLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	switch strings.ToLower(c.Output.Format) {
	case "", "pdf", "png":
	default:
		return fmt.Errorf("%w: output.format %q (must be pdf or png)", ErrInvalidValue, c.Output.Format)
	}
	switch strings.ToLower(c.Page.Orientation) {
	case "", "portrait", "landscape":
	default:
		return fmt.Errorf("%w: page.orientation %q (must be portrait or landscape)", ErrInvalidValue, c.Page.Orientation)
	}
	if c.Capture.Fixed != "" && !fixedPattern.MatchString(c.Capture.Fixed) {
		return fmt.Errorf("%w: capture.fixed %q (want WxH in pixels)", ErrInvalidValue, c.Capture.Fixed)
	}

	if c.Capture.Scale < 0 || c.Capture.Scale > MaxScale {
		return fmt.Errorf("%w: capture.scale must be between 0 and %d, got %g", ErrInvalidValue, MaxScale, c.Capture.Scale)
	}
	if c.Capture.MaxDimension < 0 {
		return fmt.Errorf("%w: capture.maxDimension must not be negative, got %d", ErrInvalidValue, c.Capture.MaxDimension)
	}
	if c.Page.Margin < 0 {
		return fmt.Errorf("%w: page.margin must not be negative, got %g", ErrInvalidValue, c.Page.Margin)
	}
	if c.Browser.Workers < 0 || c.Browser.Workers > MaxWorkers {
		return fmt.Errorf("%w: browser.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Browser.Workers)
	}
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportWidth > MaxViewportWidth {
		return fmt.Errorf("%w: browser.viewportWidth must be between 0 and %d, got %d", ErrInvalidValue, MaxViewportWidth, c.Browser.ViewportWidth)
	}

	if _, err := c.AssetTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.BrowserTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidValue, field, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidValue, field, s)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a configuration that leaves every setting to the
// library defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !strings.ContainsAny(nameOrPath, "/\\") {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := yamlutil.DecodeFile(configPath, &cfg); err != nil {
		var pathErr *fs.PathError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		case errors.As(err, &pathErr):
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SearchPaths returns the candidate files for a config name, in lookup
// order: current directory, then the user config directory.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, "go-snap2pdf", name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file among SearchPaths.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
