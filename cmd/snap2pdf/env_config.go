package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-snap2pdf/internal/config"
)

// envPrefix namespaces every variable the CLI reads.
const envPrefix = "SNAP2PDF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath   string // SNAP2PDF_CONFIG: config file name or path
	Preset       string // SNAP2PDF_PRESET: built-in preset
	Selector     string // SNAP2PDF_SELECTOR: capture root
	OutputDir    string // SNAP2PDF_OUTPUT_DIR: artifact directory or "-"
	Name         string // SNAP2PDF_NAME: filename template
	Format       string // SNAP2PDF_FORMAT: pdf or png
	PageSize     string // SNAP2PDF_PAGE_SIZE: a4, a6, WxH...
	Background   string // SNAP2PDF_BACKGROUND: hex color
	BaseURL      string // SNAP2PDF_BASE_URL: asset base
	Timeout      string // SNAP2PDF_TIMEOUT: page load timeout
	AssetTimeout string // SNAP2PDF_ASSET_TIMEOUT: image wait bound
	Scale        float64 // SNAP2PDF_SCALE: raster scale
	Workers      int     // SNAP2PDF_WORKERS: parallel captures
}

// knownEnvVars lists valid SNAP2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"SNAP2PDF_CONFIG":        true,
	"SNAP2PDF_PRESET":        true,
	"SNAP2PDF_SELECTOR":      true,
	"SNAP2PDF_OUTPUT_DIR":    true,
	"SNAP2PDF_NAME":          true,
	"SNAP2PDF_FORMAT":        true,
	"SNAP2PDF_PAGE_SIZE":     true,
	"SNAP2PDF_BACKGROUND":    true,
	"SNAP2PDF_BASE_URL":      true,
	"SNAP2PDF_TIMEOUT":       true,
	"SNAP2PDF_ASSET_TIMEOUT": true,
	"SNAP2PDF_SCALE":         true,
	"SNAP2PDF_WORKERS":       true,
	// Read by doctor only
	"SNAP2PDF_CONTAINER": true,
}

// loadEnvConfig reads the recognized SNAP2PDF_* variables. Unparsable
// numbers are ignored; durations are validated with the rest of the config.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:   os.Getenv("SNAP2PDF_CONFIG"),
		Preset:       os.Getenv("SNAP2PDF_PRESET"),
		Selector:     os.Getenv("SNAP2PDF_SELECTOR"),
		OutputDir:    os.Getenv("SNAP2PDF_OUTPUT_DIR"),
		Name:         os.Getenv("SNAP2PDF_NAME"),
		Format:       os.Getenv("SNAP2PDF_FORMAT"),
		PageSize:     os.Getenv("SNAP2PDF_PAGE_SIZE"),
		Background:   os.Getenv("SNAP2PDF_BACKGROUND"),
		BaseURL:      os.Getenv("SNAP2PDF_BASE_URL"),
		Timeout:      os.Getenv("SNAP2PDF_TIMEOUT"),
		AssetTimeout: os.Getenv("SNAP2PDF_ASSET_TIMEOUT"),
	}

	if s := os.Getenv("SNAP2PDF_SCALE"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
			cfg.Scale = v
		}
	}
	if s := os.Getenv("SNAP2PDF_WORKERS"); s != "" {
		if w, err := strconv.Atoi(s); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized SNAP2PDF_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overlays set environment values onto cfg.
// Resulting precedence: CLI flags > env vars > config file > preset > defaults
// (CLI flags are applied later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Capture.Preset, env.Preset)
	overlay(&cfg.Capture.Selector, env.Selector)
	overlay(&cfg.Output.Dir, env.OutputDir)
	overlay(&cfg.Output.Name, env.Name)
	overlay(&cfg.Output.Format, env.Format)
	overlay(&cfg.Page.Size, env.PageSize)
	overlay(&cfg.Capture.Background, env.Background)
	overlay(&cfg.Capture.BaseURL, env.BaseURL)
	overlay(&cfg.Browser.Timeout, env.Timeout)
	overlay(&cfg.Capture.AssetTimeout, env.AssetTimeout)

	if env.Scale > 0 {
		cfg.Capture.Scale = env.Scale
	}
	if env.Workers > 0 {
		cfg.Browser.Workers = env.Workers
	}
}
