package main

import (
	"errors"
	"os"

	snap2pdf "github.com/alnah/go-snap2pdf"
	"github.com/alnah/go-snap2pdf/internal/config"
)

// Exit codes for the snap2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Every capture succeeded
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or request
	ExitIO      = 3 // Source not found, artifact not written
	ExitBrowser = 4 // Chrome could not be started or driven
	ExitCapture = 5 // Capture pipeline failure
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, snap2pdf.ErrBrowserConnect) ||
		errors.Is(err, snap2pdf.ErrPageCreate) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, snap2pdf.ErrSourceNotFound) ||
		errors.Is(err, snap2pdf.ErrSourceTooLarge) ||
		errors.Is(err, snap2pdf.ErrSaveFailed) ||
		errors.Is(err, ErrReadStdin) {
		return ExitIO
	}

	// Capture pipeline errors (exit 5)
	if errors.Is(err, snap2pdf.ErrSourceUnavailable) ||
		errors.Is(err, snap2pdf.ErrAssetTimeout) ||
		errors.Is(err, snap2pdf.ErrRasterizationFailed) ||
		errors.Is(err, snap2pdf.ErrEncodingFailed) {
		return ExitCapture
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, snap2pdf.ErrEmptySource) ||
		errors.Is(err, snap2pdf.ErrInvalidSourceURL) ||
		errors.Is(err, snap2pdf.ErrAmbiguousSource) ||
		errors.Is(err, snap2pdf.ErrInvalidPageSize) ||
		errors.Is(err, snap2pdf.ErrInvalidOrientation) ||
		errors.Is(err, snap2pdf.ErrInvalidMargin) ||
		errors.Is(err, snap2pdf.ErrInvalidFit) ||
		errors.Is(err, snap2pdf.ErrInvalidScale) ||
		errors.Is(err, snap2pdf.ErrInvalidDimensions) ||
		errors.Is(err, snap2pdf.ErrInvalidBackground) ||
		errors.Is(err, snap2pdf.ErrInvalidTimeout) ||
		errors.Is(err, snap2pdf.ErrInvalidFormat) ||
		errors.Is(err, snap2pdf.ErrInvalidFilename) ||
		errors.Is(err, snap2pdf.ErrInvalidBaseURL) ||
		errors.Is(err, snap2pdf.ErrUnknownPreset) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrSingleSourceOnly) {
		return ExitUsage
	}

	return ExitGeneral
}
