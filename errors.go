package snap2pdf

import (
	"errors"

	"github.com/alnah/go-snap2pdf/internal/emit"
	"github.com/alnah/go-snap2pdf/internal/host"
	"github.com/alnah/go-snap2pdf/internal/raster"
)

// Kind classifies a capture failure.
type Kind int

// Failure kinds. KindNone marks advisory warnings.
const (
	KindNone Kind = iota
	KindSourceUnavailable
	KindAssetTimeout
	KindRasterizationFailed
	KindEncodingFailed
)

// String returns the kind name used in messages and logs.
func (k Kind) String() string {
	switch k {
	case KindSourceUnavailable:
		return "source unavailable"
	case KindAssetTimeout:
		return "asset timeout"
	case KindRasterizationFailed:
		return "rasterization failed"
	case KindEncodingFailed:
		return "encoding failed"
	}
	return "note"
}

// Sentinel errors for capture kinds, matched with errors.Is.
var (
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrAssetTimeout        = errors.New("asset timeout")
	ErrRasterizationFailed = errors.New("rasterization failed")
	ErrEncodingFailed      = errors.New("encoding failed")
)

// Host failures, re-exported so callers need not import internal packages.
var (
	ErrBrowserConnect = host.ErrBrowserConnect
	ErrPageCreate     = host.ErrPageCreate
	ErrPageLoad       = host.ErrPageLoad
)

// Stage failure details, wrapped inside a CaptureError.
var (
	ErrTainted     = raster.ErrTainted
	ErrEmptyLayout = raster.ErrEmptyLayout
	ErrSaveFailed  = emit.ErrSaveFailed
)

// Request validation errors.
var (
	ErrEmptySource        = errors.New("capture source is empty")
	ErrInvalidSourceURL   = errors.New("source URL must be http, https or file")
	ErrAmbiguousSource    = errors.New("capture source sets more than one of URL, File, HTML")
	ErrSourceNotFound     = errors.New("source file not found")
	ErrSourceTooLarge     = errors.New("source file too large")
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")
	ErrInvalidFit         = errors.New("invalid fit policy")
	ErrInvalidScale       = errors.New("invalid scale factor")
	ErrInvalidDimensions  = errors.New("invalid capture dimensions")
	ErrInvalidBackground  = errors.New("invalid background color")
	ErrInvalidTimeout     = errors.New("invalid asset timeout")
	ErrInvalidFormat      = errors.New("invalid artifact format")
	ErrInvalidFilename    = errors.New("invalid filename template")
	ErrInvalidBaseURL     = errors.New("invalid base URL")
	ErrUnknownPreset      = errors.New("unknown preset")
	ErrCapturerClosed     = errors.New("capturer is closed")
)

// CaptureError is the structured failure of one capture.
type CaptureError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *CaptureError) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *CaptureError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindSourceUnavailable:
		return ErrSourceUnavailable
	case KindAssetTimeout:
		return ErrAssetTimeout
	case KindRasterizationFailed:
		return ErrRasterizationFailed
	case KindEncodingFailed:
		return ErrEncodingFailed
	}
	return nil
}

func captureErr(kind Kind, msg string, err error) error {
	return &CaptureError{Kind: kind, Msg: msg, Err: err}
}
