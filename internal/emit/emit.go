// Package emit encodes a composed raster into a single artifact and delivers
// it through a Saver.
//
// Nothing reaches the Saver before encoding and verification succeed, so a
// failed emission never leaves a partial file behind.
package emit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/alnah/go-snap2pdf/internal/compose"
)

// Sentinel errors for emission.
var (
	ErrEncodingFailed  = errors.New("encoding failed")
	ErrEmptyBuffer     = errors.New("encoder produced an empty buffer")
	ErrVerifyFailed    = errors.New("encoded document does not verify")
	ErrSaveFailed      = errors.New("saving artifact failed")
	ErrInvalidFormat   = errors.New("invalid artifact format")
	ErrInvalidTemplate = errors.New("invalid filename template")
)

// Releaser releases the upstream temporaries of a capture. Close must be
// safe to call more than once.
type Releaser interface {
	Close(ctx context.Context) error
}

// Request describes one emission.
type Request struct {
	Name     string // final file name, extension included
	Format   Format
	Metadata Metadata
	// Release, when set, is closed once the raster has been encoded and again
	// on every exit path.
	Release Releaser
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

// Size returns the encoded size in bytes.
func (a *Artifact) Size() int { return len(a.Data) }

// Emitter runs encode, verify and save.
type Emitter struct {
	Saver  Saver
	Logger *slog.Logger
	// SkipVerify disables the PDF re-parse check.
	SkipVerify bool
}

// Emit encodes img as laid out by layout and saves the result.
func (e *Emitter) Emit(ctx context.Context, img *image.RGBA, layout compose.Result, req Request) (*Artifact, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	release := func() {
		if req.Release == nil {
			return
		}
		if rerr := req.Release.Close(ctx); rerr != nil {
			logger.Warn("releasing capture temporaries", "error", rerr)
		}
	}
	defer release()

	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %w: no raster", ErrEncodingFailed, ErrEmptyBuffer)
	}
	if e.Saver == nil {
		return nil, fmt.Errorf("%w: no saver configured", ErrSaveFailed)
	}

	enc, err := EncoderFor(req.Format)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img, layout, req.Metadata); err != nil {
		if errors.Is(err, ErrEncodingFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, ErrEmptyBuffer)
	}
	release()

	pages := 1
	if req.Format == PDF {
		pages = len(layout.Pages)
		if !e.SkipVerify {
			if err := VerifyPDF(buf.Bytes(), pages); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
			}
		}
	}
	logger.Debug("encoded artifact", "format", req.Format, "bytes", buf.Len(), "pages", pages, "duration", time.Since(start))

	location, err := e.Saver.Save(ctx, req.Name, buf.Bytes())
	if err != nil {
		return nil, err
	}
	logger.Info("saved artifact", "name", req.Name, "location", location, "bytes", buf.Len())

	return &Artifact{
		Name:      req.Name,
		Location:  location,
		Format:    req.Format,
		MediaType: req.Format.MediaType(),
		Pages:     pages,
		Data:      buf.Bytes(),
	}, nil
}
