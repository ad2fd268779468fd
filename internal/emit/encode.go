package emit

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/alnah/go-snap2pdf/internal/compose"
)

// Metadata is written into document formats that support it.
type Metadata struct {
	Title   string
	Subject string
	Author  string
	Creator string
}

// Encoder serializes a raster laid out by a composite result.
type Encoder interface {
	Format() Format
	Encode(w io.Writer, img *image.RGBA, layout compose.Result, meta Metadata) error
}

// EncoderFor returns the encoder of format f.
func EncoderFor(f Format) (Encoder, error) {
	switch f {
	case PDF:
		return PDFEncoder{Compress: true}, nil
	case PNG:
		return PNGEncoder{}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, f)
}

// PDFEncoder writes one PDF page per composed page, each showing its source
// band of the raster at the page's placement rectangle.
type PDFEncoder struct {
	Compress bool
}

// Compile-time interface checks.
var (
	_ Encoder = PDFEncoder{}
	_ Encoder = PNGEncoder{}
)

// Format implements Encoder.
func (PDFEncoder) Format() Format { return PDF }

// Encode implements Encoder.
func (e PDFEncoder) Encode(w io.Writer, img *image.RGBA, layout compose.Result, meta Metadata) error {
	if len(layout.Pages) == 0 {
		return fmt.Errorf("%w: no pages to encode", ErrEncodingFailed)
	}
	bounds := img.Bounds()

	first := layout.Pages[0]
	r := pdf.New(w, first.Width, first.Height, &pdf.Options{
		Compress:      e.Compress,
		SubsetFonts:   true,
		ImageEncoding: canvas.Lossless,
	})
	r.SetInfo(meta.Title, meta.Subject, "", meta.Author, meta.Creator)

	for i, page := range layout.Pages {
		if i > 0 {
			r.NewPage(page.Width, page.Height)
		}
		band := page.Source
		if band.Y0 < 0 || band.Y1 > bounds.Dy() || band.Y0 >= band.Y1 {
			return fmt.Errorf("%w: page %d band [%d,%d) outside raster height %d",
				ErrEncodingFailed, i+1, band.Y0, band.Y1, bounds.Dy())
		}
		// Embedded images are cached by identity; each SubImage is a new
		// *image.RGBA over the shared pixels, so every page gets its own XObject.
		crop := img.SubImage(image.Rect(bounds.Min.X, bounds.Min.Y+band.Y0, bounds.Max.X, bounds.Min.Y+band.Y1))
		r.RenderImage(crop, placementMatrix(page, bounds.Dx(), band.Y1-band.Y0))
	}

	if err := r.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return nil
}

// placementMatrix maps image pixel space onto the placement rectangle. The
// renderer's origin is the bottom-left corner of the page, so the top-down
// placement is flipped.
func placementMatrix(page compose.Page, pxW, pxH int) canvas.Matrix {
	p := page.Placement
	return canvas.Identity.
		Translate(p.X, page.Height-p.Y-p.H).
		Scale(p.W/float64(pxW), p.H/float64(pxH))
}

// PNGEncoder writes the raster as a PNG image.
type PNGEncoder struct{}

// Format implements Encoder.
func (PNGEncoder) Format() Format { return PNG }

// Encode implements Encoder. The layout and metadata are not used.
func (PNGEncoder) Encode(w io.Writer, img *image.RGBA, _ compose.Result, _ Metadata) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return nil
}
