package emit

import (
	"fmt"
	"strings"
)

// Format is the artifact encoding.
type Format int

const (
	// PDF embeds the raster into pages of the composite result.
	PDF Format = iota
	// PNG writes the raster alone; page geometry is ignored.
	PNG
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case PDF:
		return "pdf"
	case PNG:
		return "png"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + f.String() }

// MediaType returns the IANA media type of the format.
func (f Format) MediaType() string {
	if f == PNG {
		return "image/png"
	}
	return "application/pdf"
}

// ParseFormat parses a format name. The empty string yields PDF.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return PDF, nil
	case "png":
		return PNG, nil
	}
	return 0, fmt.Errorf("%w: unknown format %q (must be pdf or png)", ErrInvalidFormat, s)
}
