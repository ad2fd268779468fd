package emit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/alnah/go-snap2pdf/internal/dateutil"
	"github.com/alnah/go-snap2pdf/internal/fileutil"
)

// DefaultName is used when a template is empty or expands to nothing.
const DefaultName = "capture"

// placeholder matches {id}, {date}, {time} and their {date:FORMAT} forms.
var placeholder = regexp.MustCompile(`\{(id|date|time)(?::([^{}]+))?\}`)

// Expand renders a filename template with the identifier and creation time
// of a capture request and returns a sanitized name carrying the extension
// of f. Unknown braces are kept as literal text.
//
// Examples:
//   - "Coupon-{id}" -> "Coupon-42.pdf"
//   - "invoice-{date:compact}-{time}" -> "invoice-20250307-090503.pdf"
func Expand(tmpl, id string, createdAt time.Time, f Format) (string, error) {
	var expandErr error
	name := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		key, layout := sub[1], sub[2]
		switch key {
		case "id":
			return id
		case "date":
			if layout == "" {
				layout = dateutil.DefaultDateFormat
			}
		case "time":
			if layout == "" {
				layout = dateutil.DefaultTimeFormat
			}
		}
		s, err := dateutil.Format(createdAt, layout)
		if err != nil && expandErr == nil {
			expandErr = fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, m, err)
		}
		return s
	})
	if expandErr != nil {
		return "", expandErr
	}

	name = strings.TrimSuffix(name, f.Ext())
	if upper := strings.ToUpper(f.Ext()); strings.HasSuffix(name, upper) {
		name = strings.TrimSuffix(name, upper)
	}

	clean, err := fileutil.SanitizeFilename(name)
	if err != nil {
		clean = DefaultName
	}
	return clean + f.Ext(), nil
}
