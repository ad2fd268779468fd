package emit

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// VerifyPDF parses data and checks it has wantPages pages.
func VerifyPDF(data []byte, wantPages int) error {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	if ctx.PageCount != wantPages {
		return fmt.Errorf("%w: %d pages, want %d", ErrVerifyFailed, ctx.PageCount, wantPages)
	}
	return nil
}
