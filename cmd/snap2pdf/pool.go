package main

import (
	"context"
	"fmt"

	snap2pdf "github.com/alnah/go-snap2pdf"
)

// Capturer is the capture service a batch worker holds.
type Capturer interface {
	Capture(ctx context.Context, req snap2pdf.CaptureRequest) (*snap2pdf.Result, error)
}

// Compile-time interface implementation check.
var _ Capturer = (*snap2pdf.Capturer)(nil)

// Pool abstracts capturer pool operations for testability.
type Pool interface {
	Acquire(ctx context.Context) (Capturer, error)
	Release(Capturer)
	Size() int
	Close() error
}

// poolAdapter exposes a *snap2pdf.CapturerPool as a Pool.
type poolAdapter struct {
	pool *snap2pdf.CapturerPool
}

var _ Pool = (*poolAdapter)(nil)

// Acquire keeps a nil *snap2pdf.Capturer from becoming a non-nil interface.
func (a *poolAdapter) Acquire(ctx context.Context) (Capturer, error) {
	c, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Release panics on a Capturer the pool did not hand out.
func (a *poolAdapter) Release(c Capturer) {
	rc, ok := c.(*snap2pdf.Capturer)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: unexpected type %T", c))
	}
	a.pool.Release(rc)
}

func (a *poolAdapter) Size() int { return a.pool.Size() }

func (a *poolAdapter) Close() error { return a.pool.Close() }
