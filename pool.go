package snap2pdf

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// CapturerPool hands out Capturers for parallel captures. Each capturer owns
// its browser, so captures on different capturers never share a page or a
// renderer process. Capturers are built on demand, up to the pool size.
type CapturerPool struct {
	size  int
	newFn func() *Capturer

	// idle holds released capturers. Its capacity is the pool size, so a
	// Release never blocks. Close closes it to wake waiting Acquires.
	idle chan *Capturer

	mu        sync.Mutex
	capturers []*Capturer
	closed    bool
}

// NewCapturerPool creates a pool of at most n capturers built with opts.
// Nothing starts until the first Acquire.
func NewCapturerPool(n int, opts ...Option) *CapturerPool {
	n = max(n, MinPoolSize)
	return &CapturerPool{
		size:      n,
		newFn:     func() *Capturer { return NewCapturer(opts...) },
		idle:      make(chan *Capturer, n),
		capturers: make([]*Capturer, 0, n),
	}
}

// Acquire returns an idle capturer, builds a new one while the pool is below
// capacity, or waits for a Release. It fails with ErrCapturerClosed once the
// pool is closed and with ctx.Err() when ctx ends first.
func (p *CapturerPool) Acquire(ctx context.Context) (*Capturer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case c, ok := <-p.idle:
		if !ok {
			return nil, ErrCapturerClosed
		}
		return c, nil
	default:
	}

	if c, err := p.grow(); c != nil || err != nil {
		return c, err
	}

	select {
	case c, ok := <-p.idle:
		if !ok {
			return nil, ErrCapturerClosed
		}
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// grow builds a capturer when the pool has room. Construction is cheap:
// the browser starts on the capturer's first capture.
func (p *CapturerPool) grow() (*Capturer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrCapturerClosed
	}
	if len(p.capturers) >= p.size {
		return nil, nil
	}
	c := p.newFn()
	p.capturers = append(p.capturers, c)
	return c, nil
}

// Release returns a capturer to the pool. Releasing nil, or after Close,
// is a no-op.
func (p *CapturerPool) Release(c *Capturer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || c == nil {
		return
	}
	select {
	case p.idle <- c:
	default:
	}
}

// Capture runs req on a pooled capturer, waiting for one under ctx.
func (p *CapturerPool) Capture(ctx context.Context, req CaptureRequest) (*Result, error) {
	c, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(c)
	return c.Capture(ctx, req)
}

// Close closes every capturer the pool built, including ones still held by
// callers: their in-flight captures fail and later ones return
// ErrCapturerClosed. Failures are joined.
func (p *CapturerPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.idle)
	capturers := p.capturers
	p.mu.Unlock()

	var errs []error
	for _, c := range capturers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *CapturerPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs in containers
	n := runtime.GOMAXPROCS(0) / cpuDivisor
	return min(max(n, MinPoolSize), MaxPoolSize)
}
