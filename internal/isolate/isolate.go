// Package isolate produces a detached, layout-stable copy of a live subtree.
//
// The copy lives in a tagged off-screen container owned by exactly one Handle.
// Release removes it exactly once, whatever happened in between.
package isolate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// releaseTimeout bounds the removal script when the capture context is gone.
const releaseTimeout = 5 * time.Second

// Sentinel errors for isolation.
var (
	// ErrSourceUnavailable means nothing can be captured. DOM implementations
	// return it only when no mutation has been made. Isolate also returns it
	// when the clone lays out with zero area, after removing that clone; a
	// failed removal is joined to the error.
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrEmptySelector     = errors.New("selector cannot be empty")
)

// Dimensions is the dimension policy of the clone. The zero value is natural:
// the clone keeps the source width and grows to its full content height.
type Dimensions struct {
	Width, Height int // CSS pixels
}

// Natural returns the natural dimension policy.
func Natural() Dimensions { return Dimensions{} }

// Fixed forces the clone to w x h CSS pixels.
func Fixed(w, h int) Dimensions { return Dimensions{Width: w, Height: h} }

// IsFixed reports whether the policy forces dimensions.
func (d Dimensions) IsFixed() bool { return d.Width != 0 || d.Height != 0 }

// Validate rejects half-specified or negative fixed dimensions.
func (d Dimensions) Validate() error {
	if !d.IsFixed() {
		return nil
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d (both sides must be positive)", ErrInvalidDimensions, d.Width, d.Height)
	}
	return nil
}

// String formats the policy as "natural" or "WxH".
func (d Dimensions) String() string {
	if !d.IsFixed() {
		return "natural"
	}
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Layout is the clone's box in document coordinates, CSS pixels.
type Layout struct {
	X, Y, Width, Height float64
}

// DOM is the host capability that creates and removes clones.
type DOM interface {
	// Clone deep-copies the element matching selector into a container
	// tagged with token and returns the clone's layout. It returns an error
	// wrapping ErrSourceUnavailable, before any mutation, when the element is
	// missing, detached or has zero layout area.
	Clone(ctx context.Context, selector string, dims Dimensions, token string) (Layout, error)
	// Remove deletes every container tagged with token.
	Remove(ctx context.Context, token string) error
}

// Handle owns one clone.
type Handle struct {
	dom    DOM
	token  string
	layout Layout

	once sync.Once
	err  error
}

// Isolate clones the subtree matching selector.
func Isolate(ctx context.Context, dom DOM, selector string, dims Dimensions) (*Handle, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, ErrEmptySelector
	}
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	layout, err := dom.Clone(ctx, selector, dims, token)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			return nil, err
		}
		// The host may have appended the container before failing.
		h := &Handle{dom: dom, token: token}
		if rerr := h.Release(ctx); rerr != nil {
			return nil, errors.Join(fmt.Errorf("cloning %q: %w", selector, err), rerr)
		}
		return nil, fmt.Errorf("cloning %q: %w", selector, err)
	}
	if layout.Width <= 0 || layout.Height <= 0 {
		collapsed := fmt.Errorf("%w: clone of %q has zero layout area", ErrSourceUnavailable, selector)
		h := &Handle{dom: dom, token: token}
		if rerr := h.Release(ctx); rerr != nil {
			return nil, errors.Join(collapsed, rerr)
		}
		return nil, collapsed
	}

	return &Handle{dom: dom, token: token, layout: layout}, nil
}

// Token returns the tag of the clone's container.
func (h *Handle) Token() string { return h.token }

// Layout returns the clone's box measured right after isolation.
func (h *Handle) Layout() Layout { return h.layout }

// Release removes the clone. Only the first call runs the removal; later
// calls return its result. It still runs when ctx is already canceled.
func (h *Handle) Release(ctx context.Context) error {
	h.once.Do(func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := h.dom.Remove(rctx, h.token); err != nil {
			h.err = fmt.Errorf("removing clone %s: %w", h.token, err)
		}
	})
	return h.err
}

func newToken() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating clone token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
