// Package release collects the temporaries of one capture and releases them
// exactly once, in reverse order of acquisition.
package release

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Func releases one resource.
type Func func(ctx context.Context) error

type entry struct {
	name string
	fn   Func
}

// Scope is a LIFO set of release functions. The zero value is ready to use.
type Scope struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
	err     error
}

// New returns an empty scope.
func New() *Scope { return &Scope{} }

// Defer registers fn under name. Registering on a closed scope runs fn at once
// so that nothing acquired late can leak.
func (s *Scope) Defer(name string, fn Func) error {
	s.mu.Lock()
	if !s.closed {
		s.entries = append(s.entries, entry{name: name, fn: fn})
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := fn(context.Background()); err != nil {
		return fmt.Errorf("releasing %s: %w", name, err)
	}
	return nil
}

// Len returns the number of resources waiting for release.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Closed reports whether Close has run.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases every resource, newest first. Every function runs even if an
// earlier one fails; failures are joined. Later calls return the first
// result without running anything.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.closed = true
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		if err := entries[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("releasing %s: %w", entries[i].name, err))
		}
	}

	err := errors.Join(errs...)
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return err
}
