// Package assetgate waits for the image assets of an isolated subtree to reach
// a terminal load state.
//
// Await never fails: every asset ends up either loaded or failed, and the
// aggregate returns no later than the timeout after the last asset started
// waiting. Pending assets are waited on concurrently.
package assetgate

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds Await when the caller passes a non-positive timeout.
const DefaultTimeout = 10 * time.Second

// Failure reasons recorded on manifest entries.
const (
	ReasonTimeout   = "timeout"
	ReasonCanceled  = "canceled"
	ReasonBroken    = "broken"
	ReasonError     = "load error"
	ReasonUnsettled = "wait returned without settling"
)

// State is the load state of one asset.
type State int

const (
	Pending State = iota
	Loaded
	Failed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Asset is one image-bearing element inside the isolated subtree.
type Asset interface {
	// Source identifies the asset, usually its resolved URL.
	Source() string
	// Status reports the state observed at enumeration time: Loaded for an
	// already decoded image, Failed for a broken one, Pending otherwise.
	Status() State
	// Wait blocks until the asset fires its load or error event, or ctx ends.
	Wait(ctx context.Context) (State, error)
}

// Entry is the recorded outcome of one asset.
type Entry struct {
	Source  string
	State   State
	Reason  string
	Elapsed time.Duration
}

// Manifest is the all-terminal result of Await, in enumeration order.
type Manifest struct {
	Entries []Entry
	Elapsed time.Duration
}

// Len returns the number of entries.
func (m Manifest) Len() int { return len(m.Entries) }

// Count returns how many entries are in state s.
func (m Manifest) Count(s State) int {
	n := 0
	for _, e := range m.Entries {
		if e.State == s {
			n++
		}
	}
	return n
}

// Terminal reports whether no entry is pending.
func (m Manifest) Terminal() bool { return m.Count(Pending) == 0 }

// TimedOut returns the entries that failed because the deadline passed.
func (m Manifest) TimedOut() []Entry {
	var out []Entry
	for _, e := range m.Entries {
		if e.State == Failed && e.Reason == ReasonTimeout {
			out = append(out, e)
		}
	}
	return out
}

type outcome struct {
	index   int
	state   State
	reason  string
	elapsed time.Duration
}

// Await resolves every asset. Already settled assets are recorded at once;
// the rest are waited on in parallel until they settle or timeout elapses.
// Assets still pending at the deadline are recorded Failed with ReasonTimeout.
func Await(ctx context.Context, assets []Asset, timeout time.Duration) Manifest {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := time.Now()

	m := Manifest{Entries: make([]Entry, len(assets))}
	var pending []int
	for i, a := range assets {
		e := Entry{Source: a.Source(), State: a.Status()}
		switch e.State {
		case Loaded:
		case Failed:
			e.Reason = ReasonBroken
		default:
			e.State = Pending
			pending = append(pending, i)
		}
		m.Entries[i] = e
	}
	if len(pending) == 0 {
		m.Elapsed = time.Since(start)
		return m
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so that waits finishing after the deadline never block.
	results := make(chan outcome, len(pending))
	for _, i := range pending {
		go func(i int) {
			st, err := assets[i].Wait(waitCtx)
			results <- settle(waitCtx, i, st, err, time.Since(start))
		}(i)
	}

	for remaining := len(pending); remaining > 0; remaining-- {
		select {
		case r := <-results:
			m.Entries[r.index].State = r.state
			m.Entries[r.index].Reason = r.reason
			m.Entries[r.index].Elapsed = r.elapsed
		case <-waitCtx.Done():
			reason := ReasonTimeout
			if ctx.Err() != nil {
				reason = ReasonCanceled
			}
			elapsed := time.Since(start)
			for i := range m.Entries {
				if m.Entries[i].State == Pending {
					m.Entries[i].State = Failed
					m.Entries[i].Reason = reason
					m.Entries[i].Elapsed = elapsed
				}
			}
			m.Elapsed = elapsed
			return m
		}
	}

	m.Elapsed = time.Since(start)
	return m
}

// settle maps the return of one Wait onto a terminal outcome.
func settle(ctx context.Context, i int, st State, err error, elapsed time.Duration) outcome {
	o := outcome{index: i, state: st, elapsed: elapsed}
	switch {
	case err != nil:
		o.state = Failed
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			o.reason = ReasonTimeout
		case errors.Is(err, context.Canceled):
			o.reason = ReasonCanceled
		default:
			o.reason = err.Error()
		}
	case st == Failed:
		o.reason = ReasonError
	case st != Loaded:
		o.state = Failed
		o.reason = ReasonUnsettled
	}
	return o
}
