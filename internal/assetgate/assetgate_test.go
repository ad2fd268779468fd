package assetgate

// Notes:
// - fakeAsset simulates load latency with a timer; a negative delay never
//   settles on its own, like an unreachable host that never answers.
// - Timing assertions use generous upper bounds so they hold on loaded CI
//   machines; the lower bound on the timeout case proves the gate waited.

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type fakeAsset struct {
	src     string
	initial State
	delay   time.Duration // negative: never settles
	result  State
	err     error
}

func (f *fakeAsset) Source() string { return f.src }
func (f *fakeAsset) Status() State  { return f.initial }

func (f *fakeAsset) Wait(ctx context.Context) (State, error) {
	if f.delay < 0 {
		<-ctx.Done()
		return Pending, ctx.Err()
	}
	select {
	case <-time.After(f.delay):
		return f.result, f.err
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// TestState_String - Names
// ---------------------------------------------------------------------------

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{Pending, "pending"},
		{Loaded, "loaded"},
		{Failed, "failed"},
		{State(9), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestAwait - Terminal Manifest
// ---------------------------------------------------------------------------

func TestAwait(t *testing.T) {
	t.Parallel()

	t.Run("settled assets are recorded without waiting", func(t *testing.T) {
		t.Parallel()

		assets := []Asset{
			&fakeAsset{src: "a.png", initial: Loaded, delay: -1},
			&fakeAsset{src: "b.png", initial: Failed, delay: -1},
		}

		start := time.Now()
		m := Await(context.Background(), assets, time.Minute)
		if time.Since(start) > 100*time.Millisecond {
			t.Errorf("Await waited %v on settled assets", time.Since(start))
		}
		if m.Entries[0].State != Loaded {
			t.Errorf("a.png state = %v, want loaded", m.Entries[0].State)
		}
		if m.Entries[1].State != Failed || m.Entries[1].Reason != ReasonBroken {
			t.Errorf("b.png = %+v, want failed/broken", m.Entries[1])
		}
	})

	t.Run("manifest keeps enumeration order and every entry is terminal", func(t *testing.T) {
		t.Parallel()

		assets := []Asset{
			&fakeAsset{src: "slow.png", delay: 60 * time.Millisecond, result: Loaded},
			&fakeAsset{src: "fast.png", delay: time.Millisecond, result: Loaded},
			&fakeAsset{src: "404.png", delay: 10 * time.Millisecond, result: Failed},
			&fakeAsset{src: "cached.png", initial: Loaded},
		}

		m := Await(context.Background(), assets, time.Second)
		if m.Len() != len(assets) {
			t.Fatalf("Len() = %d, want %d", m.Len(), len(assets))
		}
		if !m.Terminal() {
			t.Fatalf("manifest not terminal: %+v", m.Entries)
		}
		for i, a := range assets {
			if m.Entries[i].Source != a.Source() {
				t.Errorf("entry %d source = %q, want %q", i, m.Entries[i].Source, a.Source())
			}
		}
		if m.Count(Loaded) != 3 || m.Count(Failed) != 1 {
			t.Errorf("loaded=%d failed=%d, want 3/1", m.Count(Loaded), m.Count(Failed))
		}
		if m.Entries[2].Reason != ReasonError {
			t.Errorf("404.png reason = %q, want %q", m.Entries[2].Reason, ReasonError)
		}
	})

	t.Run("empty input yields empty manifest", func(t *testing.T) {
		t.Parallel()

		m := Await(context.Background(), nil, time.Second)
		if m.Len() != 0 || !m.Terminal() {
			t.Errorf("unexpected manifest %+v", m)
		}
	})
}

// ---------------------------------------------------------------------------
// TestAwait_Timeout - Unreachable Asset
// ---------------------------------------------------------------------------

func TestAwait_Timeout(t *testing.T) {
	t.Parallel()

	const timeout = 100 * time.Millisecond
	assets := []Asset{
		&fakeAsset{src: "logo.png", delay: 5 * time.Millisecond, result: Loaded},
		&fakeAsset{src: "https://unreachable.invalid/qr.png", delay: -1},
	}

	start := time.Now()
	m := Await(context.Background(), assets, timeout)
	elapsed := time.Since(start)

	if elapsed < timeout {
		t.Errorf("Await returned after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Errorf("Await returned after %v, far beyond the %v timeout", elapsed, timeout)
	}
	if !m.Terminal() {
		t.Fatalf("manifest not terminal: %+v", m.Entries)
	}
	if m.Entries[0].State != Loaded {
		t.Errorf("logo.png state = %v, want loaded", m.Entries[0].State)
	}
	stuck := m.Entries[1]
	if stuck.State != Failed || stuck.Reason != ReasonTimeout {
		t.Errorf("unreachable asset = %+v, want failed/timeout", stuck)
	}
	if got := m.TimedOut(); len(got) != 1 || got[0].Source != stuck.Source {
		t.Errorf("TimedOut() = %+v, want the unreachable asset", got)
	}
}

// ---------------------------------------------------------------------------
// TestAwait_Concurrent - Fan-Out
// ---------------------------------------------------------------------------

func TestAwait_Concurrent(t *testing.T) {
	t.Parallel()

	const n = 20
	const delay = 50 * time.Millisecond

	assets := make([]Asset, n)
	for i := range assets {
		assets[i] = &fakeAsset{src: "img", delay: delay, result: Loaded}
	}

	start := time.Now()
	m := Await(context.Background(), assets, 5*time.Second)
	elapsed := time.Since(start)

	// Serial waits would take n*delay = 1s.
	if elapsed > 10*delay {
		t.Errorf("Await took %v for %d parallel %v waits", elapsed, n, delay)
	}
	if m.Count(Loaded) != n {
		t.Errorf("loaded = %d, want %d", m.Count(Loaded), n)
	}
}

// ---------------------------------------------------------------------------
// TestAwait_Cancel - Parent Context
// ---------------------------------------------------------------------------

func TestAwait_Cancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	m := Await(ctx, []Asset{&fakeAsset{src: "never.png", delay: -1}}, time.Minute)
	if e := m.Entries[0]; e.State != Failed || e.Reason != ReasonCanceled {
		t.Errorf("entry = %+v, want failed/canceled", e)
	}
}

// ---------------------------------------------------------------------------
// TestSettle - Wait Result Mapping
// ---------------------------------------------------------------------------

func TestSettle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		state      State
		err        error
		wantState  State
		wantReason string
	}{
		{"loaded", Loaded, nil, Loaded, ""},
		{"error event", Failed, nil, Failed, ReasonError},
		{"deadline", Pending, context.DeadlineExceeded, Failed, ReasonTimeout},
		{"canceled", Pending, context.Canceled, Failed, ReasonCanceled},
		{"host error", Pending, errors.New("target closed"), Failed, "target closed"},
		{"misbehaving wait", Pending, nil, Failed, ReasonUnsettled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := settle(context.Background(), 0, tt.state, tt.err, 0)
			if o.state != tt.wantState || o.reason != tt.wantReason {
				t.Errorf("settle() = %v/%q, want %v/%q", o.state, o.reason, tt.wantState, tt.wantReason)
			}
		})
	}
}
