package snap2pdf

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire(context.Context) (*Capturer, error)
	Release(*Capturer)
	Capture(context.Context, CaptureRequest) (*Result, error)
	Size() int
	Close() error
} = (*CapturerPool)(nil)

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{name: "explicit takes priority", workers: 4, want: 4},
		{name: "explicit=1 for sequential", workers: 1, want: 1},
		{name: "explicit can exceed max", workers: 16, want: 16},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
		{
			name:    "negative uses auto calculation",
			workers: -5,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolvePoolSize(tt.workers)
			if got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func mustAcquire(t *testing.T, p *CapturerPool) *Capturer {
	t.Helper()
	c, err := p.Acquire(context.Background())
	if err != nil || c == nil {
		t.Fatalf("Acquire() = %v, %v", c, err)
	}
	return c
}

func TestCapturerPool_AcquireRelease(t *testing.T) {
	t.Parallel()

	// Browsers start on first capture, so unused capturers are cheap
	pool := NewCapturerPool(2)
	defer pool.Close()

	c1 := mustAcquire(t, pool)
	c2 := mustAcquire(t, pool)
	if c1 == c2 {
		t.Error("expected different capturer instances")
	}

	pool.Release(c1)
	if c3 := mustAcquire(t, pool); c3 != c1 {
		t.Error("expected to get back released capturer")
	}
	pool.Release(c1)
	pool.Release(c2)
}

// ---------------------------------------------------------------------------
// TestCapturerPool_AcquireWait - Exhausted Pool
// ---------------------------------------------------------------------------

func TestCapturerPool_AcquireWait(t *testing.T) {
	t.Parallel()

	t.Run("context ends the wait", func(t *testing.T) {
		t.Parallel()

		pool := NewCapturerPool(1)
		defer pool.Close()
		_ = mustAcquire(t, pool)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Acquire() = %v, want DeadlineExceeded", err)
		}
	})

	t.Run("canceled context fails fast", func(t *testing.T) {
		t.Parallel()

		pool := NewCapturerPool(1)
		defer pool.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := pool.Acquire(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Acquire() = %v, want Canceled", err)
		}
	})

	t.Run("close wakes waiters", func(t *testing.T) {
		t.Parallel()

		pool := NewCapturerPool(1)
		_ = mustAcquire(t, pool)

		errc := make(chan error, 1)
		go func() {
			_, err := pool.Acquire(context.Background())
			errc <- err
		}()
		time.Sleep(10 * time.Millisecond)
		_ = pool.Close()

		select {
		case err := <-errc:
			if !errors.Is(err, ErrCapturerClosed) {
				t.Errorf("Acquire() = %v, want ErrCapturerClosed", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("waiting Acquire not woken by Close")
		}
	})

	t.Run("release hands over to a waiter", func(t *testing.T) {
		t.Parallel()

		pool := NewCapturerPool(1)
		defer pool.Close()
		held := mustAcquire(t, pool)

		got := make(chan *Capturer, 1)
		go func() {
			c, _ := pool.Acquire(context.Background())
			got <- c
		}()
		time.Sleep(10 * time.Millisecond)
		pool.Release(held)

		select {
		case c := <-got:
			if c != held {
				t.Error("waiter did not receive the released capturer")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("waiting Acquire not served by Release")
		}
	})
}

func TestCapturerPool_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size int
		want int
	}{
		{"size 1", 1, 1},
		{"size 4", 4, 4},
		{"size 0 becomes 1", 0, 1},
		{"negative becomes 1", -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool := NewCapturerPool(tt.size)
			defer pool.Close()

			if got := pool.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestCapturerPool_HighContention verifies the pool remains deadlock-free when
// many goroutines share two capturers.
func TestCapturerPool_HighContention(t *testing.T) {
	t.Parallel()

	pool := NewCapturerPool(2)
	defer pool.Close()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				c, err := pool.Acquire(context.Background())
				if err != nil {
					t.Errorf("Acquire() = %v", err)
					return
				}
				time.Sleep(time.Duration(j%3) * time.Millisecond)
				pool.Release(c)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(30 * time.Second)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		t.Fatal("high contention test timed out - possible deadlock")
	}
}

func TestCapturerPool_Close(t *testing.T) {
	t.Parallel()

	pool := NewCapturerPool(2)
	c := mustAcquire(t, pool)

	if err := pool.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Release after close is a no-op
	pool.Release(c)
	pool.Release(nil)

	if _, err := c.Capture(context.Background(), NewCaptureRequest(Source{URL: "https://shop.example"})); err != ErrCapturerClosed {
		t.Errorf("Capture() on closed pool member = %v, want ErrCapturerClosed", err)
	}
	if _, err := pool.Capture(context.Background(), NewCaptureRequest(Source{URL: "https://shop.example"})); err != ErrCapturerClosed {
		t.Errorf("pool.Capture() after Close = %v, want ErrCapturerClosed", err)
	}
	if _, err := pool.Acquire(context.Background()); err != ErrCapturerClosed {
		t.Errorf("Acquire() after Close = %v, want ErrCapturerClosed", err)
	}
}

func TestCapturerPool_Capture(t *testing.T) {
	t.Parallel()

	doc := newFakeDocument()
	saver := &memorySaver{}
	pool := NewCapturerPool(2, withHost(&fakeHost{doc: doc}), WithSaver(saver))
	defer pool.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := urlRequest("#card")
			req.ID = string(rune('a' + i))
			_, err := pool.Capture(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Capture() error = %v", err)
		}
	}
	if len(saver.files) != 4 {
		t.Errorf("saved %d artifacts, want 4", len(saver.files))
	}
	if doc.clones() != 0 {
		t.Errorf("attached clones = %d, want 0", doc.clones())
	}
}
