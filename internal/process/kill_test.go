package process

// Notes:
// - Only PIDs that cannot match a live process are used. Real kill behavior is
//   covered by the browser integration tests, which check that closing a
//   host leaves no Chrome process behind.

import "testing"

// ---------------------------------------------------------------------------
// TestKillProcessGroup - Harmless PIDs
// ---------------------------------------------------------------------------

func TestKillProcessGroup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pid  int
	}{
		{"non-existent PID", 999999999},
		{"zero would target own group", 0},
		{"negative PID", -42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Must return without panicking or signalling the test process.
			KillProcessGroup(tt.pid)
		})
	}
}
