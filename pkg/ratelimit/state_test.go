package ratelimit

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type lockedOutError struct {
	after time.Duration
}

func (e *lockedOutError) Error() string             { return "too many requests" }
func (e *lockedOutError) RetryAfter() time.Duration { return e.after }

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantOK   bool
		expected time.Duration
	}{
		{
			name:   "nil error",
			err:    nil,
			wantOK: false,
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			wantOK: false,
		},
		{
			name:     "direct retry-after error",
			err:      &lockedOutError{after: 30 * time.Second},
			wantOK:   true,
			expected: 30 * time.Second,
		},
		{
			name:     "wrapped retry-after error",
			err:      fmt.Errorf("list records: %w", &lockedOutError{after: 2 * time.Second}),
			wantOK:   true,
			expected: 2 * time.Second,
		},
		{
			name:   "zero retry-after",
			err:    &lockedOutError{after: 0},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := RetryAfter(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("RetryAfter() ok = %v, want %v", ok, tt.wantOK)
			}
			if d != tt.expected {
				t.Errorf("RetryAfter() = %v, want %v", d, tt.expected)
			}
		})
	}
}

func TestLockoutState_Trip(t *testing.T) {
	var s LockoutState

	if s.Active() {
		t.Fatal("zero LockoutState should not be active")
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining() = %v, want 0", s.Remaining())
	}

	long := s.Trip(time.Minute)
	if !s.Active() {
		t.Fatal("expected lockout to be active after Trip")
	}

	// A shorter trip must not pull the deadline in.
	short := s.Trip(time.Second)
	if !short.Equal(long) {
		t.Errorf("shorter Trip moved deadline from %v to %v", long, short)
	}
	if s.Trips() != 2 {
		t.Errorf("Trips() = %d, want 2", s.Trips())
	}
	if r := s.Remaining(); r <= 50*time.Second || r > time.Minute {
		t.Errorf("Remaining() = %v, want about 1m", r)
	}
}

func TestLockoutState_Expires(t *testing.T) {
	var s LockoutState
	s.Trip(20 * time.Millisecond)

	time.Sleep(40 * time.Millisecond)

	if s.Active() {
		t.Error("lockout should have expired")
	}
}

func TestDefaultInterval(t *testing.T) {
	if DefaultInterval != 210*time.Millisecond {
		t.Errorf("DefaultInterval = %v, want 210ms", DefaultInterval)
	}
}
