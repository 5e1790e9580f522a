// Package ratelimit paces outgoing upstream calls. A Gate admits queued calls
// in FIFO order, never closer together than a minimum interval, and holds
// admissions back while the upstream has locked the client out.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// DefaultInterval is the spacing for a 5 requests/second budget with a small
// safety margin (1050ms / 5).
const DefaultInterval = 1050 * time.Millisecond / 5

// RetryAfterError is implemented by upstream errors that carry a lockout
// period, such as an HTTP 429.
type RetryAfterError interface {
	error
	RetryAfter() time.Duration
}

// RetryAfter extracts the lockout period from err, if any error in its chain
// carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var ra RetryAfterError
	if errors.As(err, &ra) {
		if d := ra.RetryAfter(); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// LockoutState tracks the upstream lockout window shared by every call
// passing through a Gate.
type LockoutState struct {
	mu    sync.Mutex
	until time.Time
	trips int
}

// Trip starts or extends the lockout so it lasts at least d from now.
// An active lockout is never shortened. It returns the effective deadline.
func (s *LockoutState) Trip(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(d)
	if deadline.After(s.until) {
		s.until = deadline
	}
	s.trips++
	return s.until
}

// Remaining returns the time left in the lockout, or 0 when none is active.
func (s *LockoutState) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := time.Until(s.until)
	if d < 0 {
		return 0
	}
	return d
}

// Active reports whether admissions are currently held back.
func (s *LockoutState) Active() bool {
	return s.Remaining() > 0
}

// Trips returns how many times the lockout has been triggered.
func (s *LockoutState) Trips() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trips
}
