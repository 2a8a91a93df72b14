package hmacauth

import (
	"strconv"
	"time"
)

// ReplayGuard checks that a request timestamp lies within an acceptance
// window of the current time. The window applies in both directions: stale
// timestamps bound the replay surface, future ones tolerate only bounded
// clock skew.
type ReplayGuard struct {
	window time.Duration
	now    func() time.Time
}

// NewReplayGuard creates a guard with the given acceptance window.
func NewReplayGuard(window time.Duration) ReplayGuard {
	return ReplayGuard{window: window, now: time.Now}
}

// newReplayGuardAt is like NewReplayGuard with an injected clock, for tests.
func newReplayGuardAt(window time.Duration, now func() time.Time) ReplayGuard {
	return ReplayGuard{window: window, now: now}
}

// Check validates a decimal-milliseconds timestamp string. The returned
// Rejection (if any) carries a caller-safe Detail only for window failures.
func (g ReplayGuard) Check(timestamp string) *Rejection {
	if timestamp == "" {
		return &Rejection{Reason: ReasonMissingTimestamp}
	}
	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return &Rejection{Reason: ReasonMalformedTimestamp}
	}
	ts := time.UnixMilli(ms)
	delta := g.now().Sub(ts)
	if delta > g.window || delta < -g.window {
		return &Rejection{Reason: ReasonExpired, Detail: "Request expired"}
	}
	return nil
}
