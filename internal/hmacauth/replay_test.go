package hmacauth

import (
	"strconv"
	"testing"
	"time"
)

func TestReplayGuardWindow(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	guard := newReplayGuardAt(5*time.Minute, func() time.Time { return now })

	tests := []struct {
		name   string
		offset time.Duration
		accept bool
	}{
		{"current", 0, true},
		{"4 minutes old", -4 * time.Minute, true},
		{"4 minutes ahead", 4 * time.Minute, true},
		{"exactly at window", -5 * time.Minute, true},
		{"6 minutes old", -6 * time.Minute, false},
		{"6 minutes ahead", 6 * time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := strconv.FormatInt(now.Add(tt.offset).UnixMilli(), 10)
			rej := guard.Check(ts)
			if tt.accept && rej != nil {
				t.Errorf("expected acceptance, got rejection %q", rej.Reason)
			}
			if !tt.accept {
				if rej == nil {
					t.Fatal("expected rejection")
				}
				if rej.Reason != ReasonExpired {
					t.Errorf("expected reason %q, got %q", ReasonExpired, rej.Reason)
				}
				if rej.Detail == "" {
					t.Error("replay rejection should carry a caller-safe detail")
				}
			}
		})
	}
}

func TestReplayGuardMalformedTimestamps(t *testing.T) {
	guard := NewReplayGuard(5 * time.Minute)

	tests := []struct {
		name      string
		timestamp string
		reason    string
	}{
		{"missing", "", ReasonMissingTimestamp},
		{"non-numeric", "yesterday", ReasonMalformedTimestamp},
		{"float", "1700000000000.5", ReasonMalformedTimestamp},
		{"overflow", "999999999999999999999", ReasonMalformedTimestamp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := guard.Check(tt.timestamp)
			if rej == nil {
				t.Fatal("expected rejection")
			}
			if rej.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, rej.Reason)
			}
			if rej.Detail != "" {
				t.Errorf("format failures must not leak detail, got %q", rej.Detail)
			}
		})
	}
}
