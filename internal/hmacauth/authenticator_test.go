package hmacauth

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/contenthub/content-sync-platform/pkg/config"
	apperrors "github.com/contenthub/content-sync-platform/pkg/errors"
)

const (
	testAPIKey = "test-api-key"
	testSecret = "test-signing-secret"
)

func testAuthenticator(now time.Time) *Authenticator {
	return NewAt(config.AuthConfig{
		APIKey:        testAPIKey,
		SigningSecret: testSecret,
		ReplayWindow:  5 * time.Minute,
	}, func() time.Time { return now })
}

func signedCredentials(now time.Time, body []byte) Credentials {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return Credentials{
		APIKey:    testAPIKey,
		Timestamp: ts,
		Signature: Sign([]byte(testSecret), ts, body),
	}
}

func TestAuthenticateAccepts(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	auth := testAuthenticator(now)
	body := []byte(`{"topic":{"slug":"intro-to-x"}}`)

	if rej := auth.Authenticate(signedCredentials(now, body), body); rej != nil {
		t.Fatalf("expected acceptance, got %q", rej.Reason)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	auth := testAuthenticator(now)
	body := []byte(`{"topic":{"slug":"intro-to-x"}}`)
	valid := signedCredentials(now, body)

	tests := []struct {
		name   string
		mutate func(c *Credentials)
		body   []byte
		reason string
	}{
		{
			name:   "missing api key",
			mutate: func(c *Credentials) { c.APIKey = "" },
			body:   body,
			reason: ReasonMissingKey,
		},
		{
			name:   "wrong api key",
			mutate: func(c *Credentials) { c.APIKey = "wrong-key" },
			body:   body,
			reason: ReasonBadKey,
		},
		{
			name:   "missing timestamp",
			mutate: func(c *Credentials) { c.Timestamp = "" },
			body:   body,
			reason: ReasonMissingTimestamp,
		},
		{
			name: "replayed timestamp",
			mutate: func(c *Credentials) {
				old := strconv.FormatInt(now.Add(-6*time.Minute).UnixMilli(), 10)
				c.Signature = Sign([]byte(testSecret), old, body)
				c.Timestamp = old
			},
			body:   body,
			reason: ReasonExpired,
		},
		{
			name:   "missing signature",
			mutate: func(c *Credentials) { c.Signature = "" },
			body:   body,
			reason: ReasonMissingSignature,
		},
		{
			name:   "signature over different body",
			mutate: func(c *Credentials) {},
			body:   []byte(`{"topic":{"slug":"intro-to-y"}}`),
			reason: ReasonBadSignature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := valid
			tt.mutate(&creds)
			rej := auth.Authenticate(creds, tt.body)
			if rej == nil {
				t.Fatal("expected rejection")
			}
			if rej.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, rej.Reason)
			}
			if !errors.Is(rej, apperrors.ErrUnauthorized) {
				t.Error("rejection must unwrap to ErrUnauthorized")
			}
			if tt.reason != ReasonExpired && rej.Detail != "" {
				t.Errorf("only replay failures may expose detail, got %q", rej.Detail)
			}
		})
	}
}
