package hmacauth

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/contenthub/content-sync-platform/pkg/config"
	apperrors "github.com/contenthub/content-sync-platform/pkg/errors"
)

// Rejection reasons, for server-side logs and metrics only. The wire response
// never distinguishes them.
const (
	ReasonMissingKey         = "missing_api_key"
	ReasonBadKey             = "bad_api_key"
	ReasonMissingTimestamp   = "missing_timestamp"
	ReasonMalformedTimestamp = "malformed_timestamp"
	ReasonExpired            = "timestamp_outside_window"
	ReasonMissingSignature   = "missing_signature"
	ReasonBadSignature       = "bad_signature"
)

// Rejection is an authentication failure. It unwraps to ErrUnauthorized so
// the HTTP boundary always maps it to a generic 401. Detail is the only part
// safe to expose, and is set solely for replay-window failures.
type Rejection struct {
	Reason string
	Detail string
}

func (r *Rejection) Error() string {
	return "unauthorized: " + r.Reason
}

func (r *Rejection) Unwrap() error {
	return apperrors.ErrUnauthorized
}

// Credentials are the authentication inputs extracted from request headers.
type Credentials struct {
	APIKey    string
	Timestamp string
	Signature string
}

// Authenticator composes the static API-key check, the replay guard, and the
// HMAC signature check into a single accept/reject decision. All checks must
// pass; none has side effects, so rejected probes are cheap.
type Authenticator struct {
	apiKey []byte
	secret []byte
	guard  ReplayGuard
	logger *slog.Logger
}

// New creates an Authenticator from the immutable auth configuration loaded
// at startup.
func New(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		apiKey: []byte(cfg.APIKey),
		secret: []byte(cfg.SigningSecret),
		guard:  NewReplayGuard(cfg.ReplayWindow),
		logger: slog.Default().With("component", "authenticator"),
	}
}

// NewAt is like New with an injected clock, for tests.
func NewAt(cfg config.AuthConfig, now func() time.Time) *Authenticator {
	a := New(cfg)
	a.guard = newReplayGuardAt(cfg.ReplayWindow, now)
	return a
}

// Authenticate verifies the credentials against the raw body bytes exactly as
// received. It returns nil on success or a *Rejection describing the first
// failing check.
func (a *Authenticator) Authenticate(creds Credentials, rawBody []byte) *Rejection {
	if creds.APIKey == "" {
		return a.reject(ReasonMissingKey, "")
	}
	if subtle.ConstantTimeCompare([]byte(creds.APIKey), a.apiKey) != 1 {
		return a.reject(ReasonBadKey, "")
	}
	if rej := a.guard.Check(creds.Timestamp); rej != nil {
		return a.reject(rej.Reason, rej.Detail)
	}
	if creds.Signature == "" {
		return a.reject(ReasonMissingSignature, "")
	}
	if !VerifySignature(a.secret, creds.Timestamp, rawBody, creds.Signature) {
		return a.reject(ReasonBadSignature, "")
	}
	return nil
}

func (a *Authenticator) reject(reason, detail string) *Rejection {
	a.logger.Warn("request rejected", "reason", reason)
	return &Rejection{Reason: reason, Detail: detail}
}
