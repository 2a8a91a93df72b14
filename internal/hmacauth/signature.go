// Package hmacauth authenticates signed ingest requests. A request carries a
// static API key, a millisecond timestamp, and a lowercase hex HMAC-SHA256
// signature computed over timestamp + "." + the exact raw body bytes.
// Verification always runs on the received bytes, before any JSON parsing,
// and every comparison is constant-time.
package hmacauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the lowercase hex HMAC-SHA256 signature for the given
// timestamp and raw body. Clients must sign the exact bytes they send.
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature for timestamp and body and
// compares it against signatureHex in constant time. Malformed hex fails
// verification.
func VerifySignature(secret []byte, timestamp string, body []byte, signatureHex string) bool {
	supplied, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hmac.Equal(supplied, mac.Sum(nil))
}
