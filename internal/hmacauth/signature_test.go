package hmacauth

import (
	"strings"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	secret := []byte("test-signing-secret")
	body := []byte(`{"topic":{"slug":"intro-to-x","title":"Intro"}}`)
	sig := Sign(secret, "1700000000000", body)

	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Errorf("signature is not lowercase hex: %s", sig)
	}
	if !VerifySignature(secret, "1700000000000", body, sig) {
		t.Error("valid signature rejected")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	secret := []byte("test-signing-secret")
	body := []byte(`{"topic":{"slug":"intro-to-x"},"faqItems":[]}`)
	sig := Sign(secret, "1700000000000", body)

	// Flipping any single byte must break verification, even when the JSON
	// stays syntactically valid.
	for i := range body {
		tampered := make([]byte, len(body))
		copy(tampered, body)
		tampered[i] ^= 0x01
		if VerifySignature(secret, "1700000000000", tampered, sig) {
			t.Fatalf("tampered byte %d accepted", i)
		}
	}
}

func TestVerifyRejectsWrongInputs(t *testing.T) {
	secret := []byte("test-signing-secret")
	body := []byte(`{"tag":"topics"}`)
	sig := Sign(secret, "1700000000000", body)

	tests := []struct {
		name      string
		secret    []byte
		timestamp string
		body      []byte
		signature string
	}{
		{"wrong secret", []byte("other-secret"), "1700000000000", body, sig},
		{"wrong timestamp", secret, "1700000000001", body, sig},
		{"signature over different body", secret, "1700000000000", []byte(`{"tag":"other"}`), sig},
		{"malformed hex", secret, "1700000000000", body, "not-hex!"},
		{"truncated signature", secret, "1700000000000", body, sig[:32]},
		{"empty signature", secret, "1700000000000", body, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.secret, tt.timestamp, tt.body, tt.signature) {
				t.Error("expected verification to fail")
			}
		})
	}
}
