package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const signaturePrefix = "sha256="

// Sign returns the X-Hub-Signature-256 header value for body.
func Sign(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC-SHA256 of the raw body.
// Only the length comparison may return early.
func VerifySignature(secret []byte, body []byte, header string) bool {
	if len(secret) == 0 || header == "" {
		return false
	}

	expected := []byte(Sign(secret, body))
	received := []byte(header)
	if len(expected) != len(received) {
		return false
	}
	return subtle.ConstantTimeCompare(expected, received) == 1
}
