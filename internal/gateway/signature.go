package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of body under secret. This
// is the signature external sources must supply in the
// X-Webhook-Signature header, computed over the exact raw body bytes.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a supplied signature against the expected
// HMAC in constant time. An empty signature never verifies.
func VerifySignature(secret, signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(supplied, mac.Sum(nil))
}

// payloadDigest returns a truncated SHA-256 digest of the raw body for
// the webhook log. The body itself is never persisted.
func payloadDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:8])
}
