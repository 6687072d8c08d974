package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "change-me-notion"
	body := []byte(`{"event_type":"entity.create","payload":{}}`)
	sig := Sign(secret, body)

	assert.True(t, VerifySignature(secret, sig, body))

	// Any single-byte change to the body invalidates the signature.
	mutated := append([]byte{}, body...)
	mutated[0] ^= 0x01
	assert.False(t, VerifySignature(secret, sig, mutated))

	assert.False(t, VerifySignature("wrong-secret", sig, body))
	assert.False(t, VerifySignature(secret, "", body))
	assert.False(t, VerifySignature(secret, "not-hex!", body))
	assert.False(t, VerifySignature(secret, Sign(secret, []byte("other")), body))
}

func TestPayloadDigest(t *testing.T) {
	body := []byte(`{"event_type":"entity.create"}`)

	// Stable, truncated, and never the body itself.
	d1 := payloadDigest(body)
	d2 := payloadDigest(body)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 16)
	assert.NotEqual(t, d1, payloadDigest([]byte("other")))
}
