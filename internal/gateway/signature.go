package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the provider's HMAC-SHA512 signature of the raw
// webhook body.
const SignatureHeader = "x-provider-signature"

// ComputeSignature returns the lowercase hex HMAC-SHA512 of payload keyed by
// secret. The payload must be the exact bytes as received on the wire:
// re-serializing a decoded body can reorder keys and break the match.
func ComputeSignature(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature authenticates payload. The
// comparison is constant-time.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	expected := ComputeSignature(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
