package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PINHasher digests PINs with a single application-wide secret.
// The same PIN always yields the same digest.
type PINHasher struct {
	secret []byte
}

// NewPINHasher returns a hasher keyed by secret
func NewPINHasher(secret string) (*PINHasher, error) {
	if secret == "" {
		return nil, ErrEmptyPINSecret
	}
	return &PINHasher{secret: []byte(secret)}, nil
}

// Hash returns the hex HMAC-SHA256 of value
func (h *PINHasher) Hash(value string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the digest of value against digest in constant time
func (h *PINHasher) Verify(value, digest string) bool {
	if digest == "" {
		return false
	}
	return hmac.Equal([]byte(h.Hash(value)), []byte(digest))
}
