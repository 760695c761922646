// Package blindindex derives deterministic, keyed lookup tokens for fields
// that are stored encrypted. The token supports exact-match equality only;
// range and prefix queries are unsupported by design.
package blindindex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MinKeyLen is the smallest accepted key size. A 256-bit key keeps the index
// resistant to offline dictionary attack on the stored tokens.
const MinKeyLen = 32

// Codec computes blind-index tokens with a service-held secret key.
//
// Determinism is the contract: the same normalized input always produces the
// same token, so a token computed under a different key silently breaks every
// stored lookup. Construction therefore fails hard on a bad key; rotating the
// key requires an operator migration, never an implicit re-key.
type Codec struct {
	key []byte
}

// New validates the key and returns a ready codec.
func New(key []byte) (*Codec, error) {
	if len(key) < MinKeyLen {
		return nil, fmt.Errorf("blind index key must be at least %d bytes, got %d", MinKeyLen, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{key: k}, nil
}

// Index returns the hex-encoded HMAC-SHA256 of the normalized plaintext.
// Output length is fixed at 64 hex characters regardless of input length.
func (c *Codec) Index(plaintext string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(Normalize(plaintext)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize folds case and trims surrounding whitespace so semantically equal
// identifiers collide to the same token. Applied before indexing and before
// encrypting, so the ciphertext and the index always describe the same value.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
