// Package cipher encrypts the email field at rest. Equality lookup over the
// ciphertext is handled separately by the blind index; this package only has
// to round-trip the value for display and notification use.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeyLen is the required AES-256 key size.
const KeyLen = 32

// EmailCipher seals and opens email plaintexts with AES-GCM. Each call uses a
// fresh random nonce, so two encryptions of the same email differ; that is
// why the blind index, not the ciphertext, serves as the lookup key.
type EmailCipher struct {
	aead cipher.AEAD
}

// New validates the key and builds the AEAD. Fails hard on a bad key for the
// same reason the blind index does: data written under a different key is
// unrecoverable without an operator migration.
func New(key []byte) (*EmailCipher, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("email cipher key must be %d bytes, got %d", KeyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &EmailCipher{aead: aead}, nil
}

// Encrypt seals the plaintext and returns base64(nonce || ciphertext).
func (c *EmailCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Returns an error on truncated or tampered input.
func (c *EmailCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("ciphertext shorter than nonce")
	}
	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plaintext), nil
}
