// Package revocation tracks logged-out token JTIs until their natural
// expiry. Stateless JWTs cannot be recalled, so logout and account deletion
// denylist the outstanding token ids instead; the auth middleware consults
// the list on every authenticated request.
package revocation

import (
	"context"
	"fmt"
	"time"

	"sigil/pkg/platform/sentinel"
)

// Clock abstracts time for testability.
type Clock func() time.Time

// TokenRevocationList is the denylist contract shared by the Redis and
// in-memory implementations.
type TokenRevocationList interface {
	// RevokeToken denylists a JTI. The TTL should match the token's
	// remaining lifetime; after that the entry is useless and may expire.
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether a JTI is on the denylist. An expired or
	// unknown entry reads as not revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
