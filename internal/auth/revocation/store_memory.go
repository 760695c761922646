package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL is a process-local TokenRevocationList for tests and
// single-instance development. Entries are purged lazily on access.
type InMemoryTRL struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	clock   Clock
}

// InMemoryTRLOption configures an InMemoryTRL instance.
type InMemoryTRLOption func(*InMemoryTRL)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) InMemoryTRLOption {
	return func(trl *InMemoryTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

// NewInMemoryTRL constructs an in-memory token revocation list.
func NewInMemoryTRL(opts ...InMemoryTRLOption) *InMemoryTRL {
	trl := &InMemoryTRL{
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// RevokeToken adds a token to the revocation list with TTL.
func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[jti] = t.clock().Add(ttl)
	return nil
}

// IsRevoked checks if a token is in the revocation list.
func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	expiresAt, ok := t.entries[jti]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if t.clock().After(expiresAt) {
		t.mu.Lock()
		delete(t.entries, jti)
		t.mu.Unlock()
		return false, nil
	}
	return true, nil
}
