// Package models defines the authentication aggregate.
package models

import (
	"time"

	"sigil/pkg/domain"
)

// AuthRecord is the authentication aggregate. The email exists in two stored
// forms: AES-GCM ciphertext for recovery and a keyed blind index for equality
// lookup. Plaintext email is never persisted.
//
// Records are soft-deleted: DeletedAt is set instead of removing the row, and
// every default read path filters deleted records out.
type AuthRecord struct {
	ID              domain.AuthID
	EmailEncrypted  string
	EmailBlindIndex string

	// PasswordHash is a bcrypt hash. It is zeroed on default read paths and
	// only populated when the caller asks for secrets explicitly.
	PasswordHash string

	// RefreshTokenHash is the SHA-256 of the current refresh token, empty
	// when logged out.
	RefreshTokenHash string

	// GoogleID links an external Google identity; empty when the account was
	// created with a password. Unique across live records when present.
	GoogleID string

	Role domain.Role

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsDeleted reports whether the record is soft-deleted.
func (r *AuthRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

// Clone returns an independent copy so store internals never leak mutable
// references to callers.
func (r *AuthRecord) Clone() *AuthRecord {
	cp := *r
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

// Redact zeroes secret fields on a copy. keepRefreshHash mirrors the read
// contract: FindByID always projects the refresh-token hash, FindByEmail and
// FindByGoogleID do not.
func (r *AuthRecord) Redact(keepRefreshHash bool) *AuthRecord {
	cp := r.Clone()
	cp.PasswordHash = ""
	if !keepRefreshHash {
		cp.RefreshTokenHash = ""
	}
	return cp
}

// AuthUpdate carries a partial update; nil fields are left unchanged.
type AuthUpdate struct {
	PasswordHash     *string
	RefreshTokenHash *string
	GoogleID         *string
	Role             *domain.Role
}
