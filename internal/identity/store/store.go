// Package store declares the identity store boundary.
//
// Error contract, shared by every implementation:
//   - sentinel.ErrNotFound (wrapped) when the record is absent or soft-deleted
//   - sentinel.ErrConflict (wrapped) on blind-index or google-id uniqueness
//     violations against live records
//   - wrapped infrastructure errors otherwise
package store

import (
	"context"

	"sigil/internal/identity/models"
	"sigil/pkg/domain"
)

// NewAuth is the creation payload. Email arrives in plaintext and is
// normalized, encrypted, and blind-indexed inside the store; it is never
// persisted as given.
type NewAuth struct {
	ID           domain.AuthID
	Email        string
	PasswordHash string
	GoogleID     string
	Role         domain.Role
}

// AuthStore owns create/find/update/soft-delete for authentication records.
//
// Default reads exclude soft-deleted records and zero the password hash;
// withSecret opts back in for credential checks. FindByIDIncludingDeleted is
// the explicitly named administrative bypass and must never back a default
// read path.
type AuthStore interface {
	Create(ctx context.Context, auth NewAuth) (*models.AuthRecord, error)
	FindByEmail(ctx context.Context, email string, withSecret bool) (*models.AuthRecord, error)
	FindByID(ctx context.Context, id domain.AuthID, withSecret bool) (*models.AuthRecord, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.AuthRecord, error)
	Update(ctx context.Context, id domain.AuthID, update models.AuthUpdate) (*models.AuthRecord, error)
	SoftDelete(ctx context.Context, id domain.AuthID) error
	ClearRefreshToken(ctx context.Context, id domain.AuthID) error
	FindByIDIncludingDeleted(ctx context.Context, id domain.AuthID) (*models.AuthRecord, error)

	// LiveIDsByRole resolves the live authentication ids carrying a role.
	// The profile store joins through this for role-scoped listings.
	LiveIDsByRole(ctx context.Context, role domain.Role) ([]domain.AuthID, error)
}
