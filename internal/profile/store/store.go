// Package store declares the profile store boundary.
//
// Error contract:
//   - sentinel.ErrNotFound (wrapped) when the record is absent or soft-deleted
//   - sentinel.ErrConflict (wrapped) when the profile id or auth reference is
//     already taken by a live record
//   - Delete is idempotent and never returns ErrNotFound; the saga's
//     compensation path may race with or follow a direct user delete
package store

import (
	"context"

	"sigil/internal/profile/models"
	"sigil/pkg/domain"
)

// RoleLookup resolves live authentication ids for a role. Satisfied by the
// identity store; keeps the profile store free of a direct dependency on the
// authentication aggregate's types.
type RoleLookup interface {
	LiveIDsByRole(ctx context.Context, role domain.Role) ([]domain.AuthID, error)
}

// ProfileStore owns create/find/update/soft-delete for profile records.
type ProfileStore interface {
	Create(ctx context.Context, profile *models.ProfileRecord) (*models.ProfileRecord, error)
	FindByID(ctx context.Context, id domain.ProfileID) (*models.ProfileRecord, error)
	FindByAuthID(ctx context.Context, authID domain.AuthID) (*models.ProfileRecord, error)

	// FindByRole resolves live auth ids for the role first; when none match
	// it short-circuits to an empty result without querying profile storage.
	FindByRole(ctx context.Context, role domain.Role) ([]*models.ProfileRecord, error)

	Update(ctx context.Context, id domain.ProfileID, update models.ProfileUpdate) (*models.ProfileRecord, error)

	// Delete soft-deletes the profile. Deleting an absent or already-deleted
	// profile is a no-op.
	Delete(ctx context.Context, id domain.ProfileID) error
}
