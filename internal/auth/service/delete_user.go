package service

import (
	"context"
	"errors"

	"sigil/internal/registration"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// DeleteUser is the user-initiated deletion path: profile first, then the
// authentication record, same ordering as saga compensation. The two paths
// may race; both deletions tolerate the other side having won.
func (s *Service) DeleteUser(ctx context.Context, authID domain.AuthID) error {
	var profileID domain.ProfileID

	profile, err := s.profiles.FindByAuthID(ctx, authID)
	switch {
	case err == nil:
		profileID = profile.ID
		if err := s.profiles.Delete(ctx, profileID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete profile")
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// Registration may still be in flight or already compensated;
		// nothing to delete on the profile side.
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up profile")
	}

	if err := s.auths.SoftDelete(ctx, authID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete account")
	}

	s.logger.Info("user deleted", "auth_id", authID, "profile_id", profileID)

	s.bus.Publish(ctx, registration.AuthUserDeleted{
		AuthID:    authID,
		ProfileID: profileID,
	})
	return nil
}
