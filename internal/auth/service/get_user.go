package service

import (
	"context"
	"errors"
	"time"

	profilemodels "sigil/internal/profile/models"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// UserView is the read model for a single user: the authentication facts a
// user may see about themselves plus the profile, when the saga has created
// one.
type UserView struct {
	AuthID    domain.AuthID
	Email     string
	Role      domain.Role
	CreatedAt time.Time

	// Profile is nil while registration is still in flight or after the
	// profile-creation step failed and was compensated away.
	Profile *profilemodels.ProfileRecord
}

// GetUser assembles the user view. The stored email ciphertext is decrypted
// here for presentation; the plaintext never round-trips through storage.
func (s *Service) GetUser(ctx context.Context, authID domain.AuthID) (*UserView, error) {
	auth, err := s.auths.FindByID(ctx, authID, false)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}

	email, err := s.emails.Decrypt(auth.EmailEncrypted)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decrypt email")
	}

	view := &UserView{
		AuthID:    auth.ID,
		Email:     email,
		Role:      auth.Role,
		CreatedAt: auth.CreatedAt,
	}

	profile, err := s.profiles.FindByAuthID(ctx, authID)
	switch {
	case err == nil:
		view.Profile = profile
	case errors.Is(err, sentinel.ErrNotFound):
		// Profile creation pending or compensated; the view stays partial.
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up profile")
	}

	return view, nil
}
