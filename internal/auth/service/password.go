package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"sigil/internal/identity/models"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// ChangePassword verifies the current password, stores the new hash, and
// clears the refresh-token hash so other devices have to log in again.
func (s *Service) ChangePassword(ctx context.Context, authID domain.AuthID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "password must be at least %d characters", minPasswordLen)
	}

	auth, err := s.auths.FindByID(ctx, authID, true)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}

	if auth.PasswordHash == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "account has no password to change")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(auth.PasswordHash), []byte(currentPassword)); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	hashStr := string(hash)

	if _, err := s.auths.Update(ctx, authID, models.AuthUpdate{PasswordHash: &hashStr}); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update password")
	}

	if err := s.auths.ClearRefreshToken(ctx, authID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to invalidate refresh token")
	}

	s.logger.Info("password changed", "auth_id", authID)
	return nil
}
