package service

import (
	"context"

	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"sigil/internal/identity/models"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
)

func (s *ServiceSuite) TestLogin_IssuesTokenPair() {
	ctx := context.Background()
	rec := s.authRecord("password123")

	s.auths.EXPECT().
		FindByEmail(gomock.Any(), "ada@example.com", true).
		Return(rec, nil)

	var storedHash string
	s.expectRefreshHashPersisted(rec, &storedHash)

	pair, err := s.service.Login(ctx, "ada@example.com", "password123")
	s.Require().NoError(err)
	s.Require().NotNil(pair)

	claims, err := s.tokens.ValidateAccessToken(pair.AccessToken)
	s.Require().NoError(err)
	s.Equal(rec.ID.String(), claims.UserID)
	s.Equal(string(domain.RoleUser), claims.Role)

	s.Equal(hashToken(pair.RefreshToken), storedHash,
		"stored hash must match the issued refresh token")
	s.NotEqual(pair.RefreshToken, storedHash)
}

func (s *ServiceSuite) TestLogin_FailuresAreIndistinguishable() {
	ctx := context.Background()

	s.Run("unknown email", func() {
		s.auths.EXPECT().
			FindByEmail(gomock.Any(), "ghost@example.com", true).
			Return(nil, wrapNotFound("auth record"))

		_, err := s.service.Login(ctx, "ghost@example.com", "password123")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("wrong password", func() {
		rec := s.authRecord("password123")
		s.auths.EXPECT().
			FindByEmail(gomock.Any(), "ada@example.com", true).
			Return(rec, nil)

		_, err := s.service.Login(ctx, "ada@example.com", "wrong-password")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("passwordless google account", func() {
		rec := s.authRecord("")
		rec.GoogleID = "google-123"
		s.auths.EXPECT().
			FindByEmail(gomock.Any(), "ada@example.com", true).
			Return(rec, nil)

		_, err := s.service.Login(ctx, "ada@example.com", "password123")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestChangePassword() {
	ctx := context.Background()

	s.Run("rotates the hash and invalidates refresh tokens", func() {
		rec := s.authRecord("old-password-1")

		s.auths.EXPECT().FindByID(gomock.Any(), rec.ID, true).Return(rec, nil)
		s.auths.EXPECT().
			Update(gomock.Any(), rec.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.AuthID, update models.AuthUpdate) (*models.AuthRecord, error) {
				s.Require().NotNil(update.PasswordHash)
				s.NoError(bcrypt.CompareHashAndPassword([]byte(*update.PasswordHash), []byte("new-password-1")))
				return rec, nil
			})
		s.auths.EXPECT().ClearRefreshToken(gomock.Any(), rec.ID).Return(nil)

		err := s.service.ChangePassword(ctx, rec.ID, "old-password-1", "new-password-1")
		s.Require().NoError(err)
	})

	s.Run("wrong current password", func() {
		rec := s.authRecord("old-password-1")
		s.auths.EXPECT().FindByID(gomock.Any(), rec.ID, true).Return(rec, nil)

		err := s.service.ChangePassword(ctx, rec.ID, "not-the-password", "new-password-1")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("short new password rejected before any lookup", func() {
		err := s.service.ChangePassword(ctx, domain.NewAuthID(), "old-password-1", "short")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("passwordless account cannot change a password", func() {
		rec := s.authRecord("")
		s.auths.EXPECT().FindByID(gomock.Any(), rec.ID, true).Return(rec, nil)

		err := s.service.ChangePassword(ctx, rec.ID, "anything-here", "new-password-1")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
