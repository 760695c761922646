package service

import (
	"context"
	"time"

	"go.uber.org/mock/gomock"

	dErrors "sigil/pkg/domain-errors"
)

func (s *ServiceSuite) TestRefreshToken_Rotates() {
	ctx := context.Background()
	rec := s.authRecord("")

	refresh, err := s.tokens.GenerateRefreshToken(rec.ID, time.Hour)
	s.Require().NoError(err)
	rec.RefreshTokenHash = hashToken(refresh)

	s.auths.EXPECT().FindByID(gomock.Any(), rec.ID, false).Return(rec, nil)

	var storedHash string
	s.expectRefreshHashPersisted(rec, &storedHash)

	pair, err := s.service.RefreshToken(ctx, refresh)
	s.Require().NoError(err)
	s.NotEqual(refresh, pair.RefreshToken, "refresh token must rotate")
	s.Equal(hashToken(pair.RefreshToken), storedHash,
		"the old hash must be replaced by the new token's")
}

func (s *ServiceSuite) TestRefreshToken_Rejections() {
	ctx := context.Background()

	s.Run("garbage token", func() {
		_, err := s.service.RefreshToken(ctx, "not-a-jwt")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("access token presented as refresh token", func() {
		rec := s.authRecord("")
		access, err := s.tokens.GenerateAccessToken(rec.ID, rec.Role, time.Hour)
		s.Require().NoError(err)

		_, err = s.service.RefreshToken(ctx, access)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("valid token but hash cleared by logout", func() {
		rec := s.authRecord("")
		refresh, err := s.tokens.GenerateRefreshToken(rec.ID, time.Hour)
		s.Require().NoError(err)
		rec.RefreshTokenHash = ""

		s.auths.EXPECT().FindByID(gomock.Any(), rec.ID, false).Return(rec, nil)

		_, err = s.service.RefreshToken(ctx, refresh)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("valid token superseded by a newer login", func() {
		rec := s.authRecord("")
		old, err := s.tokens.GenerateRefreshToken(rec.ID, time.Hour)
		s.Require().NoError(err)
		newer, err := s.tokens.GenerateRefreshToken(rec.ID, time.Hour)
		s.Require().NoError(err)
		rec.RefreshTokenHash = hashToken(newer)

		s.auths.EXPECT().FindByID(gomock.Any(), rec.ID, false).Return(rec, nil)

		_, err = s.service.RefreshToken(ctx, old)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("account deleted since issuance", func() {
		rec := s.authRecord("")
		refresh, err := s.tokens.GenerateRefreshToken(rec.ID, time.Hour)
		s.Require().NoError(err)

		s.auths.EXPECT().FindByID(gomock.Any(), rec.ID, false).
			Return(nil, wrapNotFound("auth record"))

		_, err = s.service.RefreshToken(ctx, refresh)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestLogout() {
	ctx := context.Background()

	s.Run("clears refresh hash and denylists the access token", func() {
		rec := s.authRecord("")
		access, err := s.tokens.GenerateAccessToken(rec.ID, rec.Role, time.Hour)
		s.Require().NoError(err)
		claims, err := s.tokens.ValidateAccessToken(access)
		s.Require().NoError(err)

		s.auths.EXPECT().ClearRefreshToken(gomock.Any(), rec.ID).Return(nil)
		s.trl.EXPECT().
			RevokeToken(gomock.Any(), claims.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, ttl time.Duration) error {
				s.Positive(ttl)
				s.LessOrEqual(ttl, time.Hour)
				return nil
			})

		s.Require().NoError(s.service.Logout(ctx, claims))
	})

	s.Run("logout for a deleted account", func() {
		rec := s.authRecord("")
		access, err := s.tokens.GenerateAccessToken(rec.ID, rec.Role, time.Hour)
		s.Require().NoError(err)
		claims, err := s.tokens.ValidateAccessToken(access)
		s.Require().NoError(err)

		s.auths.EXPECT().ClearRefreshToken(gomock.Any(), rec.ID).
			Return(wrapNotFound("auth record"))

		err = s.service.Logout(ctx, claims)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
