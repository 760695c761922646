package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	jwttoken "sigil/internal/jwt_token"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// RefreshToken rotates a token pair. The presented token must both verify
// cryptographically and match the stored hash: logout clears the hash, so a
// valid-but-logged-out token is rejected here.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	authID, err := claims.AuthID()
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	auth, err := s.auths.FindByID(ctx, authID, false)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}

	stored := []byte(auth.RefreshTokenHash)
	presented := []byte(hashToken(refreshToken))
	if len(stored) == 0 || subtle.ConstantTimeCompare(stored, presented) != 1 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token revoked")
	}

	pair, err := s.issueTokens(ctx, auth)
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh token rotated", "auth_id", auth.ID)
	return pair, nil
}

// Logout clears the stored refresh-token hash and denylists the presented
// access token for its remaining lifetime. The refresh token dies with its
// hash; the access token has to be denylisted because it is stateless.
func (s *Service) Logout(ctx context.Context, claims *jwttoken.Claims) error {
	authID, err := claims.AuthID()
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	if err := s.auths.ClearRefreshToken(ctx, authID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear refresh token")
	}

	if claims.ExpiresAt != nil {
		if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
			if err := s.trl.RevokeToken(ctx, claims.ID, ttl); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke access token")
			}
		}
	}

	s.logger.Info("logout", "auth_id", authID)
	return nil
}
