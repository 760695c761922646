package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// Login verifies credentials and issues a token pair. Every failure mode
// reads as the same unauthorized error so the endpoint cannot be used to
// probe which emails are registered.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	auth, err := s.auths.FindByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}

	// Google-linked accounts without a password cannot log in this way.
	if auth.PasswordHash == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(auth.PasswordHash), []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	pair, err := s.issueTokens(ctx, auth)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded", "auth_id", auth.ID)
	return pair, nil
}
