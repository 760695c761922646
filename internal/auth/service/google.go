package service

import (
	"context"
	"errors"
	"strings"

	"sigil/internal/identity/models"
	"sigil/internal/identity/store"
	"sigil/internal/registration"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// GoogleIdentity is a Google profile the caller has already verified.
// Verifying the upstream OAuth exchange is the transport's problem; by the
// time it reaches the service the identity is trusted.
type GoogleIdentity struct {
	GoogleID string
	Email    string
	Name     string
	Lastname string
}

// FindOrCreateGoogleUser resolves a verified Google identity to an account
// and issues a token pair. Resolution order: existing google_id linkage,
// then linking by email, then a fresh passwordless account.
func (s *Service) FindOrCreateGoogleUser(ctx context.Context, ident GoogleIdentity) (*TokenPair, error) {
	if ident.GoogleID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "google id is required")
	}

	auth, err := s.auths.FindByGoogleID(ctx, ident.GoogleID)
	if err == nil {
		return s.issueTokens(ctx, auth)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}

	// No linkage yet; an existing password account with the same email gets
	// the google id attached instead of a duplicate account.
	auth, err = s.auths.FindByEmail(ctx, ident.Email, false)
	if err == nil {
		linked, linkErr := s.auths.Update(ctx, auth.ID, models.AuthUpdate{GoogleID: &ident.GoogleID})
		if linkErr != nil {
			return nil, dErrors.Wrap(linkErr, dErrors.CodeUnavailable, "failed to link google account")
		}
		s.logger.Info("google account linked", "auth_id", linked.ID)
		return s.issueTokens(ctx, linked)
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}

	authID := domain.NewAuthID()
	profileID := domain.NewProfileID()

	created, err := s.auths.Create(ctx, store.NewAuth{
		ID:       authID,
		Email:    ident.Email,
		GoogleID: ident.GoogleID,
		Role:     domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "account already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create account")
	}

	s.logger.Info("google registration accepted",
		"auth_id", created.ID, "profile_id", profileID)

	s.bus.Publish(ctx, registration.CreateProfileCommand{
		ProfileID: profileID,
		AuthID:    created.ID,
		Name:      strings.TrimSpace(ident.Name),
		Lastname:  strings.TrimSpace(ident.Lastname),
	})

	return s.issueTokens(ctx, created)
}
