package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"sigil/internal/identity/store"
	"sigil/internal/registration"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

const minPasswordLen = 8

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Lastname string
	Age      int
}

// RegisterResult acknowledges acceptance of a registration. The profile is
// created asynchronously by the saga; a later failure compensates by
// deleting the account again.
type RegisterResult struct {
	AuthID    domain.AuthID
	ProfileID domain.ProfileID
}

func (in RegisterInput) validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "password must be at least %d characters", minPasswordLen)
	}
	if strings.TrimSpace(in.Name) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if in.Age < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "age cannot be negative")
	}
	return nil
}

// Register creates the authentication record and dispatches the
// profile-creation command. Success means the registration was accepted, not
// that the profile exists yet.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	authID := domain.NewAuthID()
	profileID := domain.NewProfileID()

	auth, err := s.auths.Create(ctx, store.NewAuth{
		ID:           authID,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create account")
	}

	s.logger.Info("registration accepted",
		"auth_id", auth.ID, "profile_id", profileID)

	s.bus.Publish(ctx, registration.CreateProfileCommand{
		ProfileID: profileID,
		AuthID:    auth.ID,
		Name:      strings.TrimSpace(in.Name),
		Lastname:  strings.TrimSpace(in.Lastname),
		Age:       in.Age,
	})

	return &RegisterResult{AuthID: auth.ID, ProfileID: profileID}, nil
}
