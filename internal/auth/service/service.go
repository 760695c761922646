// Package service implements the authentication flows on top of the
// identity store: registration (the saga's upstream step), credential and
// Google login, token rotation, logout, and the direct account-deletion
// path.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sigil/internal/events"
	"sigil/internal/identity/cipher"
	"sigil/internal/identity/models"
	"sigil/internal/identity/store"
	jwttoken "sigil/internal/jwt_token"
	profilemodels "sigil/internal/profile/models"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// AuthStore is the slice of the identity store the service needs.
type AuthStore interface {
	Create(ctx context.Context, auth store.NewAuth) (*models.AuthRecord, error)
	FindByEmail(ctx context.Context, email string, withSecret bool) (*models.AuthRecord, error)
	FindByID(ctx context.Context, id domain.AuthID, withSecret bool) (*models.AuthRecord, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.AuthRecord, error)
	Update(ctx context.Context, id domain.AuthID, update models.AuthUpdate) (*models.AuthRecord, error)
	SoftDelete(ctx context.Context, id domain.AuthID) error
	ClearRefreshToken(ctx context.Context, id domain.AuthID) error
}

// ProfileStore is the slice of the profile store the service needs.
type ProfileStore interface {
	FindByAuthID(ctx context.Context, authID domain.AuthID) (*profilemodels.ProfileRecord, error)
	Delete(ctx context.Context, id domain.ProfileID) error
}

// Publisher hands commands and facts to the event bus.
type Publisher interface {
	Publish(ctx context.Context, msg events.Message)
}

// RevocationList denylists access-token JTIs on logout.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Config carries token lifetimes and the password hashing cost.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

// Service is the authentication façade used by the HTTP transport.
type Service struct {
	auths    AuthStore
	profiles ProfileStore
	bus      Publisher
	tokens   *jwttoken.JWTService
	trl      RevocationList
	emails   *cipher.EmailCipher
	logger   *slog.Logger
	cfg      Config
}

func NewService(
	auths AuthStore,
	profiles ProfileStore,
	bus Publisher,
	tokens *jwttoken.JWTService,
	trl RevocationList,
	emails *cipher.EmailCipher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		auths:    auths,
		profiles: profiles,
		bus:      bus,
		tokens:   tokens,
		trl:      trl,
		emails:   emails,
		logger:   logger,
		cfg:      cfg,
	}
}

// TokenPair is the issued access/refresh token bundle.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// issueTokens mints a token pair and persists the refresh-token hash so the
// rotation check in RefreshToken has something to compare against.
func (s *Service) issueTokens(ctx context.Context, auth *models.AuthRecord) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(auth.ID, auth.Role, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	refresh, err := s.tokens.GenerateRefreshToken(auth.ID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign refresh token")
	}

	refreshHash := hashToken(refresh)
	if _, err := s.auths.Update(ctx, auth.ID, models.AuthUpdate{RefreshTokenHash: &refreshHash}); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist refresh token")
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// hashToken is the storage form of a refresh token. Only the hash is ever
// persisted; a leaked store dump cannot be replayed as tokens.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
