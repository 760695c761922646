package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
)

// Token types carried in the claims. An access token can never be replayed
// as a refresh token or vice versa; validation checks the type explicitly.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents the JWT claims for our tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// AuthID parses the subject user id out of validated claims.
func (c *Claims) AuthID() (domain.AuthID, error) {
	return domain.ParseAuthID(c.UserID)
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken issues a short-lived token carrying the user's role
// for authorization decisions at the transport edge.
func (s *JWTService) GenerateAccessToken(
	userID domain.AuthID,
	role domain.Role,
	expiresIn time.Duration) (string, error) {
	return s.generate(Claims{
		UserID:    userID.String(),
		Role:      string(role),
		TokenType: TokenTypeAccess,
	}, expiresIn)
}

// GenerateRefreshToken issues a long-lived token whose only purpose is
// minting new access tokens. It carries no role claim.
func (s *JWTService) GenerateRefreshToken(
	userID domain.AuthID,
	expiresIn time.Duration) (string, error) {
	return s.generate(Claims{
		UserID:    userID.String(),
		TokenType: TokenTypeRefresh,
	}, expiresIn)
}

func (s *JWTService) generate(claims Claims, expiresIn time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateAccessToken parses and verifies an access token.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken parses and verifies a refresh token.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	if claims.TokenType != wantType {
		return nil, dErrors.Newf(dErrors.CodeUnauthorized, "expected %s token", wantType)
	}

	return claims, nil
}
