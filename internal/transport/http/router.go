// Package httptransport is the thin HTTP layer over the auth service and the
// profile store. Handlers parse, delegate, and translate errors; business
// rules stay in the services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sigil/internal/auth/service"
	jwttoken "sigil/internal/jwt_token"
	profilestore "sigil/internal/profile/store"
	"sigil/pkg/domain"
)

// AuthService is the slice of the auth service the handlers need.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*service.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, claims *jwttoken.Claims) error
	ChangePassword(ctx context.Context, authID domain.AuthID, currentPassword, newPassword string) error
	FindOrCreateGoogleUser(ctx context.Context, ident service.GoogleIdentity) (*service.TokenPair, error)
	DeleteUser(ctx context.Context, authID domain.AuthID) error
	GetUser(ctx context.Context, authID domain.AuthID) (*service.UserView, error)
}

// Pinger reports backend health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Revocations answers whether an access-token JTI has been denylisted.
type Revocations interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Handler carries the transport dependencies.
type Handler struct {
	auth     AuthService
	profiles profilestore.ProfileStore
	tokens   *jwttoken.JWTService
	revoked  Revocations
	db       Pinger
	redis    Pinger
	logger   *slog.Logger
}

func NewHandler(
	auth AuthService,
	profiles profilestore.ProfileStore,
	tokens *jwttoken.JWTService,
	revoked Revocations,
	db Pinger,
	redis Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		auth:     auth,
		profiles: profiles,
		tokens:   tokens,
		revoked:  revoked,
		db:       db,
		redis:    redis,
		logger:   logger,
	}
}

// NewRouter wires all endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/google", h.handleGoogleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/logout", h.handleLogout)
			r.Post("/password", h.handleChangePassword)
		})
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/", h.handleGetMe)
		r.Delete("/", h.handleDeleteMe)
		r.Patch("/profile", h.handleUpdateProfile)
	})

	r.Route("/profiles", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Use(h.requireAdmin)
		r.Get("/", h.handleListProfilesByRole)
	})

	return r
}
