package httptransport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mssola/useragent"

	jwttoken "sigil/internal/jwt_token"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/requestcontext"
)

type contextKey string

const claimsKey contextKey = "sigil.claims"

// claimsFrom returns the validated access-token claims stashed by the
// authenticate middleware.
func claimsFrom(ctx context.Context) (*jwttoken.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*jwttoken.Claims)
	return claims, ok
}

// authenticate validates the bearer token and checks it against the
// revocation list before letting the request through.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
			return
		}

		claims, err := h.tokens.ValidateAccessToken(token)
		if err != nil {
			writeError(w, err)
			return
		}

		revoked, err := h.revoked.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			writeError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "revocation check failed"))
			return
		}
		if revoked {
			writeError(w, dErrors.New(dErrors.CodeUnauthorized, "token revoked"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates admin-only routes on the role claim.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok || claims.Role != string(domain.RoleAdmin) {
			writeError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with latency, status, and a parsed
// user agent. Health and metrics probes are skipped to keep the log useful.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// Propagate the correlation id past the HTTP layer so services and
		// stores can log it without seeing chi.
		ctx := requestcontext.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(ww, r.WithContext(ctx))

		ua := useragent.New(r.UserAgent())
		browser, version := ua.Browser()

		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
			"browser", browser+" "+version,
			"bot", ua.Bot(),
		)
	})
}
