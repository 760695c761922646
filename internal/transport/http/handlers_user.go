package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	profilemodels "sigil/internal/profile/models"
	"sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

type profileView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	Age      int    `json:"age"`
}

type userResponse struct {
	AuthID    string       `json:"auth_id"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
	Profile   *profileView `json:"profile,omitempty"`
}

func toProfileView(p *profilemodels.ProfileRecord) *profileView {
	if p == nil {
		return nil
	}
	return &profileView{
		ID:       p.ID.String(),
		Name:     p.Name,
		Lastname: p.Lastname,
		Age:      p.Age,
	}
}

func (h *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authID, ok := h.subject(w, r)
	if !ok {
		return
	}

	view, err := h.auth.GetUser(r.Context(), authID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		AuthID:    view.AuthID.String(),
		Email:     view.Email,
		Role:      string(view.Role),
		CreatedAt: view.CreatedAt,
		Profile:   toProfileView(view.Profile),
	})
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	authID, ok := h.subject(w, r)
	if !ok {
		return
	}

	if err := h.auth.DeleteUser(r.Context(), authID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Lastname *string `json:"lastname"`
	Age      *int    `json:"age"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	authID, ok := h.subject(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.Age != nil && *req.Age < 0 {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "age cannot be negative"))
		return
	}

	profile, err := h.profiles.FindByAuthID(r.Context(), authID)
	if err != nil {
		writeError(w, mapStoreErr(err, "profile not found"))
		return
	}

	updated, err := h.profiles.Update(r.Context(), profile.ID, profilemodels.ProfileUpdate{
		Name:     req.Name,
		Lastname: req.Lastname,
		Age:      req.Age,
	})
	if err != nil {
		writeError(w, mapStoreErr(err, "profile not found"))
		return
	}

	writeJSON(w, http.StatusOK, toProfileView(updated))
}

// handleListProfilesByRole lists live profiles whose account carries the
// requested role. Admin only.
func (h *Handler) handleListProfilesByRole(w http.ResponseWriter, r *http.Request) {
	role, err := domain.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, err)
		return
	}

	profiles, err := h.profiles.FindByRole(r.Context(), role)
	if err != nil {
		writeError(w, mapStoreErr(err, "profiles not found"))
		return
	}

	views := make([]*profileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, toProfileView(p))
	}
	writeJSON(w, http.StatusOK, map[string][]*profileView{"profiles": views})
}

// subject extracts the authenticated user's id or writes the error.
func (h *Handler) subject(w http.ResponseWriter, r *http.Request) (domain.AuthID, bool) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return domain.AuthID{}, false
	}
	authID, err := claims.AuthID()
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
		return domain.AuthID{}, false
	}
	return authID, true
}

// mapStoreErr translates store sentinels for handlers that talk to a store
// directly instead of through a service.
func mapStoreErr(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "conflict")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
	}
}
