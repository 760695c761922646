package httptransport

import (
	"net/http"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth pings the backing stores. Redis is optional; when it is not
// configured the check is reported as skipped rather than failing.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if h.redis == nil {
		checks["redis"] = "skipped"
	} else if err := h.redis.PingContext(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	body := healthResponse{Status: "ok", Checks: checks}
	if !healthy {
		status = http.StatusServiceUnavailable
		body.Status = "degraded"
	}
	writeJSON(w, status, body)
}
