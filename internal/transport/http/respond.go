package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "sigil/pkg/domain-errors"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError translates coded domain errors into status codes. Anything
// without a code is an internal error; the cause is never put on the wire.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	var domainErr *dErrors.Error
	message := "internal error"
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	writeJSON(w, statusFor(code), errorBody{
		Error:   string(code),
		Message: message,
	})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
