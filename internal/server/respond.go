package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"fetlife-adapter/internal/scrapers/fetlife"
)

// badRequest is a malformed or missing request parameter.
type badRequest struct {
	message string
}

func (e badRequest) Error() string {
	return e.message
}

type errorBody struct {
	Error     string `json:"error"`
	RequestId string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorBody{Error: message, RequestId: RequestId(r.Context())})
}

// statusFor maps the error taxonomy of the scraper onto a status and the message the
// client gets to see. Server side failures never expose their cause.
func statusFor(err error) (int, string) {
	var (
		bad         badRequest
		unsupported *fetlife.UnsupportedOperationError
		invalidUser *fetlife.InvalidUserIdError
		authErr     *fetlife.AuthenticationError
		transport   *fetlife.TransportError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, bad.message
	case errors.As(err, &invalidUser):
		return http.StatusBadRequest, "invalid id"
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, unsupported.Error()
	case errors.Is(err, fetlife.ErrSessionExpired):
		return http.StatusUnauthorized, "session expired"
	case errors.Is(err, fetlife.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not authenticated"
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Reason
	case errors.Is(err, fetlife.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.As(err, &transport):
		return http.StatusInternalServerError, "upstream request failed"
	}
	return http.StatusInternalServerError, "internal error"
}
