package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/worktrack/internal/common"
)

const unclassifiedMessage = "request failed"

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

var errMalformedBody = errors.New("malformed request body")

var (
	badRequestErrors = []error{
		common.ErrValidation,
		common.ErrWeakPassword,
		common.ErrEmailAlreadyRegistered,
		common.ErrInvalidCredentials,
		common.ErrIncorrectPassword,
		common.ErrEmailNotConfirmed,
		common.ErrInvalidRefreshToken,
		common.ErrTokenExpired,
		common.ErrTokenAlreadyUsed,
		common.ErrAlreadyConfirmed,
		errMalformedBody,
	}
	notFoundErrors = []error{
		common.ErrUserNotFound,
		common.ErrTokenNotFound,
		common.ErrApplicationNotFound,
		common.ErrNoResume,
	}
)

func matchesAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// statusFor maps a service error to its HTTP status. classified is false for
// errors whose text must not reach the client.
func statusFor(err error) (status int, classified bool) {
	switch {
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound, true
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, true
	case matchesAny(err, badRequestErrors):
		return http.StatusBadRequest, true
	default:
		return http.StatusBadRequest, false
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, classified := statusFor(err)
	msg := err.Error()
	if !classified {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = unclassifiedMessage
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into v, reporting errMalformedBody for
// anything that does not decode.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errMalformedBody
	}
	return nil
}
