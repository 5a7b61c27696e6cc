package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/trophycase/internal/errs"
)

const (
	msgInvalidJSON      = "invalid json"
	msgNotAuthenticated = "not authenticated"
	msgNotFound         = "not found"
	msgRateLimited      = "too many login attempts"
	msgInternal         = "internal server error"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a service error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, errs.ErrUsernameTaken), errors.Is(err, errs.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, errs.ErrAlreadyExists.Error()
	case errors.Is(err, errs.ErrInvalidCredentials):
		return http.StatusUnauthorized, errs.ErrInvalidCredentials.Error()
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized, msgNotAuthenticated
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// validationMessage drops the generic "validation failed: " prefix.
func validationMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, errs.ErrValidation.Error()+": "); ok {
		return rest
	}
	return msg
}

// writeError responds with the mapped status. Driver details only go to the log.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromCtx(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
