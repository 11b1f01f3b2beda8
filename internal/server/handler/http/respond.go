package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atinyakov/JobTracker/internal/models"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// logged and answered with 500.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeMessage(w, http.StatusBadRequest, publicMessage(err))
	case errors.Is(err, models.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, models.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, models.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, models.ErrUserExists):
		writeMessage(w, http.StatusConflict, "User exists")
	default:
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

// publicMessage strips the "validation failed: " prefix from err.
func publicMessage(err error) string {
	msg := err.Error()
	if _, rest, ok := strings.Cut(msg, models.ErrValidation.Error()+": "); ok {
		return rest
	}
	return msg
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", models.ErrValidation)
	}
	return nil
}
