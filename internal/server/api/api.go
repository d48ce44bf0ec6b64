// Package api provides HTTP API handlers for the penalty kick prediction
// service.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/urdof7/penalty-kick-prediction/internal/app"
	"github.com/urdof7/penalty-kick-prediction/internal/capture"
	"github.com/urdof7/penalty-kick-prediction/internal/inference"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

// SessionCookie names the cookie that scopes uploaded videos to a browser.
const SessionCookie = "pk_session"

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeAppError maps application errors to HTTP status codes.
func writeAppError(w http.ResponseWriter, logger *slog.Logger, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, inference.ErrNoPoseData):
		writeError(w, http.StatusNotFound, "No pose data for kick")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, what+" already exists")
	case errors.Is(err, capture.ErrNoFrames):
		writeError(w, http.StatusUnprocessableEntity, "No frames at the given timestamp")
	case errors.Is(err, app.ErrNoPredictor):
		writeError(w, http.StatusServiceUnavailable, "No prediction model loaded")
	default:
		logger.Error("request failed", "what", what, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// sessionID returns the request's session, issuing a new session cookie when
// the request has none.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// parseID parses a positive numeric path segment.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// splitPath strips prefix from the request path and splits the rest.
func splitPath(r *http.Request, prefix string) []string {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func handlerLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("module", "api")
}
