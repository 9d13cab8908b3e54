package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/api/dto"
	"github.com/hugh/birthday-buddy/internal/api/middleware"
	"github.com/hugh/birthday-buddy/internal/auth"
	"github.com/hugh/birthday-buddy/internal/service"
)

const maxBodyBytes = 1 << 20

var errNoActor = errors.New("no authenticated actor")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeValidation(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: details})
}

// writeError maps service and auth errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Not found"})
	case errors.Is(err, errNoActor):
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
	case errors.Is(err, service.ErrConflict), errors.Is(err, auth.ErrUserExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Conflict"})
	case errors.Is(err, service.ErrInvalidTimezone):
		writeValidation(w, map[string]string{"timezone": "Unknown timezone"})
	case errors.Is(err, auth.ErrWorkspaceNotFound):
		writeValidation(w, map[string]string{"workspace_id": "Workspace does not exist"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
	case errors.Is(err, auth.ErrInactiveUser):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Account is inactive"})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}

// decodeJSON reads a bounded JSON body and writes the 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// pathID parses the {name} URL parameter and writes the 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}

func actorFrom(r *http.Request) (service.Actor, error) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		return service.Actor{}, errNoActor
	}
	return actor, nil
}
