package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/birthday-buddy/internal/api/dto"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/users"
	"github.com/hugh/birthday-buddy/pkg/util"
)

type UserHandler struct {
	users  *users.Service
	logger *slog.Logger
}

func NewUserHandler(svc *users.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: svc, logger: util.OrDiscard(logger)}
}

// List returns the members of the caller's workspace.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var items []models.User
	if actor.WorkspaceID != nil {
		items, err = h.users.ListByWorkspace(r.Context(), *actor.WorkspaceID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, dto.NewList(dto.ToUsers(items)))
}

func (h *UserHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.users.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewList(dto.ToUsers(items)))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	u, err := h.users.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUser(u))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, errors := req.Input(time.Now())
	if len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	u, err := h.users.Update(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUser(u))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), actor, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "User deleted"})
}
