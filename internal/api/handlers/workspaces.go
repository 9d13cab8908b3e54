package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/birthday-buddy/internal/api/dto"
	"github.com/hugh/birthday-buddy/internal/workspaces"
	"github.com/hugh/birthday-buddy/pkg/util"
)

type WorkspaceHandler struct {
	workspaces *workspaces.Service
	logger     *slog.Logger
}

func NewWorkspaceHandler(ws *workspaces.Service, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: ws, logger: util.OrDiscard(logger)}
}

// List is public so new users can pick a workspace when registering.
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.workspaces.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewList(dto.ToWorkspaces(items)))
}

func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.workspaces.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToWorkspace(ws))
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	ws, err := h.workspaces.Create(r.Context(), req.Input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToWorkspace(ws))
}

func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	ws, err := h.workspaces.Update(r.Context(), id, req.Input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToWorkspace(ws))
}

// Delete orphans the workspace's birthdays and detaches its users.
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.workspaces.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Workspace deleted"})
}
