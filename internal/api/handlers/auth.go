package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hugh/birthday-buddy/internal/api/dto"
	"github.com/hugh/birthday-buddy/internal/api/middleware"
	"github.com/hugh/birthday-buddy/internal/api/validation"
	"github.com/hugh/birthday-buddy/internal/auth"
	"github.com/hugh/birthday-buddy/pkg/util"
)

type AuthHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: util.OrDiscard(logger)}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dob, errors := req.Validate(time.Now())
	if len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        validation.SanitizeString(strings.TrimSpace(req.Name)),
		DateOfBirth: dob,
		WorkspaceID: req.WorkspaceID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.ToUser(resp.User),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.ToUser(resp.User),
	})
}

// Me returns the authenticated user as currently stored.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUser(user))
}
