package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/api/validation"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/users"
)

type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	DateOfBirth string  `json:"date_of_birth"`
	WorkspaceID *string `json:"workspace_id"`
	IsActive    bool    `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
	IsVerified  bool    `json:"is_verified"`
	CreatedAt   string  `json:"created_at"`
}

func ToUser(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		DateOfBirth: u.DateOfBirth.Format(models.DateLayout),
		WorkspaceID: idString(u.WorkspaceID),
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

func ToUsers(items []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(items))
	for i := range items {
		out = append(out, ToUser(&items[i]))
	}
	return out
}

// UpdateUserRequest is a partial update. clear_workspace detaches the user.
type UpdateUserRequest struct {
	Email          *string    `json:"email,omitempty"`
	Name           *string    `json:"name,omitempty"`
	Password       *string    `json:"password,omitempty"`
	DateOfBirth    *string    `json:"date_of_birth,omitempty"`
	WorkspaceID    *uuid.UUID `json:"workspace_id,omitempty"`
	ClearWorkspace bool       `json:"clear_workspace,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
	IsSuperuser    *bool      `json:"is_superuser,omitempty"`
	IsVerified     *bool      `json:"is_verified,omitempty"`
}

// Input validates the request and converts it to a service update.
func (r UpdateUserRequest) Input(now time.Time) (users.UpdateInput, map[string]string) {
	errors := make(map[string]string)
	in := users.UpdateInput{
		WorkspaceID:    r.WorkspaceID,
		ClearWorkspace: r.ClearWorkspace,
		IsActive:       r.IsActive,
		IsSuperuser:    r.IsSuperuser,
		IsVerified:     r.IsVerified,
	}

	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		if !validation.IsValidEmail(email) {
			errors["email"] = "Invalid email format"
		}
		in.Email = &email
	}
	if r.Name != nil {
		if len(*r.Name) > validation.MaxNameLength {
			errors["name"] = "Name must be at most 255 characters"
		}
		name := validation.SanitizeString(strings.TrimSpace(*r.Name))
		in.Name = &name
	}
	if r.Password != nil {
		if ok, msg := validation.IsValidPassword(*r.Password); !ok {
			errors["password"] = msg
		}
		in.Password = r.Password
	}
	if r.DateOfBirth != nil {
		dob, msg := validation.ParseDateOfBirth(*r.DateOfBirth, now)
		if msg != "" {
			errors["date_of_birth"] = msg
		}
		in.DateOfBirth = &dob
	}

	return in, errors
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
