package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/api/validation"
)

type RegisterRequest struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	Name        string     `json:"name"`
	DateOfBirth string     `json:"date_of_birth"`
	WorkspaceID *uuid.UUID `json:"workspace_id,omitempty"`
}

// Validate checks the request and returns the parsed date of birth.
func (r RegisterRequest) Validate(now time.Time) (time.Time, map[string]string) {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if len(r.Name) > validation.MaxNameLength {
		errors["name"] = "Name must be at most 255 characters"
	}
	dob, msg := validation.ParseDateOfBirth(r.DateOfBirth, now)
	if msg != "" {
		errors["date_of_birth"] = msg
	}

	return dob, errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
