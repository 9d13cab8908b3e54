package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/api/validation"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/database/models"
)

type BirthdayResponse struct {
	ID          string  `json:"id"`
	UserID      *string `json:"user_id"`
	Name        string  `json:"name"`
	DateOfBirth string  `json:"date_of_birth"`
	WorkspaceID *string `json:"workspace_id"`
}

func ToBirthday(b *models.Birthday) BirthdayResponse {
	return BirthdayResponse{
		ID:          b.ID.String(),
		UserID:      idString(b.UserID),
		Name:        b.Name,
		DateOfBirth: b.DateOfBirth.Format(models.DateLayout),
		WorkspaceID: idString(b.WorkspaceID),
	}
}

func ToBirthdays(items []models.Birthday) []BirthdayResponse {
	out := make([]BirthdayResponse, 0, len(items))
	for i := range items {
		out = append(out, ToBirthday(&items[i]))
	}
	return out
}

// TodayResponse lists the birthdays falling on Date in Timezone.
type TodayResponse struct {
	Date      string             `json:"date"`
	Timezone  string             `json:"timezone"`
	Birthdays []BirthdayResponse `json:"birthdays"`
}

type CreateBirthdayRequest struct {
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Name        string     `json:"name"`
	DateOfBirth string     `json:"date_of_birth"`
	WorkspaceID *uuid.UUID `json:"workspace_id,omitempty"`
}

func (r CreateBirthdayRequest) Input(now time.Time) (birthdays.CreateInput, map[string]string) {
	errors := make(map[string]string)

	if ok, msg := validation.ValidateName(r.Name); !ok {
		errors["name"] = msg
	}
	dob, msg := validation.ParseDateOfBirth(r.DateOfBirth, now)
	if msg != "" {
		errors["date_of_birth"] = msg
	}

	return birthdays.CreateInput{
		UserID:      r.UserID,
		Name:        validation.SanitizeString(strings.TrimSpace(r.Name)),
		DateOfBirth: dob,
		WorkspaceID: r.WorkspaceID,
	}, errors
}

// UpdateBirthdayRequest is a partial update. clear_workspace detaches the birthday.
type UpdateBirthdayRequest struct {
	Name           *string    `json:"name,omitempty"`
	DateOfBirth    *string    `json:"date_of_birth,omitempty"`
	WorkspaceID    *uuid.UUID `json:"workspace_id,omitempty"`
	ClearWorkspace bool       `json:"clear_workspace,omitempty"`
}

func (r UpdateBirthdayRequest) Input(now time.Time) (birthdays.UpdateInput, map[string]string) {
	errors := make(map[string]string)
	in := birthdays.UpdateInput{
		WorkspaceID:    r.WorkspaceID,
		ClearWorkspace: r.ClearWorkspace,
	}

	if r.Name != nil {
		if ok, msg := validation.ValidateName(*r.Name); !ok {
			errors["name"] = msg
		}
		name := validation.SanitizeString(strings.TrimSpace(*r.Name))
		in.Name = &name
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
