package dto

import (
	"strings"
	"time"

	"github.com/hugh/birthday-buddy/internal/api/validation"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/workspaces"
)

// WorkspaceResponse never carries the webhook itself.
type WorkspaceResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Timezone   string `json:"timezone"`
	HasWebhook bool   `json:"has_webhook"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func ToWorkspace(ws *models.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:         ws.ID.String(),
		Name:       ws.Name,
		Timezone:   ws.Timezone,
		HasWebhook: ws.HasWebhook(),
		CreatedAt:  ws.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  ws.UpdatedAt.Format(time.RFC3339),
	}
}

func ToWorkspaces(items []models.Workspace) []WorkspaceResponse {
	out := make([]WorkspaceResponse, 0, len(items))
	for i := range items {
		out = append(out, ToWorkspace(&items[i]))
	}
	return out
}

type CreateWorkspaceRequest struct {
	Name         string `json:"name"`
	SlackWebhook string `json:"slack_webhook,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}

func (r CreateWorkspaceRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if ok, msg := validation.ValidateName(r.Name); !ok {
		errors["name"] = msg
	}
	if ok, msg := validation.IsValidWebhookURL(strings.TrimSpace(r.SlackWebhook)); !ok {
		errors["slack_webhook"] = msg
	}
	if r.Timezone != "" && !validation.IsValidTimezone(r.Timezone) {
		errors["timezone"] = "Unknown timezone"
	}

	return errors
}

func (r CreateWorkspaceRequest) Input() workspaces.CreateInput {
	return workspaces.CreateInput{
		Name:         validation.SanitizeString(strings.TrimSpace(r.Name)),
		SlackWebhook: strings.TrimSpace(r.SlackWebhook),
		Timezone:     r.Timezone,
	}
}

// UpdateWorkspaceRequest is a partial update. An empty slack_webhook clears it.
type UpdateWorkspaceRequest struct {
	Name         *string `json:"name,omitempty"`
	SlackWebhook *string `json:"slack_webhook,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
}

func (r UpdateWorkspaceRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name != nil {
		if ok, msg := validation.ValidateName(*r.Name); !ok {
			errors["name"] = msg
		}
	}
	if r.SlackWebhook != nil {
		if ok, msg := validation.IsValidWebhookURL(strings.TrimSpace(*r.SlackWebhook)); !ok {
			errors["slack_webhook"] = msg
		}
	}
	if r.Timezone != nil && !validation.IsValidTimezone(*r.Timezone) {
		errors["timezone"] = "Unknown timezone"
	}

	return errors
}

func (r UpdateWorkspaceRequest) Input() workspaces.UpdateInput {
	in := workspaces.UpdateInput{Timezone: r.Timezone}
	if r.Name != nil {
		name := validation.SanitizeString(strings.TrimSpace(*r.Name))
		in.Name = &name
	}
	if r.SlackWebhook != nil {
		hook := strings.TrimSpace(*r.SlackWebhook)
		in.SlackWebhook = &hook
	}
	return in
}
