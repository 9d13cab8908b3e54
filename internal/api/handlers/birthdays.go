package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/birthday-buddy/internal/api/dto"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/hugh/birthday-buddy/internal/service"
	"github.com/hugh/birthday-buddy/internal/workspaces"
	"github.com/hugh/birthday-buddy/pkg/util"
)

type BirthdayHandler struct {
	birthdays  *birthdays.Service
	workspaces *workspaces.Service
	matcher    *reminder.Matcher
	logger     *slog.Logger
}

func NewBirthdayHandler(b *birthdays.Service, ws *workspaces.Service, m *reminder.Matcher, logger *slog.Logger) *BirthdayHandler {
	return &BirthdayHandler{birthdays: b, workspaces: ws, matcher: m, logger: util.OrDiscard(logger)}
}

// List returns the birthdays of the caller's workspace.
func (h *BirthdayHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var items []models.Birthday
	if actor.WorkspaceID != nil {
		items, err = h.birthdays.ListByWorkspace(r.Context(), *actor.WorkspaceID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, dto.NewList(dto.ToBirthdays(items)))
}

func (h *BirthdayHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.birthdays.ListAll(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewList(dto.ToBirthdays(items)))
}

// Today returns the birthdays falling on today's date in the caller's
// workspace timezone. Superusers may pass scope=all for every workspace,
// evaluated in UTC.
func (h *BirthdayHandler) Today(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	now := h.matcher.Now()

	if r.URL.Query().Get("scope") == "all" {
		if !actor.IsSuperuser {
			writeError(w, h.logger, service.ErrForbidden)
			return
		}
		items, err := h.matcher.All(r.Context(), now)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.TodayResponse{
			Date:      now.UTC().Format(models.DateLayout),
			Timezone:  "UTC",
			Birthdays: dto.ToBirthdays(items),
		})
		return
	}

	if actor.WorkspaceID == nil {
		writeJSON(w, http.StatusOK, dto.TodayResponse{
			Date:      now.UTC().Format(models.DateLayout),
			Timezone:  "UTC",
			Birthdays: []dto.BirthdayResponse{},
		})
		return
	}

	ws, err := h.workspaces.Get(r.Context(), *actor.WorkspaceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items, err := h.matcher.ForWorkspace(r.Context(), ws, now)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	date := now.UTC()
	if loc, err := service.LoadLocation(ws.Timezone); err == nil {
		date = now.In(loc)
	}
	writeJSON(w, http.StatusOK, dto.TodayResponse{
		Date:      date.Format(models.DateLayout),
		Timezone:  ws.Timezone,
		Birthdays: dto.ToBirthdays(items),
	})
}

func (h *BirthdayHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req dto.CreateBirthdayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, errors := req.Input(time.Now())
	if len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	b, err := h.birthdays.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToBirthday(b))
}

func (h *BirthdayHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	b, err := h.birthdays.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToBirthday(b))
}

func (h *BirthdayHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req dto.UpdateBirthdayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, errors := req.Input(time.Now())
	if len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	b, err := h.birthdays.Update(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToBirthday(b))
}

func (h *BirthdayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.birthdays.Delete(r.Context(), actor, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Birthday deleted"})
}
