package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/birthday-buddy/internal/api/dto"
	"github.com/hugh/birthday-buddy/internal/api/middleware"
	"github.com/hugh/birthday-buddy/internal/api/validation"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/hugh/birthday-buddy/internal/service"
	"github.com/hugh/birthday-buddy/internal/tasks"
	"github.com/hugh/birthday-buddy/internal/users"
	"github.com/hugh/birthday-buddy/internal/workspaces"
	"github.com/hugh/birthday-buddy/pkg/util"
)

// Enqueuer is the slice of *asynq.Client the handlers need.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type UtilsConfig struct {
	Job        *reminder.Job
	Scheduler  *reminder.Scheduler
	Birthdays  *birthdays.Service
	Users      *users.Service
	Workspaces *workspaces.Service
	Sender     reminder.Sender
	Cache      *cache.Facade
	Enqueuer   Enqueuer
	Logger     *slog.Logger
}

// UtilsHandler serves the admin maintenance surface under /utils.
type UtilsHandler struct {
	cfg    UtilsConfig
	logger *slog.Logger
}

func NewUtilsHandler(cfg UtilsConfig) *UtilsHandler {
	return &UtilsHandler{cfg: cfg, logger: util.OrDiscard(cfg.Logger)}
}

type TimezonesResponse struct {
	Timezones []string `json:"timezones"`
}

// Timezones is public.
func (h *UtilsHandler) Timezones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TimezonesResponse{Timezones: service.Timezones()})
}

type EnqueuedResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

// RunBirthdayJob runs the daily job inside the request and returns its
// report. With ?async=true the run is queued for the worker instead.
func (h *UtilsHandler) RunBirthdayJob(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") != "true" {
		rep := h.cfg.Job.Run(r.Context())
		h.logger.Info("manual birthday job finished", "user_id", middleware.GetUserID(r.Context()))
		writeJSON(w, http.StatusOK, rep)
		return
	}

	if h.cfg.Enqueuer == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Task queue is not configured"})
		return
	}

	task, err := tasks.NewBirthdayRunTask(tasks.BirthdayRunPayload{
		RequestedBy: middleware.GetUserID(r.Context()),
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	info, err := h.cfg.Enqueuer.EnqueueContext(r.Context(), task)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask), errors.Is(err, asynq.ErrTaskIDConflict):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "A birthday run is already queued"})
		return
	case err != nil:
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueuedResponse{TaskID: info.ID, Queue: info.Queue})
}

type SchedulerResponse struct {
	Running  bool       `json:"running"`
	Spec     string     `json:"spec,omitempty"`
	Timezone string     `json:"timezone,omitempty"`
	Entries  int        `json:"entries"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

func (h *UtilsHandler) Scheduler(w http.ResponseWriter, r *http.Request) {
	s := h.cfg.Scheduler
	if s == nil {
		writeJSON(w, http.StatusOK, SchedulerResponse{})
		return
	}

	resp := SchedulerResponse{
		Running:  s.IsRunning(),
		Spec:     s.Spec(),
		Timezone: s.Location().String(),
		Entries:  s.EntryCount(),
	}
	if next := s.NextRun(); !next.IsZero() {
		resp.NextRun = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UtilsHandler) RefreshBirthdayTable(w http.ResponseWriter, r *http.Request) {
	n, err := h.cfg.Birthdays.RefreshFromUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("birthday table refreshed", "updated", n)
	writeJSON(w, http.StatusOK, dto.CountResponse{Message: "Birthday table refreshed", Count: n})
}

func (h *UtilsHandler) BackfillBirthdays(w http.ResponseWriter, r *http.Request) {
	n, err := h.cfg.Birthdays.Backfill(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("birthdays backfilled", "created", n)
	writeJSON(w, http.StatusOK, dto.CountResponse{Message: "Birthdays backfilled", Count: n})
}

const maxPingLength = 1000

// PingSlackRequest targets either a stored workspace webhook or an explicit URL.
type PingSlackRequest struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
	WebhookURL  string `json:"webhook_url,omitempty"`
	Message     string `json:"message,omitempty"`
}

type PingSlackResponse struct {
	Status string `json:"status"`
}

func (h *UtilsHandler) PingSlack(w http.ResponseWriter, r *http.Request) {
	var req PingSlackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		req.Message = "Test message"
	}
	req.Message = validation.TruncateString(req.Message, maxPingLength)

	url, details := h.pingTarget(r.Context(), req)
	if details != nil {
		writeValidation(w, details)
		return
	}

	if !h.cfg.Sender.Send(r.Context(), url, req.Message) {
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "Slack delivery failed"})
		return
	}
	writeJSON(w, http.StatusOK, PingSlackResponse{Status: "sent"})
}

func (h *UtilsHandler) pingTarget(ctx context.Context, req PingSlackRequest) (string, map[string]string) {
	switch {
	case req.WorkspaceID != "":
		if !validation.IsValidUUID(req.WorkspaceID) {
			return "", map[string]string{"workspace_id": "Invalid ID"}
		}
		ws, err := h.cfg.Workspaces.Get(ctx, uuid.MustParse(req.WorkspaceID))
		if err != nil {
			return "", map[string]string{"workspace_id": "Workspace does not exist"}
		}
		url, err := h.cfg.Workspaces.WebhookURL(ws)
		if err != nil || url == "" {
			return "", map[string]string{"workspace_id": "Workspace has no usable webhook"}
		}
		return url, nil
	case req.WebhookURL != "":
		if ok, msg := validation.IsValidWebhookURL(req.WebhookURL); !ok {
			return "", map[string]string{"webhook_url": msg}
		}
		return req.WebhookURL, nil
	default:
		return "", map[string]string{"workspace_id": "workspace_id or webhook_url is required"}
	}
}

type CacheResponse struct {
	Available  bool                       `json:"available"`
	TTLSeconds int                        `json:"ttl_seconds"`
	Data       map[string]json.RawMessage `json:"data"`
}

// InspectCache returns the global cache entries, null where missing.
func (h *UtilsHandler) InspectCache(w http.ResponseWriter, r *http.Request) {
	c := h.cfg.Cache
	resp := CacheResponse{
		Available:  c.Available(),
		TTLSeconds: int(c.TTL().Seconds()),
		Data:       make(map[string]json.RawMessage),
	}
	for name, scope := range map[string]cache.Scope{
		"users":      cache.UsersAll(),
		"birthdays":  cache.BirthdaysAll(),
		"workspaces": cache.WorkspacesAll(),
	} {
		raw, _ := c.Raw(r.Context(), scope)
		resp.Data[name] = raw
	}
	writeJSON(w, http.StatusOK, resp)
}

type CacheKeysResponse struct {
	Keys []string `json:"keys"`
}

func (h *UtilsHandler) CacheKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.cfg.Cache.Keys(r.Context(), r.URL.Query().Get("pattern"))
	if err != nil {
		h.cacheDown(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, CacheKeysResponse{Keys: keys})
}

func (h *UtilsHandler) FlushCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.cfg.Cache.Flush(r.Context())
	if err != nil {
		h.cacheDown(w, err)
		return
	}
	h.logger.Info("cache flushed", "keys", n)
	writeJSON(w, http.StatusOK, dto.CountResponse{Message: "Cache flushed", Count: n})
}

// cacheDown reports a cache that is disabled or not answering as 503.
func (h *UtilsHandler) cacheDown(w http.ResponseWriter, err error) {
	if !errors.Is(err, cache.ErrUnavailable) {
		h.logger.Warn("cache request failed", "error", err)
	}
	writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Cache unavailable"})
}

type ScopeCacheResponse struct {
	Key    string          `json:"key"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (h *UtilsHandler) InspectWorkspaceCache(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.writeScope(w, r, cache.BirthdaysByWorkspace(id))
}

func (h *UtilsHandler) InvalidateWorkspaceCache(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.cfg.Birthdays.Invalidate(r.Context(), &id)
	writeJSON(w, http.StatusOK, ScopeCacheResponse{
		Key:    cache.BirthdaysByWorkspace(id).Key(),
		Status: "invalidated",
	})
}

// InspectUserCache shows the cached birthday list of the user's workspace.
func (h *UtilsHandler) InspectUserCache(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.userScope(w, r)
	if !ok {
		return
	}
	h.writeScope(w, r, scope)
}

func (h *UtilsHandler) InvalidateUserCache(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.userScope(w, r)
	if !ok {
		return
	}
	id := scope.WorkspaceID
	h.cfg.Birthdays.Invalidate(r.Context(), &id)
	writeJSON(w, http.StatusOK, ScopeCacheResponse{Key: scope.Key(), Status: "invalidated"})
}

func (h *UtilsHandler) userScope(w http.ResponseWriter, r *http.Request) (cache.Scope, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return cache.Scope{}, false
	}
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return cache.Scope{}, false
	}

	u, err := h.cfg.Users.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return cache.Scope{}, false
	}
	if u.WorkspaceID == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User has no workspace"})
		return cache.Scope{}, false
	}
	return cache.BirthdaysByWorkspace(*u.WorkspaceID), true
}

func (h *UtilsHandler) writeScope(w http.ResponseWriter, r *http.Request, scope cache.Scope) {
	raw, outcome := h.cfg.Cache.Raw(r.Context(), scope)
	writeJSON(w, http.StatusOK, ScopeCacheResponse{
		Key:    scope.Key(),
		Status: outcome.String(),
		Data:   raw,
	})
}
