package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/metrics"
	"github.com/hugh/birthday-buddy/pkg/util"
)

// WorkspaceSource lists workspaces with their sealed webhooks.
type WorkspaceSource interface {
	ListWithSecrets(ctx context.Context) ([]models.Workspace, error)
	WebhookURL(ws *models.Workspace) (string, error)
}

// Sender delivers one message to a webhook.
type Sender interface {
	Send(ctx context.Context, webhookURL, text string) bool
}

// FormatMessage renders the birthday announcement.
func FormatMessage(name string) string {
	return fmt.Sprintf("🎂 Happy Birthday, *%s*! :tada:", name)
}

// Report summarises one run.
type Report struct {
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	Workspaces int       `json:"workspaces"`
	Skipped    int       `json:"skipped"`
	Matches    int       `json:"matches"`
	Delivered  int       `json:"delivered"`
	Failed     int       `json:"failed"`
	Errors     []string  `json:"errors,omitempty"`
}

type JobOptions struct {
	// Timeout bounds a whole run. Zero means no bound beyond the caller's context.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Job is the daily reminder body shared by cron, manual and queued triggers.
type Job struct {
	workspaces WorkspaceSource
	matcher    *Matcher
	sender     Sender
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Collector
}

func NewJob(workspaces WorkspaceSource, matcher *Matcher, sender Sender, opts JobOptions) *Job {
	return &Job{
		workspaces: workspaces,
		matcher:    matcher,
		sender:     sender,
		timeout:    opts.Timeout,
		logger:     util.OrDiscard(opts.Logger),
		metrics:    opts.Metrics,
	}
}

// Run executes the job as a manual trigger.
func (j *Job) Run(ctx context.Context) Report {
	return j.RunFor(ctx, metrics.TriggerManual)
}

// RunFor executes the job. Failures in one workspace are recorded in the
// report and never stop the others.
func (j *Job) RunFor(ctx context.Context, trigger string) Report {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	now := j.matcher.Now()
	rep := Report{Trigger: trigger, StartedAt: now}
	started := time.Now()
	defer func() {
		took := time.Since(started)
		j.metrics.JobRun(trigger, took)
		j.logger.Info("birthday job finished",
			"trigger", trigger,
			"workspaces", rep.Workspaces,
			"matches", rep.Matches,
			"delivered", rep.Delivered,
			"failed", rep.Failed,
			"skipped", rep.Skipped,
			"duration", took,
		)
	}()

	workspaces, err := j.workspaces.ListWithSecrets(ctx)
	if err != nil {
		j.logger.Error("birthday job: listing workspaces", "error", err)
		rep.Errors = append(rep.Errors, err.Error())
		rep.Duration = time.Since(started).String()
		return rep
	}
	rep.Workspaces = len(workspaces)

	for i := range workspaces {
		if ctx.Err() != nil {
			rep.Errors = append(rep.Errors, ctx.Err().Error())
			break
		}
		j.runWorkspace(ctx, &workspaces[i], now, &rep)
	}

	rep.Duration = time.Since(started).String()
	return rep
}

func (j *Job) runWorkspace(ctx context.Context, ws *models.Workspace, now time.Time, rep *Report) {
	log := j.logger.With("workspace_id", ws.ID, "workspace", ws.Name)

	matches, err := j.matcher.ForWorkspace(ctx, ws, now)
	if err != nil {
		log.Error("birthday job: matching", "error", err)
		rep.Skipped++
		rep.Errors = append(rep.Errors, err.Error())
		return
	}
	if len(matches) == 0 {
		log.Debug("no birthdays today")
		return
	}
	rep.Matches += len(matches)

	webhook, err := j.workspaces.WebhookURL(ws)
	if err != nil {
		log.Error("birthday job: webhook unreadable", "error", err)
		rep.Skipped++
		rep.Failed += len(matches)
		rep.Errors = append(rep.Errors, err.Error())
		return
	}

	for _, b := range matches {
		if j.sender.Send(ctx, webhook, FormatMessage(b.Name)) {
			rep.Delivered++
			log.Info("birthday announced", "birthday_id", b.ID, "name", b.Name)
		} else {
			rep.Failed++
		}
	}
}
