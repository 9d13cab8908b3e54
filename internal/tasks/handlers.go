package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/birthday-buddy/internal/metrics"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/hugh/birthday-buddy/pkg/util"
)

// Runner executes the daily job body.
type Runner interface {
	RunFor(ctx context.Context, trigger string) reminder.Report
}

type Handler struct {
	runner Runner
	logger *slog.Logger
}

func NewHandler(runner Runner, logger *slog.Logger) *Handler {
	return &Handler{
		runner: runner,
		logger: util.OrDiscard(logger),
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeBirthdayRun, h.HandleBirthdayRun)
}

// HandleBirthdayRun runs the job. Delivery failures live in the report and
// are not retried by the queue.
func (h *Handler) HandleBirthdayRun(ctx context.Context, t *asynq.Task) error {
	var payload BirthdayRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	h.logger.Info("starting queued birthday run",
		"requested_by", payload.RequestedBy,
		"requested_at", payload.RequestedAt,
	)

	rep := h.runner.RunFor(ctx, metrics.TriggerQueue)

	if w := t.ResultWriter(); w != nil {
		if data, err := json.Marshal(rep); err == nil {
			if _, err := w.Write(data); err != nil {
				h.logger.Warn("writing task result", "error", err)
			}
		}
	}
	return nil
}
