package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/birthday-buddy/pkg/queue"
)

// Task type names
const (
	TypeBirthdayRun = "birthday:run"
)

// uniqueWindow stops a second manual run being queued while one is pending.
const uniqueWindow = 5 * time.Minute

// BirthdayRunPayload identifies who asked for a manual run.
type BirthdayRunPayload struct {
	RequestedBy uuid.UUID `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewBirthdayRunTask(payload BirthdayRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBirthdayRun, data,
		asynq.Queue(queue.QueueCritical),
		asynq.MaxRetry(0),
		asynq.Unique(uniqueWindow),
	), nil
}
