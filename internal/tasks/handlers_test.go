package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/birthday-buddy/internal/metrics"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	triggers []string
}

func (f *fakeRunner) RunFor(_ context.Context, trigger string) reminder.Report {
	f.triggers = append(f.triggers, trigger)
	return reminder.Report{Trigger: trigger, Delivered: 2}
}

func TestNewBirthdayRunTask(t *testing.T) {
	payload := BirthdayRunPayload{RequestedBy: uuid.New(), RequestedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}

	task, err := NewBirthdayRunTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TypeBirthdayRun, task.Type())

	var decoded BirthdayRunPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, payload.RequestedBy, decoded.RequestedBy)
}

func TestHandleBirthdayRun(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(runner, nil)

	task, err := NewBirthdayRunTask(BirthdayRunPayload{RequestedBy: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, h.HandleBirthdayRun(context.Background(), task))
	assert.Equal(t, []string{metrics.TriggerQueue}, runner.triggers)
}

func TestHandleBirthdayRun_InvalidPayload(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(runner, nil)

	err := h.HandleBirthdayRun(context.Background(), asynq.NewTask(TypeBirthdayRun, []byte("invalid json")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
	assert.Empty(t, runner.triggers)
}

func TestRegisterHandlers(t *testing.T) {
	runner := &fakeRunner{}
	mux := asynq.NewServeMux()
	NewHandler(runner, nil).RegisterHandlers(mux)

	task, err := NewBirthdayRunTask(BirthdayRunPayload{RequestedBy: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Len(t, runner.triggers, 1)
}
