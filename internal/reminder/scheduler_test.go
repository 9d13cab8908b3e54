package reminder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type staticWorkspaces struct {
	items []models.Workspace
}

func (s *staticWorkspaces) ListWithSecrets(context.Context) ([]models.Workspace, error) {
	return s.items, nil
}

func (s *staticWorkspaces) WebhookURL(ws *models.Workspace) (string, error) {
	return ws.SlackWebhook, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Send(_ context.Context, url, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, url+" "+text)
	return url != ""
}

func newTestScheduler(t *testing.T, now time.Time) (*reminder.Scheduler, *recordingSender) {
	t.Helper()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ws := models.Workspace{Base: models.Base{ID: uuid.New()}, Name: "Acme", Timezone: "UTC", SlackWebhook: "https://hooks.example/acme"}
	lister := &fakeBirthdays{byWorkspace: map[uuid.UUID][]models.Birthday{
		ws.ID: {bday("Ada", 1990, now.Month(), now.Day(), ws.ID)},
	}}
	sender := &recordingSender{}
	job := reminder.NewJob(&staticWorkspaces{items: []models.Workspace{ws}}, reminder.NewMatcher(lister, testclock.NewClock(now)), sender, reminder.JobOptions{})
	return reminder.NewScheduler(job, reminder.SchedulerConfig{Hour: 9, Minute: 0, Location: ny}, nil), sender
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, _ := newTestScheduler(t, time.Now())
	assert.Equal(t, "0 9 * * *", s.Spec())
	assert.False(t, s.IsRunning())
	assert.Equal(t, 0, s.EntryCount())

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Equal(t, 1, s.EntryCount())

	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Equal(t, 0, s.EntryCount())
}

func TestScheduler_StopWhenStopped(t *testing.T) {
	s, _ := newTestScheduler(t, time.Now())
	assert.NoError(t, s.Stop(context.Background()))

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_RestartRegistersOneEntry(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, _ := newTestScheduler(t, time.Now())
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Start())
		assert.Equal(t, 1, s.EntryCount())
		require.NoError(t, s.Stop(context.Background()))
	}
}

func TestScheduler_NextRunIsNineNewYork(t *testing.T) {
	// 2024-01-10 12:00 UTC is 07:00 in New York, so the next run is the same day.
	now := time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(t, now)

	next := s.NextRun()
	ny := s.Location()
	assert.Equal(t, time.Date(2024, time.January, 10, 9, 0, 0, 0, ny), next.In(ny))
	assert.Equal(t, "America/New_York", ny.String())
}

func TestScheduler_RunNow(t *testing.T) {
	now := time.Date(2024, time.June, 1, 13, 0, 0, 0, time.UTC)
	s, sender := newTestScheduler(t, now)

	rep := s.RunNow(context.Background())

	assert.Equal(t, 1, rep.Workspaces)
	assert.Equal(t, 1, rep.Delivered)
	assert.Equal(t, []string{"https://hooks.example/acme 🎂 Happy Birthday, *Ada*! :tada:"}, sender.sent)
	assert.False(t, s.IsRunning())
}
