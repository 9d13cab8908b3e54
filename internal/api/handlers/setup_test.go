package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/birthday-buddy/internal/api"
	"github.com/hugh/birthday-buddy/internal/auth"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/notify"
	"github.com/hugh/birthday-buddy/internal/reminder"
	"github.com/hugh/birthday-buddy/internal/testutil"
	"github.com/hugh/birthday-buddy/internal/users"
	"github.com/hugh/birthday-buddy/internal/workspaces"
	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus"
)

// testNow is the pinned instant for the birthday matcher. The fixture user
// from testutil was born on Nov 20.
var testNow = time.Date(2024, time.November, 20, 12, 0, 0, 0, time.UTC)

type slackSink struct {
	mu       sync.Mutex
	status   int
	messages []string
}

func (s *slackSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func (s *slackSink) FailWith(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: "critical", Type: task.Type()}, nil
}

type testEnv struct {
	*testutil.TestSetup
	Router     http.Handler
	Sink       *slackSink
	SlackURL   string
	Enqueuer   *fakeEnqueuer
	Birthdays  *birthdays.Service
	Workspaces *workspaces.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return buildEnv(t, &fakeEnqueuer{})
}

func buildEnv(t *testing.T, enq *fakeEnqueuer) *testEnv {
	t.Helper()

	tc := testutil.NewTestContext(t)

	sink := &slackSink{status: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		sink.mu.Lock()
		sink.messages = append(sink.messages, body.Text)
		status := sink.status
		sink.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	bsvc := birthdays.NewService(tc.DB, tc.Cache, nil)
	wsvc := workspaces.NewService(tc.DB, tc.Cache, tc.Encryptor, nil)
	usvc := users.NewService(tc.DB, tc.Cache, bsvc, nil)
	asvc := auth.NewService(tc.DB, tc.JWTService, tc.Cache, nil)

	matcher := reminder.NewMatcher(bsvc, testclock.NewClock(testNow))
	sender := notify.NewSlack(notify.Config{MaxAttempts: 1, BaseBackoff: time.Millisecond, Timeout: 2 * time.Second}, nil, nil)
	job := reminder.NewJob(wsvc, matcher, sender, reminder.JobOptions{})

	cfg := api.RouterConfig{
		DB:               tc.DB,
		Cache:            tc.Cache,
		JWTService:       tc.JWTService,
		AuthService:      asvc,
		UserService:      usvc,
		WorkspaceService: wsvc,
		BirthdayService:  bsvc,
		Matcher:          matcher,
		Job:              job,
		Sender:           sender,
		MetricsGatherer:  prometheus.NewRegistry(),
	}
	if enq != nil {
		cfg.Enqueuer = enq
	}

	return &testEnv{
		TestSetup:  tc,
		Router:     api.NewRouter(cfg),
		Sink:       sink,
		SlackURL:   srv.URL,
		Enqueuer:   enq,
		Birthdays:  bsvc,
		Workspaces: wsvc,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.AuthenticatedRequest(t, method, path, body, token)
	rr := httptest.NewRecorder()
	e.Router.ServeHTTP(rr, req)
	return rr
}

// list decodes the {"data": [...], "total": n} envelope.
func list[T any](t *testing.T, rr *httptest.ResponseRecorder) []T {
	t.Helper()
	var resp struct {
		Data  []T `json:"data"`
		Total int `json:"total"`
	}
	testutil.ParseJSONResponse(t, rr, &resp)
	if resp.Total != len(resp.Data) {
		t.Fatalf("total %d does not match %d items", resp.Total, len(resp.Data))
	}
	return resp.Data
}
