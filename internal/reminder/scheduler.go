package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hugh/birthday-buddy/internal/metrics"
	"github.com/hugh/birthday-buddy/pkg/util"
	"github.com/robfig/cron/v3"
)

type SchedulerConfig struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Scheduler fires the job once a day. Start and Stop are idempotent and at
// most one cron entry exists while running.
type Scheduler struct {
	job    *Job
	spec   string
	loc    *time.Location
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc
	running bool
}

func NewScheduler(job *Job, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		job:    job,
		spec:   util.DailySpec(cfg.Hour, cfg.Minute),
		loc:    cfg.Location,
		logger: util.OrDiscard(logger),
	}
}

// Spec is the cron expression the scheduler registers.
func (s *Scheduler) Spec() string {
	return s.spec
}

func (s *Scheduler) Location() *time.Location {
	return s.loc
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	cl := util.CronLogger{Log: s.logger}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	id, err := c.AddFunc(s.spec, func() {
		s.job.RunFor(runCtx, metrics.TriggerCron)
	})
	if err != nil {
		cancel()
		return err
	}

	c.Start()
	s.cron = c
	s.entry = id
	s.cancel = cancel
	s.running = true

	s.logger.Info("scheduler started", "spec", s.spec, "timezone", s.loc.String())
	return nil
}

// Stop removes the cron entry and waits for an in-flight run until ctx is
// done, at which point the run's context is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel, entry := s.cron, s.cancel, s.entry
	s.cron, s.cancel, s.entry, s.running = nil, nil, 0, false
	s.mu.Unlock()

	c.Remove(entry)
	done := c.Stop()
	defer cancel()

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out, cancelling in-flight run")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// EntryCount is the number of registered cron entries.
func (s *Scheduler) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// NextRun returns the next fire time. When stopped it is what the next run
// would be if started now.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			return next
		}
	}
	next, err := util.NextCronTime(s.spec, s.job.matcher.Now(), s.loc)
	if err != nil {
		return time.Time{}
	}
	return next
}

// RunNow runs the job synchronously on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) Report {
	return s.job.RunFor(ctx, metrics.TriggerManual)
}
