package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "birthday"

// Notification results.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// Job triggers.
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
	TriggerQueue  = "queue"
)

// Collector is a prometheus.Collector for the reminder pipeline. A nil
// *Collector is valid and records nothing.
type Collector struct {
	notifications *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   prometheus.Histogram
	cacheRequests *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "notifications_total",
				Help:      "Slack birthday notifications by result.",
			}, []string{"result"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "job_runs_total",
				Help:      "Daily birthday job runs by trigger.",
			}, []string{"trigger"},
		),
		jobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "job_duration_seconds",
				Help:      "Wall time of a birthday job run.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by entity kind and outcome.",
			}, []string{"kind", "outcome"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.notifications.Describe(ch)
	c.jobRuns.Describe(ch)
	c.jobDuration.Describe(ch)
	c.cacheRequests.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.notifications.Collect(ch)
	c.jobRuns.Collect(ch)
	c.jobDuration.Collect(ch)
	c.cacheRequests.Collect(ch)
}

func (c *Collector) Notification(result string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(result).Inc()
}

func (c *Collector) JobRun(trigger string, took time.Duration) {
	if c == nil {
		return
	}
	c.jobRuns.WithLabelValues(trigger).Inc()
	c.jobDuration.Observe(took.Seconds())
}

func (c *Collector) CacheLookup(kind, outcome string) {
	if c == nil {
		return
	}
	c.cacheRequests.WithLabelValues(kind, outcome).Inc()
}
