package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	c.Notification(ResultDelivered)
	c.Notification(ResultDelivered)
	c.Notification(ResultFailed)
	c.JobRun(TriggerCron, 2*time.Second)
	c.CacheLookup("birthdays", "hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.notifications.WithLabelValues(ResultDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues(ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobRuns.WithLabelValues(TriggerCron)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheRequests.WithLabelValues("birthdays", "hit")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Notification(ResultSkipped)
		c.JobRun(TriggerManual, time.Second)
		c.CacheLookup("users", "miss")
	})
}
