package util

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses the standard five-field format (minute, hour, day, month, weekday).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DailySpec builds the cron expression that fires once a day at hour:minute.
func DailySpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// NextCronTime returns the next occurrence of cronExpr after from, evaluated in loc.
func NextCronTime(cronExpr string, from time.Time, loc *time.Location) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return schedule.Next(from.In(loc)), nil
}

// CronLogger adapts slog to the cron.Logger interface.
type CronLogger struct {
	Log *slog.Logger
}

var _ cron.Logger = CronLogger{}

// Info is noisy in robfig/cron (every wake-up), so it goes to debug.
func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Log.Debug("cron: "+msg, keysAndValues...)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
