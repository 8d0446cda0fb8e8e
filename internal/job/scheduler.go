// Package job holds the periodic background tasks of the server.
package job

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// NewScheduler returns a cron scheduler that logs through log, recovers
// from panicking jobs and never runs two instances of a job at once.
func NewScheduler(log *slog.Logger) *cron.Cron {
	logger := cron.PrintfLogger(slog.NewLogLogger(log.Handler(), slog.LevelInfo))

	return cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
}

// Schedule registers j under schedule, a standard cron expression or a
// descriptor such as "@every 1h".
func Schedule(c *cron.Cron, schedule string, j cron.Job) error {
	if _, err := c.AddJob(schedule, j); err != nil {
		return fmt.Errorf("job.Schedule: %q: %w", schedule, err)
	}
	return nil
}
