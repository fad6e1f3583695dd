// Package scheduler runs the dedupe-cache janitor on a configurable
// interval, grounded on the teacher's cmd/root.go setupScheduler /
// scheduleDailyUpdate pair (a go-co-op/gocron/v2 Scheduler with one
// job per maintenance task) — repurposed from "daily database
// refresh" to "sweep expired dedupe entries every few seconds".
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/doismellburning/samoyed/internal/dedupe"
)

// New creates a gocron scheduler, matching the teacher's
// setupScheduler error-wrapping convention.
func New() (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return scheduler, nil
}

// ScheduleDedupeSweep registers a recurring sweep of cache at the
// given interval, logging how many stale entries each sweep removed.
func ScheduleDedupeSweep(scheduler gocron.Scheduler, chanName string, cache *dedupe.Cache, interval time.Duration, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	_, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			removed := cache.Sweep()
			if removed > 0 {
				log.Debug("scheduler: dedupe sweep removed expired entries", "chan", chanName, "removed", removed)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule dedupe sweep for %s: %w", chanName, err)
	}
	return nil
}
