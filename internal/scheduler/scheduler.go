package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/foodtruck/salesync/internal/logger"
	"github.com/foodtruck/salesync/internal/syncer"
)

// Scheduler fires sync runs on a fixed cron schedule. Expressions use six
// fields with seconds first (e.g. "0 30 7 * * *" for 07:30:00 daily). Runs
// are not triggered at startup; the first fire waits for the schedule.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
	}
}

// Add binds a cron expression to the sync service. Each fire runs with its
// own timeout; a fire that lands while a run is still in flight is skipped.
func (s *Scheduler) Add(spec string, timeout time.Duration, svc *syncer.Service) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if _, err := svc.Run(ctx); err != nil {
			if errors.Is(err, syncer.ErrRunInProgress) {
				logger.L.Warn("scheduled sync skipped, previous run still in flight")
				return
			}
			// Already logged by the service; the next scheduled fire is the
			// retry mechanism.
		}
	})
	return err
}

// Start begins firing scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for an in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
