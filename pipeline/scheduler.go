package pipeline

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"ride-etl/config"
	"ride-etl/utils"
)

// PipelineRunner is what the scheduler triggers.
type PipelineRunner interface {
	Run(ctx context.Context) (*RunResult, error)
}

// Scheduler triggers pipeline runs on a cron schedule. A trigger that fires
// while the previous run is still going is skipped.
type Scheduler struct {
	runner   PipelineRunner
	logger   *utils.Logger
	spec     string
	schedule cron.Schedule
	location *time.Location
}

// NewScheduler validates the schedule and timezone of cfg.
func NewScheduler(cfg *config.Config, runner PipelineRunner, logger *utils.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler: timezone %q: %w", cfg.Timezone, err)
	}
	sched, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("scheduler: schedule %q: %w", cfg.Schedule, err)
	}
	return &Scheduler{
		runner:   runner,
		logger:   logger.Named("scheduler"),
		spec:     cfg.Schedule,
		schedule: sched,
		location: loc,
	}, nil
}

// Next returns the first trigger time after t, in the scheduler's timezone.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Start runs the schedule until ctx is cancelled, then waits for an
// in-flight run to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(s.logger.StandardLogger())
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.runner.Run(ctx); err != nil {
			s.logger.Error("Scheduled run failed: %v", err)
		}
	}))

	c.Start()
	s.logger.Info("Scheduler started (%s, %s), next run at %s",
		s.spec, s.location, s.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	s.logger.Info("Stopping scheduler")
	<-c.Stop().Done()
	return nil
}
