package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. Its error is logged; the schedule continues.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron and owns the daemon loop.
type Scheduler struct {
	spec   string // cron spec, e.g. "@every 1h" or "0 9-21 * * *"
	job    Job
	logger *slog.Logger
}

// NewScheduler creates a scheduler that fires job on spec.
func NewScheduler(spec string, job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{spec: spec, job: job, logger: logger}
}

// Run runs one immediate cycle, then fires on the cron spec until ctx is
// cancelled. A tick that arrives while the previous cycle is still running is
// skipped. Returns nil on graceful shutdown, after the running cycle ends.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))

	if _, err := c.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.spec, err)
	}

	s.logger.Info("starting scheduler", "spec", s.spec)

	// Run one immediate cycle before the first tick.
	s.runOnce(ctx)
	if ctx.Err() != nil {
		s.logger.Info("shutting down scheduler")
		return nil
	}

	c.Start()
	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
