// Package jobs runs the periodic maintenance tasks of the API on a cron
// schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one unit of periodic work. It returns a short summary of what it
// did for the log, e.g. the number of rows touched.
type Task func(ctx context.Context) (int64, error)

// Scheduler wraps a cron runner whose jobs never overlap themselves and
// never crash the process.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a Scheduler. Each run gets its own context bounded by timeout.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	return &Scheduler{cron: c, logger: logger, timeout: timeout, ctx: ctx, cancel: cancel}
}

// Add registers task under name. An empty spec disables the task.
func (s *Scheduler) Add(name, spec string, task Task) error {
	if spec == "" {
		s.logger.Info("job disabled", slog.String("job", name))
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	s.logger.Info("job scheduled", slog.String("job", name), slog.String("spec", spec))
	return nil
}

// RunNow executes task once, synchronously.
func (s *Scheduler) RunNow(name string, task Task) {
	s.run(name, task)
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := task(ctx)
	if err != nil {
		s.logger.Error("job failed",
			slog.String("job", name),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return
	}
	s.logger.Info("job finished",
		slog.String("job", name),
		slog.Int64("affected", n),
		slog.Duration("elapsed", time.Since(start)),
	)
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels the running ones and waits for them until
// ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
