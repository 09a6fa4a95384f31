package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/xhad/newsbrief/pkg/logging"
)

// Runner executes one full pipeline run.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Scheduler runs a Runner immediately and then every interval. Runs never
// overlap and the interval counts from the end of the previous run, so a
// run longer than the interval does not trigger an immediate follow-up.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if runTimeout <= 0 {
		runTimeout = time.Hour
	}
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
			// Discard the tick buffered while the run was busy.
			select {
			case <-ticker.C:
			default:
			}
			ticker.Reset(s.interval)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	logger := s.logger.With("run_id", uuid.NewString())
	runCtx = logging.Into(runCtx, logger)

	start := time.Now()
	if err := s.runner.Run(runCtx); err != nil {
		logger.Error("pipeline run failed", "error", err, "elapsed", time.Since(start))
		return
	}
	logger.Info("pipeline run finished", "elapsed", time.Since(start))
}
