package scheduler

import (
	"HealthScan/internal/domain"
	"HealthScan/internal/shared/constants"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Cycle evaluates every probe once.
type Cycle interface {
	Run(ctx context.Context, specs []domain.ProbeSpec) (*domain.Report, error)
}

// Publisher persists and announces a finished report.
type Publisher interface {
	Publish(ctx context.Context, report *domain.Report) error
}

type Options struct {
	CycleTimeout   time.Duration
	PublishTimeout time.Duration
}

// Runner drives cycles and turns their reports into exit codes.
type Runner struct {
	cycle     Cycle
	publisher Publisher
	specs     []domain.ProbeSpec
	opts      Options
	logger    *slog.Logger
}

func NewRunner(cycle Cycle, publisher Publisher, specs []domain.ProbeSpec, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = constants.DefaultCycleTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = constants.DefaultPublishTimeout
	}
	return &Runner{
		cycle:     cycle,
		publisher: publisher,
		specs:     specs,
		opts:      opts,
		logger:    logger.With("component", "runner"),
	}
}

// RunOnce runs a single cycle and publishes its report. The exit code comes
// from the report's severity alone; a publish failure is returned as the
// error next to it. A cycle that could not start returns ExitConfigError.
func (r *Runner) RunOnce(ctx context.Context) (int, *domain.Report, error) {
	cycleCtx, cancel := context.WithTimeout(ctx, r.opts.CycleTimeout)
	defer cancel()

	report, err := r.cycle.Run(cycleCtx, r.specs)
	if err != nil {
		return constants.ExitConfigError, nil, fmt.Errorf("cycle rejected: %w", err)
	}

	// The report of a cancelled cycle is still written, but it is marked so
	// that shutdown does not raise an alert.
	if ctx.Err() != nil {
		report.Interrupted = true
		r.logger.Warn("Cycle interrupted", "run_id", report.ID, "error", ctx.Err())
	}

	pubCtx, pubCancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.PublishTimeout)
	defer pubCancel()

	pubErr := r.publisher.Publish(pubCtx, report)

	return report.OverallSeverity.ExitCode(), report, pubErr
}

// Watch runs cycles every interval until ctx is cancelled and returns the
// exit code of the last completed cycle. The wait between cycles starts
// when a cycle ends, so cycles never overlap.
func (r *Runner) Watch(ctx context.Context, interval time.Duration) (int, error) {
	if interval < constants.MinInterval {
		return constants.ExitConfigError, fmt.Errorf("interval %s is below the minimum of %s", interval, constants.MinInterval)
	}

	r.logger.Info("Watching", "interval", interval, "probes", len(r.specs))

	lastCode := 0
	for cycle := 1; ; cycle++ {
		code, report, err := r.RunOnce(ctx)
		if report == nil {
			return code, err
		}
		lastCode = code

		if err != nil {
			r.logger.Error("Failed to publish report", "cycle", cycle, "run_id", report.ID, "error", err)
		}

		if ctx.Err() != nil {
			r.logger.Info("Stopping watch due to context cancellation", "cycles", cycle)
			return lastCode, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("Stopping watch due to context cancellation", "cycles", cycle)
			return lastCode, nil
		case <-timer.C:
		}
	}
}
