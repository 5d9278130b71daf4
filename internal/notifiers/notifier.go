package notifier

import (
	"HealthScan/internal/domain"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrNotify = errors.New("notification failed")

// Notification is what sinks receive for one run: the results that were
// not OK plus the severity changes since the previous run.
type Notification struct {
	RunID       string                   `json:"run_id"`
	Host        string                   `json:"host"`
	GeneratedAt time.Time                `json:"generated_at"`
	Overall     domain.Severity          `json:"overall_severity"`
	Results     []domain.EvaluatedResult `json:"results"`
	Changes     []domain.Change          `json:"changes,omitempty"`
}

func NewNotification(report *domain.Report, changes []domain.Change) Notification {
	host, _ := os.Hostname()
	return Notification{
		RunID:       report.ID,
		Host:        host,
		GeneratedAt: report.GeneratedAt,
		Overall:     report.OverallSeverity,
		Results:     report.NonOK(),
		Changes:     changes,
	}
}

// Summary is a one-line description used by sinks that need a title.
func (n Notification) Summary() string {
	return fmt.Sprintf("%s: %s, %d probe(s) need attention", n.Host, n.Overall, len(n.Results))
}

type Sink interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher delivers a notification to every sink once. Sinks run
// concurrently and one failing sink does not stop the others.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

func NewDispatcher(sinks []Sink, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger.With("component", "notifier"),
	}
}

func (d *Dispatcher) Sinks() []Sink {
	return d.sinks
}

func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	if len(d.sinks) == 0 {
		return nil
	}

	errs := make([]error, len(d.sinks))

	var g errgroup.Group
	for i, sink := range d.sinks {
		g.Go(func() error {
			sinkCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := sink.Notify(sinkCtx, n); err != nil {
				d.logger.Warn("Notification sink failed",
					"sink", sink.Name(),
					"run_id", n.RunID,
					"error", err,
				)
				errs[i] = fmt.Errorf("%w: %s: %w", ErrNotify, sink.Name(), err)
				return nil
			}

			d.logger.Debug("Notification delivered", "sink", sink.Name(), "run_id", n.RunID)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
