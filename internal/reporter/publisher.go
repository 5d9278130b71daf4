package reporter

import (
	"HealthScan/internal/domain"
	notifier "HealthScan/internal/notifiers"
	"HealthScan/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var ErrHistory = errors.New("history update failed")

// Dispatcher delivers a notification to every configured sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, n notifier.Notification) error
}

type Options struct {
	Format      Format
	MinSeverity domain.Severity
	// Stdout receives a copy of the rendered report when set.
	Stdout io.Writer
	// Keep is the number of reports retained in history, 0 for all.
	Keep int
}

// Publisher turns a finished report into its outputs: the report file,
// the history entry and the notification.
type Publisher struct {
	writer     *Writer
	history    storage.HistoryStore
	dispatcher Dispatcher
	opts       Options
	logger     *slog.Logger
}

func NewPublisher(writer *Writer, history storage.HistoryStore, dispatcher Dispatcher, opts Options, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = storage.NewNopStore()
	}
	if opts.Format == "" {
		opts.Format = FormatText
	}
	return &Publisher{
		writer:     writer,
		history:    history,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger.With("component", "reporter"),
	}
}

// Publish writes the report exactly once, records it in history and
// notifies when it is severe enough and the cycle was not interrupted. Only a failed report write or history
// update is returned; notification failures are logged.
func (p *Publisher) Publish(ctx context.Context, report *domain.Report) error {
	changes := p.trend(ctx, report)

	var errs []error

	if p.writer != nil && p.writer.Enabled() {
		path, err := p.writer.Write(report, changes, p.opts.Format)
		if err != nil {
			p.logger.Error("Failed to write report", "run_id", report.ID, "path", path, "error", err)
			errs = append(errs, err)
		} else {
			p.logger.Info("Report written", "run_id", report.ID, "path", path, "format", p.opts.Format)
		}
	}

	if p.opts.Stdout != nil {
		if err := Render(p.opts.Stdout, p.opts.Format, report, changes); err != nil {
			errs = append(errs, fmt.Errorf("%w: stdout: %w", ErrReportWrite, err))
		}
	}

	if err := p.history.Save(ctx, report); err != nil {
		p.logger.Error("Failed to save report history", "run_id", report.ID, "error", err)
		errs = append(errs, fmt.Errorf("%w: %w", ErrHistory, err))
	} else if err := p.history.Prune(ctx, p.opts.Keep); err != nil {
		p.logger.Warn("Failed to prune report history", "keep", p.opts.Keep, "error", err)
	}

	p.notify(ctx, report, changes)

	return errors.Join(errs...)
}

// trend compares against the previous report. History problems only cost
// the trend, never the run.
func (p *Publisher) trend(ctx context.Context, report *domain.Report) []domain.Change {
	prev, err := p.history.Latest(ctx)
	if err != nil {
		p.logger.Warn("Failed to load previous report", "error", err)
		return nil
	}

	changes := domain.Diff(prev, report)
	for _, c := range changes {
		if c.From == "" {
			p.logger.Info("New probe", "probe", c.Name, "severity", c.To)
			continue
		}
		p.logger.Info("Severity changed", "probe", c.Name, "from", c.From, "to", c.To)
	}
	return changes
}

func (p *Publisher) notify(ctx context.Context, report *domain.Report, changes []domain.Change) {
	if p.dispatcher == nil || !report.OverallSeverity.AtLeast(p.opts.MinSeverity) {
		return
	}
	if report.Interrupted {
		p.logger.Info("Skipping notification for interrupted cycle", "run_id", report.ID, "overall", report.OverallSeverity)
		return
	}

	n := notifier.NewNotification(report, changes)
	if err := p.dispatcher.Dispatch(ctx, n); err != nil {
		p.logger.Warn("Notification incomplete", "run_id", report.ID, "error", err)
	}
}
