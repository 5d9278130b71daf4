package notifier

import (
	"context"
	"log/slog"
)

// LogSink writes one structured record per result that needs attention.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("sink", "log")}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	s.logger.WarnContext(ctx, "Health report needs attention",
		"run_id", n.RunID,
		"host", n.Host,
		"overall", n.Overall.String(),
	)

	for _, r := range n.Results {
		s.logger.WarnContext(ctx, "Probe not OK",
			"run_id", n.RunID,
			"probe", r.Name,
			"kind", r.Kind,
			"severity", r.Severity.String(),
			"value", r.Value.String(),
			"reason", r.Reason,
		)
	}

	for _, c := range n.Changes {
		from := c.From
		if from == "" {
			from = "new"
		}
		s.logger.InfoContext(ctx, "Severity changed",
			"run_id", n.RunID,
			"probe", c.Name,
			"from", from,
			"to", c.To,
		)
	}
	return nil
}
