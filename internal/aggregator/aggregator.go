package aggregator

import (
	"HealthScan/internal/domain"
	"HealthScan/internal/policy"
	probe "HealthScan/internal/probes"
	"HealthScan/internal/shared/constants"
	"HealthScan/pkg/uuidutil"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	Concurrency  int
	ProbeTimeout time.Duration
}

// Aggregator runs one evaluation cycle over a fixed set of probes.
type Aggregator struct {
	factory      *probe.Factory
	rules        domain.RuleSet
	concurrency  int
	probeTimeout time.Duration
	newID        func() string
	now          func() time.Time
	logger       *slog.Logger
}

func New(factory *probe.Factory, rules domain.RuleSet, opts Options, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = constants.DefaultConcurrency
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = constants.DefaultProbeTimeout
	}

	return &Aggregator{
		factory:      factory,
		rules:        rules,
		concurrency:  opts.Concurrency,
		probeTimeout: opts.ProbeTimeout,
		newID:        uuidutil.New,
		now:          time.Now,
		logger:       logger.With("component", "aggregator"),
	}
}

// Run executes every probe and returns the sealed report. Results keep the
// order of specs whatever order the probes finish in. Duplicate names are
// rejected before any probe runs.
func (a *Aggregator) Run(ctx context.Context, specs []domain.ProbeSpec) (*domain.Report, error) {
	if err := domain.ValidateSpecs(specs); err != nil {
		return nil, err
	}

	startedAt := a.now().UTC()
	results := make([]domain.EvaluatedResult, len(specs))

	var g errgroup.Group
	g.SetLimit(min(len(specs), a.concurrency))

	for i, spec := range specs {
		g.Go(func() error {
			results[i] = a.runOne(ctx, spec)
			return nil
		})
	}
	_ = g.Wait()

	report := domain.NewReport(a.newID(), startedAt, a.now().Sub(startedAt), results)

	counts := report.Counts()
	a.logger.Info("Cycle completed",
		"run_id", report.ID,
		"overall", report.OverallSeverity.String(),
		"probes", len(report.Results),
		"warn", counts[domain.SeverityWarn],
		"critical", counts[domain.SeverityCritical],
		"unknown", counts[domain.SeverityUnknown],
		"duration_ms", report.RunDurationMs,
	)

	return report, nil
}

// runOne never panics: any fault becomes an UNKNOWN result for the probe.
func (a *Aggregator) runOne(ctx context.Context, spec domain.ProbeSpec) (evaluated domain.EvaluatedResult) {
	startedAt := time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			fault := &probe.FaultError{Probe: spec.Name, Value: r, Stack: debug.Stack()}
			a.logFault(spec, fault)
			evaluated = policy.Evaluate(domain.NewErrorResult(spec, startedAt, fault.Error()), a.rules)
		}
	}()

	p, err := a.factory.GetProbe(spec.Kind)
	if err != nil {
		a.logger.Error("No probe for kind", "probe", spec.Name, "kind", spec.Kind, "error", err)
		return policy.Evaluate(domain.NewErrorResult(spec, startedAt, err.Error()), a.rules)
	}

	a.logger.Debug("Running probe",
		"probe", spec.Name,
		"kind", spec.Kind,
		"target", spec.Target,
	)

	result, err := probe.Invoke(ctx, p, spec, a.probeTimeout)
	if err != nil {
		var fault *probe.FaultError
		if errors.As(err, &fault) {
			a.logFault(spec, fault)
		} else {
			a.logger.Error("Probe invocation failed", "probe", spec.Name, "error", err)
		}
	} else if !result.Success {
		a.logger.Warn("Probe failed",
			"probe", spec.Name,
			"kind", spec.Kind,
			"error", result.ErrorDetail,
			"duration_ms", result.DurationMs,
		)
	}

	evaluated = policy.Evaluate(result, a.rules)
	if evaluated.Severity != domain.SeverityOK {
		a.logger.Debug("Probe not OK",
			"probe", spec.Name,
			"severity", evaluated.Severity.String(),
			"reason", evaluated.Reason,
		)
	}
	return evaluated
}

func (a *Aggregator) logFault(spec domain.ProbeSpec, fault *probe.FaultError) {
	a.logger.Error("Probe fault",
		"probe", spec.Name,
		"kind", spec.Kind,
		"error", fmt.Sprint(fault.Value),
		"stack", string(fault.Stack),
	)
}
