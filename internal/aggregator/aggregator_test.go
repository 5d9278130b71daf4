package aggregator

import (
	"HealthScan/internal/domain"
	probe "HealthScan/internal/probes"
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProbe returns the value in params["value"] after params["delay"],
// or panics when params["panic"] is set.
type scriptedProbe struct {
	kind     domain.Kind
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (p *scriptedProbe) Kind() domain.Kind { return p.kind }

func (p *scriptedProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (probe.Observation, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if _, ok := spec.Params["panic"]; ok {
		panic("scripted failure")
	}
	if d, ok := spec.Params["delay"].(time.Duration); ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return probe.Observation{}, ctx.Err()
		}
	}

	v, _ := spec.Params["value"].(float64)
	return probe.Observation{Value: domain.NumberValue(v)}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func diskSpec(name string, value float64, delay time.Duration) domain.ProbeSpec {
	return domain.ProbeSpec{
		Name: name,
		Kind: domain.DiskUsage,
		Params: map[string]interface{}{
			"value": value,
			"delay": delay,
		},
	}
}

func diskRules() domain.RuleSet {
	return domain.NewRuleSet(nil, map[domain.Kind]domain.ThresholdRule{
		domain.DiskUsage: {WarnAt: domain.Float(80), CriticalAt: domain.Float(95)},
	})
}

func TestRunKeepsConfigurationOrder(t *testing.T) {
	fake := &scriptedProbe{kind: domain.DiskUsage}
	agg := New(probe.NewFactory(fake), diskRules(), Options{Concurrency: 4}, quietLogger())

	specs := []domain.ProbeSpec{
		diskSpec("slowest", 10, 80*time.Millisecond),
		diskSpec("slow", 85, 40*time.Millisecond),
		diskSpec("fast", 96, 0),
		diskSpec("medium", 20, 20*time.Millisecond),
	}

	report, err := agg.Run(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	for i, spec := range specs {
		assert.Equal(t, spec.Name, report.Results[i].Name)
	}
	assert.Equal(t, domain.SeverityOK, report.Results[0].Severity)
	assert.Equal(t, domain.SeverityWarn, report.Results[1].Severity)
	assert.Equal(t, domain.SeverityCritical, report.Results[2].Severity)
	assert.Equal(t, domain.SeverityCritical, report.OverallSeverity)
	assert.NotEmpty(t, report.ID)
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	fake := &scriptedProbe{kind: domain.DiskUsage}
	agg := New(probe.NewFactory(fake), diskRules(), Options{Concurrency: 2}, quietLogger())

	var specs []domain.ProbeSpec
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		specs = append(specs, diskSpec(name, 1, 20*time.Millisecond))
	}

	_, err := agg.Run(context.Background(), specs)
	require.NoError(t, err)
	assert.LessOrEqual(t, fake.maxSeen.Load(), int32(2))
}

func TestRunRejectsDuplicateNames(t *testing.T) {
	fake := &scriptedProbe{kind: domain.DiskUsage}
	agg := New(probe.NewFactory(fake), diskRules(), Options{}, quietLogger())

	report, err := agg.Run(context.Background(), []domain.ProbeSpec{
		diskSpec("root", 1, 0),
		diskSpec("root", 2, 0),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateProbe)
	assert.Nil(t, report)
	assert.Equal(t, int32(0), fake.maxSeen.Load(), "no probe may run")
}

func TestRunIsolatesTimeouts(t *testing.T) {
	fake := &scriptedProbe{kind: domain.DiskUsage}
	agg := New(probe.NewFactory(fake), diskRules(), Options{ProbeTimeout: 50 * time.Millisecond}, quietLogger())

	start := time.Now()
	report, err := agg.Run(context.Background(), []domain.ProbeSpec{
		diskSpec("hangs", 1, time.Minute),
		diskSpec("fine", 1, 0),
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, domain.SeverityUnknown, report.Results[0].Severity)
	assert.Equal(t, "timeout", report.Results[0].ErrorDetail)
	assert.Equal(t, domain.SeverityOK, report.Results[1].Severity)
	assert.Equal(t, domain.SeverityUnknown, report.OverallSeverity)
}

func TestRunContainsFaults(t *testing.T) {
	fake := &scriptedProbe{kind: domain.DiskUsage}
	agg := New(probe.NewFactory(fake), diskRules(), Options{}, quietLogger())

	panicky := diskSpec("panicky", 0, 0)
	panicky.Params["panic"] = true

	report, err := agg.Run(context.Background(), []domain.ProbeSpec{
		panicky,
		{Name: "no-probe", Kind: domain.ServiceStatus, Target: "nginx"},
		diskSpec("healthy", 5, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SeverityUnknown, report.Results[0].Severity)
	assert.Contains(t, report.Results[0].Reason, "scripted failure")
	assert.Equal(t, domain.SeverityUnknown, report.Results[1].Severity)
	assert.Contains(t, report.Results[1].Reason, "unknown")
	assert.Equal(t, domain.SeverityOK, report.Results[2].Severity)
}

func TestRunEmpty(t *testing.T) {
	agg := New(probe.NewFactory(), domain.RuleSet{}, Options{}, quietLogger())

	report, err := agg.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, domain.SeverityOK, report.OverallSeverity)
}

func TestRunCancelled(t *testing.T) {
	fake := &scriptedProbe{kind: domain.DiskUsage}
	agg := New(probe.NewFactory(fake), diskRules(), Options{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	report, err := agg.Run(ctx, []domain.ProbeSpec{diskSpec("long", 1, time.Minute)})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "cancelled", report.Results[0].ErrorDetail)
}
