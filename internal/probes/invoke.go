package probe

import (
	"HealthScan/internal/domain"
	"HealthScan/internal/shared/constants"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// FaultError is an unexpected failure inside a probe, as opposed to the
// probe reporting that its target is unhealthy or unreachable.
type FaultError struct {
	Probe string
	Value interface{}
	Stack []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("probe %s panicked: %v", e.Probe, e.Value)
}

type outcome struct {
	obs Observation
	err error
}

// Invoke runs a probe under its own deadline and always returns a result.
// A timeout set on the probe wins over the given default. A non-nil error is only
// returned for faults; the result then already describes the failure.
func Invoke(ctx context.Context, p Probe, spec domain.ProbeSpec, timeout time.Duration) (domain.ProbeResult, error) {
	startedAt := time.Now().UTC()

	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}
	if timeout <= 0 {
		timeout = constants.DefaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &FaultError{Probe: spec.Name, Value: r, Stack: debug.Stack()}}
			}
		}()
		obs, err := p.Execute(ctx, spec)
		done <- outcome{obs: obs, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil {
			return domain.NewSuccessResult(spec, startedAt, out.obs.Value, out.obs.Details), nil
		}
		var fault *FaultError
		if errors.As(out.err, &fault) {
			return domain.NewErrorResult(spec, startedAt, fault.Error()), fault
		}
		if ctx.Err() != nil {
			return domain.NewErrorResult(spec, startedAt, contextDetail(ctx)), nil
		}
		return domain.NewErrorResult(spec, startedAt, out.err.Error()), nil
	case <-ctx.Done():
		return domain.NewErrorResult(spec, startedAt, contextDetail(ctx)), nil
	}
}

func contextDetail(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrTimeout.Error()
	}
	return "cancelled"
}
