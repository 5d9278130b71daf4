package probe

import (
	"HealthScan/internal/domain"
	"context"
)

// Probe executes one kind of check. Execute must only read system state.
type Probe interface {
	Kind() domain.Kind
	Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error)
}

// Observation is what a probe saw on a successful execution.
type Observation struct {
	Value   domain.RawValue
	Details map[string]string
}

func observe(value domain.RawValue, details map[string]string) Observation {
	return Observation{Value: value, Details: details}
}
