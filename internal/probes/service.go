package probe

import (
	"HealthScan/internal/domain"
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
)

// UnitState is the subset of systemd unit properties the service probe reads.
type UnitState struct {
	LoadState   string
	ActiveState string
	SubState    string
}

// UnitStateReader looks up a unit's state, normally over the system bus.
type UnitStateReader interface {
	UnitState(ctx context.Context, unit string) (UnitState, error)
}

type ServiceProbe struct {
	reader UnitStateReader
}

// NewServiceProbe uses systemd over D-Bus when reader is nil.
func NewServiceProbe(reader UnitStateReader) *ServiceProbe {
	if reader == nil {
		reader = systemdReader{}
	}
	return &ServiceProbe{reader: reader}
}

func (p *ServiceProbe) Kind() domain.Kind {
	return domain.ServiceStatus
}

func (p *ServiceProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	unit := unitName(spec.Target)
	if unit == "" {
		return Observation{}, fmt.Errorf("service name is empty")
	}

	state, err := p.reader.UnitState(ctx, unit)
	if err != nil {
		return Observation{}, fmt.Errorf("query unit %s: %w", unit, err)
	}
	if state.LoadState == "not-found" {
		return Observation{}, fmt.Errorf("unit %s: %w", unit, domain.ErrTargetNotFound)
	}

	active := state.ActiveState
	if active == "" {
		active = "unknown"
	}

	return observe(domain.TextValue(active), map[string]string{
		"unit":       unit,
		"load_state": state.LoadState,
		"sub_state":  state.SubState,
	}), nil
}

func unitName(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || strings.Contains(target, ".") {
		return target
	}
	return target + ".service"
}

type systemdReader struct{}

func (systemdReader) UnitState(ctx context.Context, unit string) (UnitState, error) {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return UnitState{}, fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return UnitState{}, err
	}

	return UnitState{
		LoadState:   stringProp(props, "LoadState"),
		ActiveState: stringProp(props, "ActiveState"),
		SubState:    stringProp(props, "SubState"),
	}, nil
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
