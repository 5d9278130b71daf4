package probe

import (
	"HealthScan/internal/domain"
	"fmt"
)

// Factory is the dispatch table from probe kind to implementation.
type Factory struct {
	probes map[domain.Kind]Probe
}

func NewFactory(probes ...Probe) *Factory {
	f := &Factory{probes: make(map[domain.Kind]Probe, len(probes))}
	for _, p := range probes {
		f.probes[p.Kind()] = p
	}
	return f
}

// NewDefaultFactory registers the built-in probe for every kind.
func NewDefaultFactory() *Factory {
	return NewFactory(
		NewServiceProbe(nil),
		NewDiskProbe(),
		NewLogPatternProbe(),
		NewProcessProbe(),
		NewCommandProbe(),
		NewMemoryProbe(),
		NewTCPProbe(),
		NewDNSProbe(),
		NewHTTPProbe(),
	)
}

func (f *Factory) GetProbe(kind domain.Kind) (Probe, error) {
	p, ok := f.probes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownKind, kind)
	}
	return p, nil
}

// Supports reports whether every spec has a registered probe.
func (f *Factory) Supports(specs []domain.ProbeSpec) error {
	for _, s := range specs {
		if _, err := f.GetProbe(s.Kind); err != nil {
			return fmt.Errorf("probe %q: %w", s.Name, err)
		}
	}
	return nil
}
