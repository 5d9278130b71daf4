package probe

import (
	"HealthScan/internal/domain"
	"context"
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v4/mem"
)

type MemoryProbe struct{}

func NewMemoryProbe() *MemoryProbe {
	return &MemoryProbe{}
}

func (p *MemoryProbe) Kind() domain.Kind {
	return domain.MemoryAvailable
}

func (p *MemoryProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Observation{}, fmt.Errorf("read memory stats: %w", err)
	}
	if vm.Total == 0 {
		return Observation{}, fmt.Errorf("total memory reported as zero")
	}

	available := float64(vm.Available) / float64(vm.Total) * 100

	return observe(domain.NumberValue(round2(available)), map[string]string{
		"total_bytes":     strconv.FormatUint(vm.Total, 10),
		"available_bytes": strconv.FormatUint(vm.Available, 10),
	}), nil
}
