package probe

import (
	"HealthScan/internal/domain"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

type ProcessProbe struct{}

func NewProcessProbe() *ProcessProbe {
	return &ProcessProbe{}
}

func (p *ProcessProbe) Kind() domain.Kind {
	return domain.ProcessResource
}

// Execute reports CPU percent for a PID, or the sum over every process
// with the given name.
func (p *ProcessProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	target := strings.TrimSpace(spec.Target)
	if target == "" {
		return Observation{}, fmt.Errorf("process name or pid is empty")
	}

	procs, err := findProcesses(ctx, target)
	if err != nil {
		return Observation{}, err
	}

	var (
		cpu  float64
		mem  float64
		pids []string
	)
	for _, proc := range procs {
		c, err := proc.CPUPercentWithContext(ctx)
		if err != nil {
			return Observation{}, fmt.Errorf("cpu of pid %d: %w", proc.Pid, err)
		}
		m, err := proc.MemoryPercentWithContext(ctx)
		if err != nil {
			return Observation{}, fmt.Errorf("memory of pid %d: %w", proc.Pid, err)
		}
		cpu += c
		mem += float64(m)
		pids = append(pids, strconv.Itoa(int(proc.Pid)))
	}

	return observe(domain.NumberValue(round2(cpu)), map[string]string{
		"memory_percent": strconv.FormatFloat(round2(mem), 'f', -1, 64),
		"pids":           strings.Join(pids, ","),
	}), nil
}

func findProcesses(ctx context.Context, target string) ([]*process.Process, error) {
	if pid, err := strconv.ParseInt(target, 10, 32); err == nil {
		proc, err := process.NewProcessWithContext(ctx, int32(pid))
		if err != nil {
			return nil, fmt.Errorf("pid %d: %w", pid, domain.ErrTargetNotFound)
		}
		return []*process.Process{proc}, nil
	}

	all, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var matched []*process.Process
	for _, proc := range all {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			// exited while listing
			continue
		}
		if name == target {
			matched = append(matched, proc)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("process %s: %w", target, domain.ErrTargetNotFound)
	}
	return matched, nil
}
