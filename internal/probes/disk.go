package probe

import (
	"HealthScan/internal/domain"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/shirou/gopsutil/v4/disk"
)

type DiskProbe struct{}

func NewDiskProbe() *DiskProbe {
	return &DiskProbe{}
}

func (p *DiskProbe) Kind() domain.Kind {
	return domain.DiskUsage
}

func (p *DiskProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	path := spec.Target
	if path == "" {
		path = "/"
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Observation{}, fmt.Errorf("path %s: %w", path, domain.ErrTargetNotFound)
		}
		return Observation{}, fmt.Errorf("stat %s: %w", path, err)
	}

	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Observation{}, fmt.Errorf("disk usage %s: %w", path, err)
	}

	return observe(domain.NumberValue(round2(usage.UsedPercent)), map[string]string{
		"path":        path,
		"fstype":      usage.Fstype,
		"total_bytes": strconv.FormatUint(usage.Total, 10),
		"free_bytes":  strconv.FormatUint(usage.Free, 10),
	}), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
