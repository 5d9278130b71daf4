package domain

import "fmt"

type Kind string

const (
	ServiceStatus   Kind = "service_status"
	DiskUsage       Kind = "disk_usage"
	LogPatternCount Kind = "log_pattern_count"
	ProcessResource Kind = "process_resource"
	CustomCommand   Kind = "custom_command"
	MemoryAvailable Kind = "memory_available"
	TCPConnect      Kind = "tcp_connect"
	DNSLookup       Kind = "dns_lookup"
	HTTPCheck       Kind = "http_check"
)

// Direction tells the evaluator which way a numeric value crosses a threshold.
type Direction int

const (
	Categorical Direction = iota
	Above
	Below
)

var kinds = map[Kind]Direction{
	ServiceStatus:   Categorical,
	DiskUsage:       Above,
	LogPatternCount: Above,
	ProcessResource: Above,
	CustomCommand:   Above,
	MemoryAvailable: Below,
	TCPConnect:      Above,
	DNSLookup:       Above,
	HTTPCheck:       Above,
}

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		ServiceStatus,
		DiskUsage,
		LogPatternCount,
		ProcessResource,
		CustomCommand,
		MemoryAvailable,
		TCPConnect,
		DNSLookup,
		HTTPCheck,
	}
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k Kind) Direction() Direction {
	return kinds[k]
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}
