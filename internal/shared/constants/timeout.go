package constants

import "time"

const (
	DefaultProbeTimeout   = 10 * time.Second
	DefaultCycleTimeout   = 2 * time.Minute
	DefaultPublishTimeout = 30 * time.Second
	DefaultInterval       = time.Minute
	MinInterval           = time.Second

	DefaultConcurrency = 8

	HTTPTimeout = 30 * time.Second
	DNSTimeout  = 5 * time.Second
	TCPTimeout  = 15 * time.Second
	KillDelay   = 2 * time.Second
)

// ExitConfigError is the process status for configuration and usage errors.
// Severity statuses are 0 to 2.
const ExitConfigError = 3
