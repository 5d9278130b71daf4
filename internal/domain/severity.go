package domain

import (
	"fmt"
	"strings"
)

// Severity is ordered: OK < WARN < CRITICAL < UNKNOWN.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarn
	SeverityCritical
	SeverityUnknown
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityWarn:
		return "WARN"
	case SeverityCritical:
		return "CRITICAL"
	case SeverityUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// AtLeast reports whether s is as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s >= min
}

// ExitCode maps a severity to the process exit status used by scripting chains.
func (s Severity) ExitCode() int {
	switch s {
	case SeverityOK:
		return 0
	case SeverityWarn:
		return 1
	default:
		return 2
	}
}

func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OK":
		return SeverityOK, nil
	case "WARN", "WARNING":
		return SeverityWarn, nil
	case "CRITICAL", "CRIT":
		return SeverityCritical, nil
	case "UNKNOWN":
		return SeverityUnknown, nil
	default:
		return SeverityOK, fmt.Errorf("invalid severity %q", s)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MaxSeverity returns the most severe of the given values, OK for none.
func MaxSeverity(values ...Severity) Severity {
	max := SeverityOK
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}
