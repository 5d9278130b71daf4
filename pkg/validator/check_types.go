package validator

import "HealthScan/internal/domain"

// ValidateProbeKind reports whether kind names a built-in probe.
func ValidateProbeKind(kind string) bool {
	_, err := domain.ParseKind(kind)
	return err == nil
}
