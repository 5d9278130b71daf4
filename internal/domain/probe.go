package domain

import (
	"fmt"
	"time"
)

// ProbeSpec identifies one check. It is built from configuration at startup
// and never modified afterwards.
type ProbeSpec struct {
	Name      string
	Kind      Kind
	Target    string
	Timeout   time.Duration
	Params    map[string]interface{}
	Threshold *ThresholdRule
}

// ThresholdRule bounds a probe's raw value. Numeric rules use WarnAt and
// CriticalAt, categorical rules use Allowed and Critical.
type ThresholdRule struct {
	WarnAt     *float64 `json:"warn_at,omitempty" yaml:"warn_at,omitempty"`
	CriticalAt *float64 `json:"critical_at,omitempty" yaml:"critical_at,omitempty"`
	Allowed    []string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Critical   []string `json:"critical,omitempty" yaml:"critical,omitempty"`
}

func (r ThresholdRule) IsCategorical() bool {
	return len(r.Allowed) > 0 || len(r.Critical) > 0
}

func (r ThresholdRule) IsNumeric() bool {
	return r.WarnAt != nil || r.CriticalAt != nil
}

func (r ThresholdRule) IsEmpty() bool {
	return !r.IsCategorical() && !r.IsNumeric()
}

// RuleSet holds per-name rules and per-kind defaults.
type RuleSet struct {
	ByName map[string]ThresholdRule
	ByKind map[Kind]ThresholdRule
}

// Lookup prefers the rule bound to the probe name over the kind default.
func (rs RuleSet) Lookup(name string, kind Kind) (ThresholdRule, bool) {
	if rule, ok := rs.ByName[name]; ok && !rule.IsEmpty() {
		return rule, true
	}
	if rule, ok := rs.ByKind[kind]; ok && !rule.IsEmpty() {
		return rule, true
	}
	return ThresholdRule{}, false
}

// NewRuleSet collects inline probe thresholds on top of kind defaults.
func NewRuleSet(specs []ProbeSpec, kindDefaults map[Kind]ThresholdRule) RuleSet {
	rs := RuleSet{
		ByName: make(map[string]ThresholdRule),
		ByKind: make(map[Kind]ThresholdRule, len(kindDefaults)),
	}
	for k, r := range kindDefaults {
		rs.ByKind[k] = r
	}
	for _, s := range specs {
		if s.Threshold != nil {
			rs.ByName[s.Name] = *s.Threshold
		}
	}
	return rs
}

// ValidateSpecs checks names are present and unique and kinds are known.
func ValidateSpecs(specs []ProbeSpec) error {
	seen := make(map[string]int, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("probe #%d is missing a name", i+1)
		}
		if prev, ok := seen[s.Name]; ok {
			return fmt.Errorf("%w: %q (probes #%d and #%d)", ErrDuplicateProbe, s.Name, prev+1, i+1)
		}
		seen[s.Name] = i
		if !s.Kind.Valid() {
			return fmt.Errorf("probe %q: %w: %q", s.Name, ErrUnknownKind, s.Kind)
		}
	}
	return nil
}

func Float(v float64) *float64 {
	return &v
}
