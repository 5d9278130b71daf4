package domain

import (
	"strconv"
	"strings"
	"time"
)

// RawValue is either a number or a string.
type RawValue struct {
	Numeric bool    `json:"numeric" yaml:"numeric"`
	Number  float64 `json:"number,omitempty" yaml:"number,omitempty"`
	Text    string  `json:"text,omitempty" yaml:"text,omitempty"`
}

func NumberValue(v float64) RawValue {
	return RawValue{Numeric: true, Number: v}
}

func TextValue(s string) RawValue {
	return RawValue{Text: s}
}

// ParseValue returns a numeric value when s is a float, text otherwise.
func ParseValue(s string) RawValue {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberValue(f)
	}
	return TextValue(s)
}

func (v RawValue) String() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// ProbeResult is the outcome of one probe invocation.
type ProbeResult struct {
	Name        string            `json:"name" yaml:"name"`
	Kind        Kind              `json:"kind" yaml:"kind"`
	Timestamp   time.Time         `json:"timestamp" yaml:"timestamp"`
	Value       RawValue          `json:"raw_value" yaml:"raw_value"`
	Success     bool              `json:"success" yaml:"success"`
	ErrorDetail string            `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	DurationMs  int64             `json:"duration_ms" yaml:"duration_ms"`
	Details     map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

func NewSuccessResult(spec ProbeSpec, startedAt time.Time, value RawValue, details map[string]string) ProbeResult {
	return ProbeResult{
		Name:       spec.Name,
		Kind:       spec.Kind,
		Timestamp:  startedAt,
		Value:      value,
		Success:    true,
		DurationMs: time.Since(startedAt).Milliseconds(),
		Details:    details,
	}
}

func NewErrorResult(spec ProbeSpec, startedAt time.Time, detail string) ProbeResult {
	if detail == "" {
		detail = "probe failed"
	}
	return ProbeResult{
		Name:        spec.Name,
		Kind:        spec.Kind,
		Timestamp:   startedAt,
		Success:     false,
		ErrorDetail: detail,
		DurationMs:  time.Since(startedAt).Milliseconds(),
	}
}

// EvaluatedResult is a ProbeResult classified by policy.
type EvaluatedResult struct {
	ProbeResult `yaml:",inline"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Reason      string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}
