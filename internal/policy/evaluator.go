// Package policy classifies probe results against threshold rules.
// Evaluate is a pure function: the same inputs always give the same output.
package policy

import (
	"fmt"
	"strconv"
	"strings"

	"HealthScan/internal/domain"
)

const ReasonNoThreshold = "no threshold configured"

// DefaultCriticalStates are the service states treated as down when a
// categorical rule does not list its own.
var DefaultCriticalStates = []string{"inactive", "failed"}

// Evaluate maps a probe result to a severity using the rule bound to the
// probe name, falling back to the rule for its kind.
func Evaluate(result domain.ProbeResult, rules domain.RuleSet) domain.EvaluatedResult {
	if !result.Success {
		reason := result.ErrorDetail
		if reason == "" {
			reason = "probe failed"
		}
		return classify(result, domain.SeverityUnknown, reason)
	}

	rule, ok := rules.Lookup(result.Name, result.Kind)
	if !ok {
		return classify(result, domain.SeverityOK, ReasonNoThreshold)
	}

	if result.Kind.Direction() == domain.Categorical || (rule.IsCategorical() && !result.Value.Numeric) {
		return evaluateCategorical(result, rule)
	}
	return evaluateNumeric(result, rule)
}

func evaluateCategorical(result domain.ProbeResult, rule domain.ThresholdRule) domain.EvaluatedResult {
	value := result.Value.String()

	if contains(rule.Allowed, value) {
		return classify(result, domain.SeverityOK, fmt.Sprintf("status %s", value))
	}

	critical := rule.Critical
	if len(critical) == 0 {
		critical = DefaultCriticalStates
	}
	if contains(critical, value) {
		return classify(result, domain.SeverityCritical, fmt.Sprintf("status %s", value))
	}

	return classify(result, domain.SeverityWarn, fmt.Sprintf("unexpected status: %s", value))
}

func evaluateNumeric(result domain.ProbeResult, rule domain.ThresholdRule) domain.EvaluatedResult {
	if !result.Value.Numeric {
		return classify(result, domain.SeverityUnknown,
			fmt.Sprintf("non-numeric value %q for %s", result.Value.Text, result.Kind))
	}

	value := result.Value.Number
	direction := result.Kind.Direction()
	if direction == domain.Categorical {
		direction = domain.Above
	}

	if rule.CriticalAt != nil && crosses(value, *rule.CriticalAt, direction) {
		return classify(result, domain.SeverityCritical, describe(value, "critical", *rule.CriticalAt, direction))
	}
	if rule.WarnAt != nil && crosses(value, *rule.WarnAt, direction) {
		return classify(result, domain.SeverityWarn, describe(value, "warn", *rule.WarnAt, direction))
	}

	return classify(result, domain.SeverityOK, "within thresholds")
}

func crosses(value, limit float64, direction domain.Direction) bool {
	if direction == domain.Below {
		return value <= limit
	}
	return value >= limit
}

func describe(value float64, level string, limit float64, direction domain.Direction) string {
	op := ">="
	if direction == domain.Below {
		op = "<="
	}
	return fmt.Sprintf("value %s %s %s threshold %s", format(value), op, level, format(limit))
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func classify(result domain.ProbeResult, severity domain.Severity, reason string) domain.EvaluatedResult {
	return domain.EvaluatedResult{
		ProbeResult: result,
		Severity:    severity,
		Reason:      reason,
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
