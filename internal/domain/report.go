package domain

import "time"

// Report is the ordered outcome of one evaluation cycle. Interrupted marks
// a cycle cut short by shutdown.
type Report struct {
	ID              string            `json:"id" yaml:"id"`
	GeneratedAt     time.Time         `json:"generated_at" yaml:"generated_at"`
	OverallSeverity Severity          `json:"overall_severity" yaml:"overall_severity"`
	RunDurationMs   int64             `json:"run_duration_ms" yaml:"run_duration_ms"`
	Results         []EvaluatedResult `json:"results" yaml:"results"`
	Interrupted     bool              `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// NewReport seals results into a report and computes the overall severity.
func NewReport(id string, generatedAt time.Time, duration time.Duration, results []EvaluatedResult) *Report {
	sealed := make([]EvaluatedResult, len(results))
	copy(sealed, results)

	return &Report{
		ID:              id,
		GeneratedAt:     generatedAt,
		OverallSeverity: overall(sealed),
		RunDurationMs:   duration.Milliseconds(),
		Results:         sealed,
	}
}

func overall(results []EvaluatedResult) Severity {
	max := SeverityOK
	for _, r := range results {
		max = MaxSeverity(max, r.Severity)
	}
	return max
}

// NonOK returns the results whose severity is not OK, in report order.
func (r *Report) NonOK() []EvaluatedResult {
	var out []EvaluatedResult
	for _, res := range r.Results {
		if res.Severity != SeverityOK {
			out = append(out, res)
		}
	}
	return out
}

// Counts returns the number of results per severity.
func (r *Report) Counts() map[Severity]int {
	counts := map[Severity]int{
		SeverityOK:       0,
		SeverityWarn:     0,
		SeverityCritical: 0,
		SeverityUnknown:  0,
	}
	for _, res := range r.Results {
		counts[res.Severity]++
	}
	return counts
}

// Change is a severity transition of one probe between two reports.
// From is empty when the probe was not in the previous report.
type Change struct {
	Name string `json:"name" yaml:"name"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Diff lists probes whose severity differs from the previous report.
func Diff(prev, cur *Report) []Change {
	if cur == nil {
		return nil
	}
	before := make(map[string]Severity)
	if prev != nil {
		for _, r := range prev.Results {
			before[r.Name] = r.Severity
		}
	}

	var changes []Change
	for _, r := range cur.Results {
		old, ok := before[r.Name]
		switch {
		case !ok && prev != nil:
			changes = append(changes, Change{Name: r.Name, To: r.Severity.String()})
		case ok && old != r.Severity:
			changes = append(changes, Change{Name: r.Name, From: old.String(), To: r.Severity.String()})
		}
	}
	return changes
}
