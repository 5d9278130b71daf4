package reporter

import (
	"HealthScan/internal/domain"
	"HealthScan/pkg/uuidutil"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Ext is the file extension used for the format.
func (f Format) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Document is the rendered form of a report: the report itself plus the
// severity changes since the previous run.
type Document struct {
	domain.Report `yaml:",inline"`
	Changes       []domain.Change `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// Render writes the report in the given format. Output depends only on
// its inputs.
func Render(w io.Writer, format Format, report *domain.Report, changes []domain.Change) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	doc := Document{Report: *report, Changes: changes}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return renderText(w, doc)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderText(w io.Writer, doc Document) error {
	var buf bytes.Buffer
	counts := doc.Counts()

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "HealthScan report\t%s\n", doc.ID)
	fmt.Fprintf(tw, "Generated:\t%s\n", doc.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Overall:\t%s\n", doc.OverallSeverity)
	if doc.Interrupted {
		fmt.Fprintf(tw, "Interrupted:\tyes, results of cancelled probes are UNKNOWN\n")
	}
	fmt.Fprintf(tw, "Duration:\t%dms\n", doc.RunDurationMs)
	fmt.Fprintf(tw, "Probes:\t%d (OK %d, WARN %d, CRITICAL %d, UNKNOWN %d)\n",
		len(doc.Results),
		counts[domain.SeverityOK],
		counts[domain.SeverityWarn],
		counts[domain.SeverityCritical],
		counts[domain.SeverityUnknown],
	)
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range doc.Results {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "[%s] %s (%s)", r.Severity, r.Name, r.Kind)
		if r.Severity == domain.SeverityUnknown {
			buf.WriteString(" could not evaluate")
		}
		buf.WriteString("\n")

		tw := tabwriter.NewWriter(&buf, 0, 0, 1, ' ', 0)
		if r.Success {
			fmt.Fprintf(tw, "    value:\t%s\n", r.Value)
		}
		if r.Reason != "" {
			fmt.Fprintf(tw, "    reason:\t%s\n", r.Reason)
		}
		fmt.Fprintf(tw, "    duration:\t%dms\n", r.DurationMs)
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(doc.Changes) > 0 {
		buf.WriteString("\nChanges since last run:\n")
		for _, c := range doc.Changes {
			from := c.From
			if from == "" {
				from = "new"
			}
			fmt.Fprintf(&buf, "    %s: %s -> %s\n", c.Name, from, c.To)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Parse reads a report rendered as json or yaml.
func Parse(format Format, data []byte) (*domain.Report, []domain.Change, error) {
	var doc Document

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("failed to parse json report: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("failed to parse yaml report: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("cannot parse %q reports", format)
	}

	if !uuidutil.IsValid(doc.ID) {
		return nil, nil, fmt.Errorf("report has invalid id %q", doc.ID)
	}
	return &doc.Report, doc.Changes, nil
}
