package probe

import (
	"HealthScan/internal/domain"
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxLogLineBytes = 1024 * 1024

// Layouts tried in order when a probe does not set time_layout.
var defaultTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.Stamp,
}

type LogPatternProbe struct {
	now func() time.Time
}

func NewLogPatternProbe() *LogPatternProbe {
	return &LogPatternProbe{now: time.Now}
}

func (p *LogPatternProbe) Kind() domain.Kind {
	return domain.LogPatternCount
}

// Execute counts lines matching the pattern param. With window_minutes set
// only lines stamped inside the window count; a line without its own
// timestamp belongs to the last stamped line above it.
func (p *LogPatternProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	pattern := getStringOption(spec.Params, "pattern", "")
	if pattern == "" {
		return Observation{}, fmt.Errorf("parameter 'pattern' is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Observation{}, fmt.Errorf("invalid pattern: %w", err)
	}

	window := time.Duration(getFloatOption(spec.Params, "window_minutes", 0) * float64(time.Minute))
	layouts := defaultTimeLayouts
	if layout := getStringOption(spec.Params, "time_layout", ""); layout != "" {
		layouts = []string{layout}
	}

	file, err := os.Open(spec.Target)
	if err != nil {
		return Observation{}, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	now := p.now()
	cutoff := now.Add(-window)

	var (
		count   int
		scanned int
		stamp   time.Time
	)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLogLineBytes)
	for scanner.Scan() {
		if scanned%1000 == 0 && ctx.Err() != nil {
			return Observation{}, ctx.Err()
		}
		scanned++
		line := scanner.Text()

		if window > 0 {
			if ts, ok := leadingTimestamp(line, layouts, now); ok {
				stamp = ts
			}
			if stamp.IsZero() || stamp.Before(cutoff) {
				continue
			}
		}

		if re.MatchString(line) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return Observation{}, fmt.Errorf("read log: %w", err)
	}

	details := map[string]string{
		"file":          spec.Target,
		"pattern":       pattern,
		"lines_scanned": strconv.Itoa(scanned),
	}
	if window > 0 {
		details["window"] = window.String()
	}

	return observe(domain.NumberValue(float64(count)), details), nil
}

// leadingTimestamp parses the start of line with the first layout that fits.
// Layouts without a year (syslog) are placed in the current year, or the
// previous one when that would put them in the future.
func leadingTimestamp(line string, layouts []string, now time.Time) (time.Time, bool) {
	line = strings.TrimLeft(line, "[ ")
	for _, layout := range layouts {
		n := len(layout)
		if layout == time.RFC3339Nano || layout == time.RFC3339 {
			n = rfc3339Len(line)
		}
		if n == 0 || len(line) < n {
			continue
		}

		ts, err := time.ParseInLocation(layout, line[:n], now.Location())
		if err != nil {
			continue
		}
		if ts.Year() == 0 {
			ts = ts.AddDate(now.Year(), 0, 0)
			if ts.After(now) {
				ts = ts.AddDate(-1, 0, 0)
			}
		}
		return ts, true
	}
	return time.Time{}, false
}

// rfc3339Len returns the length of the first whitespace or bracket
// delimited token, which is where an RFC 3339 timestamp ends.
func rfc3339Len(line string) int {
	if i := strings.IndexAny(line, " \t]"); i >= 0 {
		return i
	}
	return len(line)
}
