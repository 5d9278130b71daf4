package reporter

import (
	"HealthScan/internal/domain"
	notifier "HealthScan/internal/notifiers"
	"HealthScan/internal/storage"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runID = "0192a4f0-6c1e-7a3b-9d2e-1f0a2b3c4d5e"

var generatedAt = time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC)

func sampleReport(id string) *domain.Report {
	return domain.NewReport(id, generatedAt, 1234*time.Millisecond, []domain.EvaluatedResult{
		{
			ProbeResult: domain.ProbeResult{Name: "nginx", Kind: domain.ServiceStatus, Timestamp: generatedAt, Success: true, Value: domain.TextValue("active"), DurationMs: 12},
			Severity:    domain.SeverityOK,
			Reason:      "status active",
		},
		{
			ProbeResult: domain.ProbeResult{Name: "root-disk", Kind: domain.DiskUsage, Timestamp: generatedAt, Success: true, Value: domain.NumberValue(85), DurationMs: 3, Details: map[string]string{"path": "/"}},
			Severity:    domain.SeverityWarn,
			Reason:      "value 85 >= warn threshold 80",
		},
		{
			ProbeResult: domain.ProbeResult{Name: "backup", Kind: domain.CustomCommand, Timestamp: generatedAt, ErrorDetail: "timeout", DurationMs: 10000},
			Severity:    domain.SeverityUnknown,
			Reason:      "timeout",
		},
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	changes := []domain.Change{{Name: "root-disk", From: "OK", To: "WARN"}, {Name: "backup", To: "UNKNOWN"}}
	require.NoError(t, Render(&buf, FormatText, sampleReport(runID), changes))

	out := buf.String()
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "2026-10-18T12:30:00Z")
	assert.Contains(t, out, "UNKNOWN")
	assert.Contains(t, out, "3 (OK 1, WARN 1, CRITICAL 0, UNKNOWN 1)")
	assert.Contains(t, out, "[WARN] root-disk (disk_usage)")
	assert.Contains(t, out, "value 85 >= warn threshold 80")
	assert.Contains(t, out, "[UNKNOWN] backup (custom_command) could not evaluate")
	assert.Contains(t, out, "root-disk: OK -> WARN")
	assert.Contains(t, out, "backup: new -> UNKNOWN")

	assert.Less(t, strings.Index(out, "nginx"), strings.Index(out, "root-disk"))
	assert.Less(t, strings.Index(out, "root-disk"), strings.Index(out, "backup"))

	var again bytes.Buffer
	require.NoError(t, Render(&again, FormatText, sampleReport(runID), changes))
	assert.Equal(t, out, again.String())
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			original := sampleReport(runID)
			changes := []domain.Change{{Name: "root-disk", From: "OK", To: "WARN"}}

			var buf bytes.Buffer
			require.NoError(t, Render(&buf, format, original, changes))

			parsed, parsedChanges, err := Parse(format, buf.Bytes())
			require.NoError(t, err)

			assert.Equal(t, original.ID, parsed.ID)
			assert.True(t, original.GeneratedAt.Equal(parsed.GeneratedAt))
			assert.Equal(t, original.OverallSeverity, parsed.OverallSeverity)
			assert.Equal(t, original.RunDurationMs, parsed.RunDurationMs)
			assert.Equal(t, changes, parsedChanges)
			require.Len(t, parsed.Results, len(original.Results))
			for i := range original.Results {
				want, got := original.Results[i], parsed.Results[i]
				assert.Equal(t, want.Name, got.Name)
				assert.Equal(t, want.Kind, got.Kind)
				assert.Equal(t, want.Severity, got.Severity)
				assert.Equal(t, want.Reason, got.Reason)
				assert.Equal(t, want.Value, got.Value)
				assert.Equal(t, want.Success, got.Success)
				assert.Equal(t, want.ErrorDetail, got.ErrorDetail)
			}
			assert.Equal(t, "/", parsed.Results[1].Details["path"])
		})
	}
}

func TestJSONUsesSeverityNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, sampleReport(runID), nil))
	assert.Contains(t, buf.String(), `"overall_severity": "UNKNOWN"`)
	assert.Contains(t, buf.String(), `"severity": "WARN"`)
}

func TestParseErrors(t *testing.T) {
	_, _, err := Parse(FormatJSON, []byte("{"))
	assert.Error(t, err)

	_, _, err = Parse(FormatJSON, []byte(`{"id":"nope"}`))
	assert.ErrorContains(t, err, "invalid id")

	_, _, err = Parse(FormatText, []byte("anything"))
	assert.Error(t, err)

	_, _, err = Parse(FormatJSON, []byte(`{"id":"`+runID+`","overall_severity":"BAD"}`))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", f.Ext())
	assert.Equal(t, "txt", FormatText.Ext())

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriterPath(t *testing.T) {
	w, err := NewWriter("/var/reports/{{.Date}}/{{.Timestamp}}-{{.RunID}}.{{.Ext}}")
	require.NoError(t, err)

	path, err := w.Path(sampleReport(runID), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "/var/reports/2026-10-18/20261018T123000Z-"+runID+".json", path)

	_, err = NewWriter("{{.Broken")
	assert.Error(t, err)

	w, err = NewWriter("{{.Missing}}")
	require.NoError(t, err)
	_, err = w.Path(sampleReport(runID), FormatJSON)
	assert.Error(t, err)

	w, err = NewWriter("")
	require.NoError(t, err)
	assert.False(t, w.Enabled())
}

func TestWriterWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(filepath.Join(dir, "out", "{{.RunID}}.{{.Ext}}"))
	require.NoError(t, err)

	path, err := w.Write(sampleReport(runID), nil, FormatJSON)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	parsed, _, err := Parse(FormatJSON, data)
	require.NoError(t, err)
	assert.Equal(t, runID, parsed.ID)

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestWriterSerialisesSamePath(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(filepath.Join(dir, "latest.json"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Write(sampleReport(runID), nil, FormatJSON)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(dir, "latest.json"))
	require.NoError(t, err)
	_, _, err = Parse(FormatJSON, data)
	assert.NoError(t, err, "file is one complete report")
}

func TestWriterFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	w, err := NewWriter(filepath.Join(blocker, "report.txt"))
	require.NoError(t, err)

	_, err = w.Write(sampleReport(runID), nil, FormatText)
	assert.ErrorIs(t, err, ErrReportWrite)
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []notifier.Notification
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n notifier.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, n)
	return d.err
}

type memoryHistory struct {
	reports []*domain.Report
	saveErr error
	pruned  []int
}

func (h *memoryHistory) Save(_ context.Context, r *domain.Report) error {
	if h.saveErr != nil {
		return h.saveErr
	}
	h.reports = append(h.reports, r)
	return nil
}

func (h *memoryHistory) Latest(context.Context) (*domain.Report, error) {
	if len(h.reports) == 0 {
		return nil, nil
	}
	return h.reports[len(h.reports)-1], nil
}

func (h *memoryHistory) Prune(_ context.Context, keep int) error {
	h.pruned = append(h.pruned, keep)
	return nil
}

func (h *memoryHistory) Close() error { return nil }

var _ storage.HistoryStore = (*memoryHistory)(nil)

func TestPublisherNotifiesOncePerRun(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(filepath.Join(dir, "{{.RunID}}.{{.Ext}}"))
	require.NoError(t, err)

	history := &memoryHistory{}
	dispatcher := &recordingDispatcher{err: errors.New("sink down")}
	var stdout bytes.Buffer

	p := NewPublisher(w, history, dispatcher, Options{
		Format:      FormatText,
		MinSeverity: domain.SeverityWarn,
		Stdout:      &stdout,
		Keep:        10,
	}, quietLogger())

	report := sampleReport(runID)
	require.NoError(t, p.Publish(context.Background(), report), "notification failure is not a publish failure")

	require.Len(t, dispatcher.calls, 1)
	n := dispatcher.calls[0]
	assert.Equal(t, runID, n.RunID)
	require.Len(t, n.Results, 2)
	assert.Equal(t, "root-disk", n.Results[0].Name)
	assert.Equal(t, "backup", n.Results[1].Name)

	assert.FileExists(t, filepath.Join(dir, runID+".txt"))
	assert.Contains(t, stdout.String(), runID)
	assert.Len(t, history.reports, 1)
	assert.Equal(t, []int{10}, history.pruned)
}

func TestPublisherSkipsNotificationBelowMinimum(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	p := NewPublisher(nil, nil, dispatcher, Options{MinSeverity: domain.SeverityCritical}, quietLogger())

	warnOnly := domain.NewReport(runID, generatedAt, 0, []domain.EvaluatedResult{
		{ProbeResult: domain.ProbeResult{Name: "a", Success: true}, Severity: domain.SeverityWarn},
	})
	require.NoError(t, p.Publish(context.Background(), warnOnly))
	assert.Empty(t, dispatcher.calls)
}

func TestPublisherSkipsNotificationForInterruptedCycle(t *testing.T) {
	history := &memoryHistory{}
	dispatcher := &recordingDispatcher{}
	var stdout bytes.Buffer
	p := NewPublisher(nil, history, dispatcher, Options{MinSeverity: domain.SeverityWarn, Stdout: &stdout}, quietLogger())

	report := sampleReport(runID)
	report.Interrupted = true

	require.NoError(t, p.Publish(context.Background(), report))
	assert.Empty(t, dispatcher.calls)
	assert.Len(t, history.reports, 1, "an interrupted report is still recorded")
	assert.Contains(t, stdout.String(), "Interrupted:")
}

func TestPublisherTrend(t *testing.T) {
	history := &memoryHistory{}
	dispatcher := &recordingDispatcher{}
	p := NewPublisher(nil, history, dispatcher, Options{MinSeverity: domain.SeverityWarn}, quietLogger())

	first := domain.NewReport("0192a4f0-0000-7000-8000-000000000001", generatedAt, 0, []domain.EvaluatedResult{
		{ProbeResult: domain.ProbeResult{Name: "root-disk", Success: true}, Severity: domain.SeverityOK},
	})
	require.NoError(t, p.Publish(context.Background(), first))

	require.NoError(t, p.Publish(context.Background(), sampleReport(runID)))
	require.Len(t, dispatcher.calls, 1)

	changes := dispatcher.calls[0].Changes
	assert.Contains(t, changes, domain.Change{Name: "root-disk", From: "OK", To: "WARN"})
	assert.Contains(t, changes, domain.Change{Name: "nginx", To: "OK"})
}

func TestPublisherReportsWriteAndHistoryFailures(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	w, err := NewWriter(filepath.Join(blocker, "r.txt"))
	require.NoError(t, err)

	history := &memoryHistory{saveErr: errors.New("disk full")}
	dispatcher := &recordingDispatcher{}
	p := NewPublisher(w, history, dispatcher, Options{MinSeverity: domain.SeverityWarn}, quietLogger())

	err = p.Publish(context.Background(), sampleReport(runID))
	assert.ErrorIs(t, err, ErrReportWrite)
	assert.ErrorIs(t, err, ErrHistory)
	assert.Len(t, dispatcher.calls, 1, "notification still goes out")
}
