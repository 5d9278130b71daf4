package reporter

import (
	"HealthScan/internal/domain"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"text/template"
)

var ErrReportWrite = errors.New("failed to write report")

// PathData is what a destination template can refer to.
type PathData struct {
	Timestamp string
	Date      string
	RunID     string
	Ext       string
}

// Writer persists rendered reports to files named by a path template.
type Writer struct {
	destination *template.Template
	locks       sync.Map
}

func NewWriter(destination string) (*Writer, error) {
	w := &Writer{}
	if destination == "" {
		return w, nil
	}

	tmpl, err := template.New("destination").Option("missingkey=error").Parse(destination)
	if err != nil {
		return nil, fmt.Errorf("invalid report destination %q: %w", destination, err)
	}
	w.destination = tmpl
	return w, nil
}

// Enabled reports whether a destination is configured.
func (w *Writer) Enabled() bool {
	return w.destination != nil
}

func (w *Writer) Path(report *domain.Report, format Format) (string, error) {
	if w.destination == nil {
		return "", nil
	}

	at := report.GeneratedAt.UTC()
	data := PathData{
		Timestamp: at.Format("20060102T150405Z"),
		Date:      at.Format("2006-01-02"),
		RunID:     report.ID,
		Ext:       format.Ext(),
	}

	var buf bytes.Buffer
	if err := w.destination.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to expand report destination: %w", err)
	}
	return filepath.Clean(buf.String()), nil
}

// Write renders the report once into its destination file and returns the
// path written. Concurrent writes to the same path are serialised.
func (w *Writer) Write(report *domain.Report, changes []domain.Change, format Format) (string, error) {
	path, err := w.Path(report, format)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReportWrite, err)
	}
	if path == "" {
		return "", nil
	}

	unlock := w.lock(path)
	defer unlock()

	err = writeFile(path, func(out io.Writer) error {
		return Render(out, format, report, changes)
	})
	if err != nil {
		return path, fmt.Errorf("%w: %s: %w", ErrReportWrite, path, err)
	}
	return path, nil
}

func (w *Writer) lock(path string) func() {
	v, _ := w.locks.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// writeFile gives fn a buffered handle on a temporary file next to path and
// renames it into place only when everything succeeded. The handle is
// flushed and closed on every path.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	writeErr := fn(bw)
	flushErr := bw.Flush()
	closeErr := f.Close()
	if err := errors.Join(writeErr, flushErr, closeErr); err != nil {
		return err
	}

	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
