package storage

import (
	"HealthScan/internal/domain"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	generated_at INTEGER NOT NULL,
	overall      TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL,
	body         BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_generated_at ON reports (generated_at);
`

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) a local history database.
func NewSQLiteStore(ctx context.Context, path string, log *slog.Logger) (HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	log.Info("History database ready", "driver", "sqlite", "path", path)
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Save(ctx context.Context, report *domain.Report) error {
	body, err := encodeReport(report)
	if err != nil {
		return err
	}

	query := `
		INSERT OR REPLACE INTO reports (id, generated_at, overall, duration_ms, body)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		report.ID,
		report.GeneratedAt.UnixNano(),
		report.OverallSeverity.String(),
		report.RunDurationMs,
		body,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *sqliteStore) Latest(ctx context.Context) (*domain.Report, error) {
	query := `
		SELECT body FROM reports
		ORDER BY generated_at DESC, id DESC
		LIMIT 1
	`

	var body []byte
	if err := s.db.QueryRowContext(ctx, query).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest report: %w", err)
	}
	return decodeReport(body)
}

func (s *sqliteStore) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}

	query := `
		DELETE FROM reports
		WHERE id NOT IN (
			SELECT id FROM reports ORDER BY generated_at DESC, id DESC LIMIT ?
		)
	`

	if _, err := s.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
