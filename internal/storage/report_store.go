package storage

import (
	"HealthScan/internal/domain"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id           UUID PRIMARY KEY,
	generated_at TIMESTAMPTZ NOT NULL,
	overall      TEXT NOT NULL,
	duration_ms  BIGINT NOT NULL,
	body         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_generated_at ON reports (generated_at DESC);

CREATE TABLE IF NOT EXISTS report_results (
	report_id    UUID NOT NULL REFERENCES reports (id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	name         TEXT NOT NULL,
	kind         TEXT NOT NULL,
	severity     TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	raw_value    TEXT NOT NULL,
	reason       TEXT NOT NULL,
	error        TEXT NOT NULL,
	duration_ms  BIGINT NOT NULL,
	observed_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (report_id, position)
);
CREATE INDEX IF NOT EXISTS report_results_name ON report_results (name, observed_at DESC);
`

type reportStore struct {
	pool *pgxpool.Pool
}

// NewReportStore keeps history in postgres: one row per report with the
// full body, plus one row per probe result for ad-hoc queries.
func NewReportStore(ctx context.Context, pool *pgxpool.Pool) (HistoryStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &reportStore{pool: pool}, nil
}

func (s *reportStore) Save(ctx context.Context, report *domain.Report) error {
	body, err := encodeReport(report)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reports (id, generated_at, overall, duration_ms, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = tx.Exec(ctx, query,
		report.ID,
		report.GeneratedAt,
		report.OverallSeverity.String(),
		report.RunDurationMs,
		body,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	batch := &pgx.Batch{}
	for i, r := range report.Results {
		batch.Queue(`
			INSERT INTO report_results
				(report_id, position, name, kind, severity, success, raw_value, reason, error, duration_ms, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT DO NOTHING
		`,
			report.ID,
			i,
			r.Name,
			string(r.Kind),
			r.Severity.String(),
			r.Success,
			r.Value.String(),
			r.Reason,
			r.ErrorDetail,
			r.DurationMs,
			r.Timestamp,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save report results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

func (s *reportStore) Latest(ctx context.Context) (*domain.Report, error) {
	query := `
		SELECT body FROM reports
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var body []byte
	if err := s.pool.QueryRow(ctx, query).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest report: %w", err)
	}
	return decodeReport(body)
}

func (s *reportStore) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}

	query := `
		DELETE FROM reports
		WHERE id NOT IN (
			SELECT id FROM reports ORDER BY generated_at DESC LIMIT $1
		)
	`

	if _, err := s.pool.Exec(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

func (s *reportStore) Close() error {
	s.pool.Close()
	return nil
}
