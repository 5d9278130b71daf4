package storage

import (
	"HealthScan/internal/domain"
	"context"
	"encoding/json"
	"fmt"
)

// HistoryStore keeps past reports for trend detection.
type HistoryStore interface {
	Save(ctx context.Context, report *domain.Report) error
	// Latest returns nil, nil when nothing has been saved yet.
	Latest(ctx context.Context) (*domain.Report, error)
	// Prune keeps the newest keep reports; keep <= 0 keeps everything.
	Prune(ctx context.Context, keep int) error
	Close() error
}

func encodeReport(report *domain.Report) ([]byte, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return body, nil
}

func decodeReport(body []byte) (*domain.Report, error) {
	var report domain.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

type nopStore struct{}

// NewNopStore returns a store that keeps nothing.
func NewNopStore() HistoryStore {
	return nopStore{}
}

func (nopStore) Save(context.Context, *domain.Report) error { return nil }

func (nopStore) Latest(context.Context) (*domain.Report, error) { return nil, nil }

func (nopStore) Prune(context.Context, int) error { return nil }

func (nopStore) Close() error { return nil }
