package postgres

import (
	"context"
	"fmt"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// ScanProgressStore is a PostgreSQL implementation of storage.ScanProgressStore.
type ScanProgressStore struct {
	pool *Pool
}

// NewScanProgressStore creates a new PostgreSQL scan progress store.
func NewScanProgressStore(pool *Pool) *ScanProgressStore {
	return &ScanProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScanProgressStore = (*ScanProgressStore)(nil)

// Save records the outcome of a slot.
// Uses upsert so a retried slot replaces its earlier row.
func (s *ScanProgressStore) Save(ctx context.Context, p *domain.ScanProgress) (err error) {
	if p == nil || p.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer s.pool.track("scan_progress.save")(&err)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO scan_progress (run_id, slot, status, transactions, swaps, findings, error, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, slot) DO UPDATE
		SET status = EXCLUDED.status,
		    transactions = EXCLUDED.transactions,
		    swaps = EXCLUDED.swaps,
		    findings = EXCLUDED.findings,
		    error = EXCLUDED.error,
		    scanned_at = EXCLUDED.scanned_at
	`, p.RunID, p.Slot, string(p.Status), p.Transactions, p.Swaps, p.Findings, p.Error, p.ScannedAt)
	if isCheckViolation(err) {
		return fmt.Errorf("%w: scan status %q", storage.ErrInvalidInput, p.Status)
	}
	if err != nil {
		return fmt.Errorf("save scan progress: %w", err)
	}
	return nil
}

// GetByRun returns the progress rows of a run.
func (s *ScanProgressStore) GetByRun(ctx context.Context, runID string) ([]*domain.ScanProgress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, slot, status, transactions, swaps, findings, error, scanned_at
		FROM scan_progress
		WHERE run_id = $1
		ORDER BY slot ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get scan progress by run: %w", err)
	}
	defer rows.Close()

	var result []*domain.ScanProgress
	for rows.Next() {
		var p domain.ScanProgress
		var status string
		if err := rows.Scan(&p.RunID, &p.Slot, &status, &p.Transactions, &p.Swaps, &p.Findings, &p.Error, &p.ScannedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		p.Status = domain.ScanStatus(status)
		result = append(result, &p)
	}
	return result, rows.Err()
}

// LastCompletedSlot returns the highest slot completed by any run.
func (s *ScanProgressStore) LastCompletedSlot(ctx context.Context) (int64, error) {
	var slot *int64
	err := s.pool.QueryRow(ctx, `
		SELECT MAX(slot) FROM scan_progress WHERE status = 'completed'
	`).Scan(&slot)
	if err != nil {
		return 0, fmt.Errorf("get last completed slot: %w", err)
	}
	if slot == nil {
		return 0, storage.ErrNotFound
	}
	return *slot, nil
}
