package storage

import (
	"context"

	"solana-mev-lab/internal/domain"
)

// ScanProgressStore persists per-slot scan outcomes.
// This enables resumption after restarts without rescanning completed slots.
type ScanProgressStore interface {
	// Save records the outcome of a slot. A later save for the same (run_id, slot) replaces it.
	Save(ctx context.Context, p *domain.ScanProgress) error

	// GetByRun returns the progress rows of a run, ordered by slot ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.ScanProgress, error)

	// LastCompletedSlot returns the highest slot completed by any run.
	// Returns ErrNotFound if no slot has completed yet.
	LastCompletedSlot(ctx context.Context) (int64, error)
}
