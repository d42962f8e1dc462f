package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

type progressKey struct {
	runID string
	slot  int64
}

// ScanProgressStore is an in-memory implementation of storage.ScanProgressStore.
type ScanProgressStore struct {
	mu   sync.RWMutex
	data map[progressKey]*domain.ScanProgress
}

// NewScanProgressStore creates a new in-memory scan progress store.
func NewScanProgressStore() *ScanProgressStore {
	return &ScanProgressStore{
		data: make(map[progressKey]*domain.ScanProgress),
	}
}

// Save records the outcome of a slot, replacing an earlier save for the same run and slot.
func (s *ScanProgressStore) Save(_ context.Context, p *domain.ScanProgress) error {
	if p == nil || p.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.data[progressKey{p.RunID, p.Slot}] = &cp
	return nil
}

// GetByRun returns the progress rows of a run, ordered by slot.
func (s *ScanProgressStore) GetByRun(_ context.Context, runID string) ([]*domain.ScanProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScanProgress
	for k, p := range s.data {
		if k.runID == runID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slot < result[j].Slot })
	return result, nil
}

// LastCompletedSlot returns the highest completed slot of any run.
func (s *ScanProgressStore) LastCompletedSlot(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	var last int64
	for _, p := range s.data {
		if p.Status != domain.ScanCompleted {
			continue
		}
		if !found || p.Slot > last {
			last = p.Slot
			found = true
		}
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return last, nil
}

var _ storage.ScanProgressStore = (*ScanProgressStore)(nil)
