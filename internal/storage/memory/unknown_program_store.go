package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// UnknownProgramStore is an in-memory implementation of storage.UnknownProgramStore.
type UnknownProgramStore struct {
	mu   sync.RWMutex
	data map[string]*domain.UnknownProgramStat // keyed by program id
}

// NewUnknownProgramStore creates a new in-memory unknown program store.
func NewUnknownProgramStore() *UnknownProgramStore {
	return &UnknownProgramStore{
		data: make(map[string]*domain.UnknownProgramStat),
	}
}

// Record adds one sighting.
func (s *UnknownProgramStore) Record(_ context.Context, p *domain.UnknownProgram) error {
	if p == nil || p.ProgramID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stat, ok := s.data[p.ProgramID]
	if !ok {
		s.data[p.ProgramID] = &domain.UnknownProgramStat{
			ProgramID:     p.ProgramID,
			GuessedVenue:  p.GuessedVenue,
			Sightings:     1,
			FirstSlot:     p.Slot,
			LastSlot:      p.Slot,
			LastSignature: p.Signature,
		}
		return nil
	}

	stat.Sightings++
	if p.Slot < stat.FirstSlot {
		stat.FirstSlot = p.Slot
	}
	if p.Slot >= stat.LastSlot {
		stat.LastSlot = p.Slot
		stat.LastSignature = p.Signature
	}
	if stat.GuessedVenue == "" {
		stat.GuessedVenue = p.GuessedVenue
	}
	return nil
}

// List returns up to limit programs, most sighted first.
func (s *UnknownProgramStore) List(_ context.Context, limit int) ([]*domain.UnknownProgramStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.UnknownProgramStat, 0, len(s.data))
	for _, stat := range s.data {
		cp := *stat
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Sightings != result[j].Sightings {
			return result[i].Sightings > result[j].Sightings
		}
		return result[i].ProgramID < result[j].ProgramID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.UnknownProgramStore = (*UnknownProgramStore)(nil)
