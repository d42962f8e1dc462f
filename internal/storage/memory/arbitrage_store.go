package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// ArbitrageStore is an in-memory implementation of storage.ArbitrageStore.
type ArbitrageStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ArbitrageOpportunity // keyed by id
}

// NewArbitrageStore creates a new in-memory arbitrage store.
func NewArbitrageStore() *ArbitrageStore {
	return &ArbitrageStore{
		data: make(map[string]*domain.ArbitrageOpportunity),
	}
}

// InsertBulk adds multiple opportunities atomically. Fails entire batch on any duplicate.
func (s *ArbitrageStore) InsertBulk(_ context.Context, opps []*domain.ArbitrageOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(opps))
	for _, o := range opps {
		if o == nil || o.ID == "" || o.Sender == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[o.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[o.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[o.ID] = struct{}{}
	}

	for _, o := range opps {
		cp := *o
		s.data[o.ID] = &cp
	}
	return nil
}

// GetByID retrieves an opportunity by its ID.
func (s *ArbitrageStore) GetByID(_ context.Context, id string) (*domain.ArbitrageOpportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// GetBySlotRange retrieves opportunities within [from, to], ordered by slot ASC, score DESC.
func (s *ArbitrageStore) GetBySlotRange(_ context.Context, from, to int64) ([]*domain.ArbitrageOpportunity, error) {
	return s.filter(func(o *domain.ArbitrageOpportunity) bool {
		return o.Slot >= from && o.Slot <= to
	}), nil
}

// GetBySender retrieves all opportunities of a wallet.
func (s *ArbitrageStore) GetBySender(_ context.Context, sender string) ([]*domain.ArbitrageOpportunity, error) {
	return s.filter(func(o *domain.ArbitrageOpportunity) bool {
		return o.Sender == sender
	}), nil
}

func (s *ArbitrageStore) filter(keep func(*domain.ArbitrageOpportunity) bool) []*domain.ArbitrageOpportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ArbitrageOpportunity
	for _, o := range s.data {
		if keep(o) {
			cp := *o
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})
	return result
}

var _ storage.ArbitrageStore = (*ArbitrageStore)(nil)
