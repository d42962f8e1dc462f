package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// MEVFindingStore is an in-memory implementation of storage.MEVFindingStore.
type MEVFindingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MEVFinding // keyed by id
}

// NewMEVFindingStore creates a new in-memory finding store.
func NewMEVFindingStore() *MEVFindingStore {
	return &MEVFindingStore{
		data: make(map[string]*domain.MEVFinding),
	}
}

// InsertBulk adds multiple findings atomically. Fails entire batch on any duplicate.
func (s *MEVFindingStore) InsertBulk(_ context.Context, findings []*domain.MEVFinding) error {
	if len(findings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		if f == nil || f.ID == "" || !f.Type.IsValid() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[f.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[f.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[f.ID] = struct{}{}
	}

	for _, f := range findings {
		cp := *f
		s.data[f.ID] = &cp
	}
	return nil
}

// GetByID retrieves a finding by its ID.
func (s *MEVFindingStore) GetByID(_ context.Context, id string) (*domain.MEVFinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

// GetBySignature retrieves the finding of a transaction.
func (s *MEVFindingStore) GetBySignature(_ context.Context, signature string) (*domain.MEVFinding, error) {
	found := s.filter(func(f *domain.MEVFinding) bool {
		return f.Signature == signature
	}, 1, false)
	if len(found) == 0 {
		return nil, storage.ErrNotFound
	}
	return found[0], nil
}

// GetBySlotRange retrieves findings within [from, to], ordered by (slot, tx_index).
func (s *MEVFindingStore) GetBySlotRange(_ context.Context, from, to int64) ([]*domain.MEVFinding, error) {
	return s.filter(func(f *domain.MEVFinding) bool {
		return f.Slot >= from && f.Slot <= to
	}, 0, false), nil
}

// GetByType retrieves up to limit findings of a type, newest first.
func (s *MEVFindingStore) GetByType(_ context.Context, t domain.MEVType, limit int) ([]*domain.MEVFinding, error) {
	return s.filter(func(f *domain.MEVFinding) bool {
		return f.Type == t
	}, limit, true), nil
}

// GetByWallet retrieves all findings attributed to wallet.
func (s *MEVFindingStore) GetByWallet(_ context.Context, wallet string) ([]*domain.MEVFinding, error) {
	return s.filter(func(f *domain.MEVFinding) bool {
		return f.Wallet == wallet
	}, 0, false), nil
}

func (s *MEVFindingStore) filter(keep func(*domain.MEVFinding) bool, limit int, newestFirst bool) []*domain.MEVFinding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MEVFinding
	for _, f := range s.data {
		if keep(f) {
			cp := *f
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if newestFirst {
			a, b = b, a
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.TxIndex < b.TxIndex
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

var _ storage.MEVFindingStore = (*MEVFindingStore)(nil)
