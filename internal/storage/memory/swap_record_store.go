package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// SwapRecordStore is an in-memory implementation of storage.SwapRecordStore.
type SwapRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SwapRecord // keyed by signature
}

// NewSwapRecordStore creates a new in-memory swap record store.
func NewSwapRecordStore() *SwapRecordStore {
	return &SwapRecordStore{
		data: make(map[string]*domain.SwapRecord),
	}
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *SwapRecordStore) InsertBulk(_ context.Context, records []*domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Signature == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[r.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		batch[r.Signature] = struct{}{}
	}

	for _, r := range records {
		cp := *r
		s.data[r.Signature] = &cp
	}
	return nil
}

// GetBySignature retrieves a record by signature.
func (s *SwapRecordStore) GetBySignature(_ context.Context, signature string) (*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// GetBySlotRange retrieves records within [from, to], ordered by (slot, tx_index).
func (s *SwapRecordStore) GetBySlotRange(_ context.Context, from, to int64) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapRecord
	for _, r := range s.data {
		if r.Slot >= from && r.Slot <= to {
			cp := *r
			result = append(result, &cp)
		}
	}
	sortRecords(result)
	return result, nil
}

// GetByWallet retrieves up to limit records of wallet, newest slot first.
func (s *SwapRecordStore) GetByWallet(_ context.Context, wallet string, limit int) ([]*domain.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapRecord
	for _, r := range s.data {
		if r.InitiatorWallet == wallet {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Slot != result[j].Slot {
			return result[i].Slot > result[j].Slot
		}
		return result[i].TxIndex > result[j].TxIndex
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sortRecords(rs []*domain.SwapRecord) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Slot != rs[j].Slot {
			return rs[i].Slot < rs[j].Slot
		}
		return rs[i].TxIndex < rs[j].TxIndex
	})
}

var _ storage.SwapRecordStore = (*SwapRecordStore)(nil)
