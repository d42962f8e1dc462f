package memory

import (
	"context"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/storage"
)

// AnalyticsStore is an in-memory implementation of storage.AnalyticsStore.
type AnalyticsStore struct {
	mu       sync.RWMutex
	swaps    map[string]*domain.SwapRecord
	findings map[string]*domain.MEVFinding
}

// NewAnalyticsStore creates a new in-memory analytics store.
func NewAnalyticsStore() *AnalyticsStore {
	return &AnalyticsStore{
		swaps:    make(map[string]*domain.SwapRecord),
		findings: make(map[string]*domain.MEVFinding),
	}
}

// InsertSwaps appends swap events. Fails entire batch on any duplicate.
func (s *AnalyticsStore) InsertSwaps(_ context.Context, records []*domain.SwapRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := mapset.NewThreadUnsafeSet[string]()
	for _, r := range records {
		if r == nil || r.Signature == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.swaps[r.Signature]; exists || batch.Contains(r.Signature) {
			return storage.ErrDuplicateKey
		}
		batch.Add(r.Signature)
	}
	for _, r := range records {
		cp := *r
		s.swaps[r.Signature] = &cp
	}
	return nil
}

// InsertFindings appends finding events. Fails entire batch on any duplicate.
func (s *AnalyticsStore) InsertFindings(_ context.Context, findings []*domain.MEVFinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := mapset.NewThreadUnsafeSet[string]()
	for _, f := range findings {
		if f == nil || f.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.findings[f.ID]; exists || batch.Contains(f.ID) {
			return storage.ErrDuplicateKey
		}
		batch.Add(f.ID)
	}
	for _, f := range findings {
		cp := *f
		s.findings[f.ID] = &cp
	}
	return nil
}

// VenueActivity counts swaps and distinct wallets per venue within [from, to].
func (s *AnalyticsStore) VenueActivity(_ context.Context, from, to int64) ([]*domain.VenueStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	swaps := make(map[string]int)
	wallets := make(map[string]mapset.Set[string])
	for _, r := range s.swaps {
		if r.Slot < from || r.Slot > to {
			continue
		}
		for _, venue := range r.Platforms {
			swaps[venue]++
			if wallets[venue] == nil {
				wallets[venue] = mapset.NewThreadUnsafeSet[string]()
			}
			wallets[venue].Add(r.InitiatorWallet)
		}
	}

	result := make([]*domain.VenueStat, 0, len(swaps))
	for venue, n := range swaps {
		result = append(result, &domain.VenueStat{Venue: venue, Swaps: n, Wallets: wallets[venue].Cardinality()})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Swaps != result[j].Swaps {
			return result[i].Swaps > result[j].Swaps
		}
		return result[i].Venue < result[j].Venue
	})
	return result, nil
}

// FindingCounts counts findings per type within [from, to].
func (s *AnalyticsStore) FindingCounts(_ context.Context, from, to int64) (map[domain.MEVType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.MEVType]int)
	for _, f := range s.findings {
		if f.Slot >= from && f.Slot <= to {
			counts[f.Type]++
		}
	}
	return counts, nil
}

var _ storage.AnalyticsStore = (*AnalyticsStore)(nil)
