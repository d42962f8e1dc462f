package mev

import (
	"errors"
	"fmt"
	"sort"

	"solana-mev-lab/internal/domain"
)

// ErrInvalidOrdering is returned when in-block positions cannot be established.
var ErrInvalidOrdering = errors.New("invalid transaction ordering")

// ValidateOrdering checks that every record has a TxIndex and that no two
// records in the same slot share one.
func ValidateOrdering(records []domain.SwapRecord) error {
	type pos struct {
		slot  int64
		index int
	}
	seen := make(map[pos]string, len(records))
	for _, r := range records {
		if r.TxIndex < 0 {
			return fmt.Errorf("%w: %s has no tx index", ErrInvalidOrdering, r.Signature)
		}
		p := pos{r.Slot, r.TxIndex}
		if other, ok := seen[p]; ok {
			return fmt.Errorf("%w: %s and %s share slot %d index %d", ErrInvalidOrdering, other, r.Signature, r.Slot, r.TxIndex)
		}
		seen[p] = r.Signature
	}
	return nil
}

// sortByPosition returns a copy ordered by (slot, txIndex).
func sortByPosition(records []domain.SwapRecord) []domain.SwapRecord {
	sorted := make([]domain.SwapRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Slot != sorted[j].Slot {
			return sorted[i].Slot < sorted[j].Slot
		}
		return sorted[i].TxIndex < sorted[j].TxIndex
	})
	return sorted
}
