package replay

import (
	"sort"

	"solana-mev-lab/internal/domain"
)

// GroupBySlot splits records into per-slot batches ordered by
// (slot ASC, tx_index ASC, signature ASC). The records are copied and
// any stored MEV annotation is dropped.
func GroupBySlot(records []*domain.SwapRecord) [][]domain.SwapRecord {
	sorted := make([]domain.SwapRecord, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		sorted = append(sorted, r.WithMEV(nil))
	}
	sort.Slice(sorted, func(i, j int) bool {
		return compareRecords(&sorted[i], &sorted[j]) < 0
	})

	var batches [][]domain.SwapRecord
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Slot == sorted[start].Slot {
			end++
		}
		batches = append(batches, sorted[start:end:end])
		start = end
	}
	return batches
}

// compareRecords returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (slot ASC, tx_index ASC, signature ASC)
func compareRecords(a, b *domain.SwapRecord) int {
	if a.Slot != b.Slot {
		if a.Slot < b.Slot {
			return -1
		}
		return 1
	}
	if a.TxIndex != b.TxIndex {
		if a.TxIndex < b.TxIndex {
			return -1
		}
		return 1
	}
	if a.Signature != b.Signature {
		if a.Signature < b.Signature {
			return -1
		}
		return 1
	}
	return 0
}
