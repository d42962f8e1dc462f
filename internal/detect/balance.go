package detect

import (
	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
)

// DustThreshold is the smallest absolute balance change considered real.
var DustThreshold = decimal.New(1, -6)

// Candidate is the owner whose balance changes look like a swap.
type Candidate struct {
	Owner     string
	TokensIn  []domain.MintAmount // losses
	TokensOut []domain.MintAmount // gains
	Deltas    []domain.TokenDelta // the owner's non-dust deltas

	GainCount   int
	LossCount   int
	UniqueMints int
}

type deltaKey struct {
	accountIndex int
	mint         string
}

// ComputeDeltas pairs pre and post rows by (accountIndex, mint).
// Entries keep pre order, followed by post rows that had no pre row.
// A post row without a pre row is a newly created account (pre = 0);
// a pre row without a post row is a closed account (post = 0).
func ComputeDeltas(pre, post []domain.Balance) []domain.TokenDelta {
	index := make(map[deltaKey]int, len(pre)+len(post))
	deltas := make([]domain.TokenDelta, 0, len(pre)+len(post))

	for _, b := range pre {
		k := deltaKey{b.AccountIndex, b.Mint}
		if i, ok := index[k]; ok {
			// duplicate pre row: last one wins
			deltas[i].Pre = b.UIAmount
			continue
		}
		index[k] = len(deltas)
		deltas = append(deltas, domain.TokenDelta{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			Pre:          b.UIAmount,
			Post:         decimal.Zero,
		})
	}

	for _, b := range post {
		k := deltaKey{b.AccountIndex, b.Mint}
		if i, ok := index[k]; ok {
			deltas[i].Post = b.UIAmount
			if deltas[i].Owner == "" {
				deltas[i].Owner = b.Owner
			}
			continue
		}
		index[k] = len(deltas)
		deltas = append(deltas, domain.TokenDelta{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			Pre:          decimal.Zero,
			Post:         b.UIAmount,
		})
	}

	for i := range deltas {
		deltas[i].Change = deltas[i].Post.Sub(deltas[i].Pre)
	}
	return deltas
}

// IsDust reports whether a change is below DustThreshold in absolute value.
func IsDust(change decimal.Decimal) bool {
	return change.Abs().LessThan(DustThreshold)
}

// FindCandidate returns the first owner, in balance order, whose non-dust
// deltas form a swap. Only one owner is reported per transaction even if
// several qualify.
//
// It returns ErrMissingData when either snapshot is absent (nil), and a nil
// candidate when the snapshots are present but no owner qualifies.
func FindCandidate(pre, post []domain.Balance) (*Candidate, error) {
	if pre == nil || post == nil {
		return nil, ErrMissingData
	}

	deltas := ComputeDeltas(pre, post)

	// owners in first-appearance order, dust included so that order
	// follows the balance rows rather than the surviving changes
	var owners []string
	byOwner := make(map[string][]domain.TokenDelta)
	for _, d := range deltas {
		if d.Owner == "" {
			continue
		}
		if _, seen := byOwner[d.Owner]; !seen {
			owners = append(owners, d.Owner)
			byOwner[d.Owner] = nil
		}
		if IsDust(d.Change) {
			continue
		}
		byOwner[d.Owner] = append(byOwner[d.Owner], d)
	}

	for _, owner := range owners {
		if c := evaluateOwner(owner, byOwner[owner]); c != nil {
			return c, nil
		}
	}
	return nil, nil
}

func evaluateOwner(owner string, changes []domain.TokenDelta) *Candidate {
	if len(changes) < 2 {
		return nil
	}

	mints := make(map[string]struct{})
	gained := make(map[string]struct{})
	lost := make(map[string]struct{})
	c := &Candidate{Owner: owner}

	for _, d := range changes {
		mints[d.Mint] = struct{}{}
		switch d.Change.Sign() {
		case 1:
			gained[d.Mint] = struct{}{}
			c.TokensOut = append(c.TokensOut, domain.MintAmount{Mint: d.Mint, Amount: d.Change})
			c.GainCount++
		case -1:
			lost[d.Mint] = struct{}{}
			c.TokensIn = append(c.TokensIn, domain.MintAmount{Mint: d.Mint, Amount: d.Change.Abs()})
			c.LossCount++
		}
	}

	if c.GainCount == 0 || c.LossCount == 0 || len(mints) < 2 {
		return nil
	}

	// same-mint shuffles between accounts are not swaps
	subset := true
	for m := range gained {
		if _, ok := lost[m]; !ok {
			subset = false
			break
		}
	}
	if subset {
		return nil
	}

	c.UniqueMints = len(mints)
	c.Deltas = changes
	return c
}
