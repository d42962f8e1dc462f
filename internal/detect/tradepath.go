package detect

import (
	"strings"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/registry"
)

// Hop is one mint-to-mint leg executed by a single instruction.
type Hop struct {
	From  string // mint
	To    string // mint
	Venue string
}

// TradePath is the reconstructed route of a transaction.
type TradePath struct {
	Path     string   // "" when no hop was found
	Hops     []Hop
	Venues   []string // distinct venue names touched, first-seen order
	Programs []string // distinct non-infrastructure program ids, first-seen order

	// Malformed counts instructions ignored because their program index
	// did not resolve.
	Malformed int
}

// ReconstructPath walks outer instructions then every inner group, skipping
// infrastructure programs. Every other program is a touched venue, named from
// the registry or by its truncated id. An instruction referencing accounts
// that hold two or more distinct mints produces a hop from the first mint to
// the second.
func ReconstructPath(tx *domain.Transaction, reg *registry.Registry) TradePath {
	var tp TradePath
	venueSeen := make(map[string]struct{})
	programSeen := make(map[string]struct{})

	var pre, post []domain.Balance
	if tx.Meta != nil {
		pre, post = tx.Meta.PreTokenBalances, tx.Meta.PostTokenBalances
	}
	mintOf := accountMints(pre, post)

	for _, ix := range tx.AllInstructions() {
		pid, ok := tx.ProgramID(ix)
		if !ok {
			tp.Malformed++
			continue
		}
		if reg.IsInfrastructure(pid) {
			continue
		}

		venue := reg.VenueName(pid)
		if _, ok := venueSeen[venue]; !ok {
			venueSeen[venue] = struct{}{}
			tp.Venues = append(tp.Venues, venue)
		}
		if _, ok := programSeen[pid]; !ok {
			programSeen[pid] = struct{}{}
			tp.Programs = append(tp.Programs, pid)
		}

		if len(ix.Accounts) < 2 || len(mintOf) == 0 {
			continue
		}
		mints := instructionMints(ix.Accounts, mintOf)
		if len(mints) >= 2 {
			tp.Hops = append(tp.Hops, Hop{From: mints[0], To: mints[1], Venue: venue})
		}
	}

	tp.Path = RenderPath(tp.Hops, reg)
	return tp
}

// accountMints maps account index to mint; pre rows take precedence.
func accountMints(pre, post []domain.Balance) map[int]string {
	out := make(map[int]string, len(pre)+len(post))
	for _, rows := range [][]domain.Balance{pre, post} {
		for _, b := range rows {
			if _, ok := out[b.AccountIndex]; ok || b.Mint == "" {
				continue
			}
			out[b.AccountIndex] = b.Mint
		}
	}
	return out
}

func instructionMints(accounts []int, mintOf map[int]string) []string {
	var mints []string
	seen := make(map[string]struct{}, 2)
	for _, idx := range accounts {
		mint, ok := mintOf[idx]
		if !ok {
			continue
		}
		if _, dup := seen[mint]; dup {
			continue
		}
		seen[mint] = struct{}{}
		mints = append(mints, mint)
	}
	return mints
}

// RenderPath formats hops as "A → B on V, → C on W" and marks a hop that
// does not start where the previous one ended as "(X) → Y on Z".
func RenderPath(hops []Hop, reg *registry.Registry) string {
	if len(hops) == 0 {
		return ""
	}

	parts := make([]string, 0, len(hops))
	for i, h := range hops {
		to := reg.Symbol(h.To)
		switch {
		case i == 0:
			parts = append(parts, reg.Symbol(h.From)+" → "+to+" on "+h.Venue)
		case h.From == hops[i-1].To:
			parts = append(parts, "→ "+to+" on "+h.Venue)
		default:
			parts = append(parts, "("+reg.Symbol(h.From)+") → "+to+" on "+h.Venue)
		}
	}
	return strings.Join(parts, ", ")
}
