package api

import (
	"time"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/mev"
)

// MintAmountView is a mint and a decimal amount rendered as a string.
type MintAmountView struct {
	Mint   string `json:"mint"`
	Amount string `json:"amount"`
}

// SwapView is the JSON shape of a swap record.
type SwapView struct {
	Signature          string           `json:"signature"`
	Slot               int64            `json:"slot"`
	TxIndex            int              `json:"txIndex"`
	BlockTime          *int64           `json:"blockTime,omitempty"`
	InitiatorWallet    string           `json:"initiatorWallet"`
	Owner              string           `json:"owner"`
	TokensIn           []MintAmountView `json:"tokensIn"`
	TokensOut          []MintAmountView `json:"tokensOut"`
	Platforms          []string         `json:"platforms"`
	TradePath          string           `json:"tradePath,omitempty"`
	Confidence         string           `json:"confidence"`
	MatchedProgramIDs  []string         `json:"matchedProgramIds,omitempty"`
	UnknownPrograms    []string         `json:"unknownPrograms,omitempty"`
	HasRelevantTokenOp bool             `json:"hasRelevantTokenOp"`
	GainCount          int              `json:"gainCount"`
	LossCount          int              `json:"lossCount"`
	UniqueMints        int              `json:"uniqueMints"`
	Success            bool             `json:"success"`
	Fee                uint64           `json:"fee"`
	ComputeUnits       *uint64          `json:"computeUnits,omitempty"`
	OuterInstructions  int              `json:"outerInstructions"`
	InnerInstructions  int              `json:"innerInstructions"`
	Complexity         string           `json:"complexity"`
	StablePnL          *string          `json:"stablePnl,omitempty"`
	MEV                *FindingView     `json:"mev,omitempty"`
}

// PatternView is one matched heuristic.
type PatternView struct {
	Type              string   `json:"type"`
	Confidence        int      `json:"confidence"`
	Reason            string   `json:"reason"`
	Attacker          string   `json:"attacker,omitempty"`
	Victim            string   `json:"victim,omitempty"`
	RelatedSignatures []string `json:"relatedSignatures,omitempty"`
	Mints             []string `json:"mints,omitempty"`
}

// FindingView is the JSON shape of an MEV finding.
type FindingView struct {
	ID          string        `json:"id"`
	Signature   string        `json:"signature"`
	Slot        int64         `json:"slot"`
	TxIndex     int           `json:"txIndex"`
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Confidence  int           `json:"confidence"`
	Wallet      string        `json:"wallet"`
	Patterns    []PatternView `json:"patterns"`
	Suspicious  []string      `json:"suspicious,omitempty"`
}

// RoundTripView is a mint a wallet both bought and sold.
type RoundTripView struct {
	Mint      string `json:"mint"`
	BuyCount  int    `json:"buyCount"`
	SellCount int    `json:"sellCount"`
}

// OpportunityView is the JSON shape of an arbitrage opportunity.
type OpportunityView struct {
	ID                string          `json:"id"`
	Sender            string          `json:"sender"`
	Slot              int64           `json:"slot"`
	Profile           string          `json:"profile"`
	TransactionCount  int             `json:"transactionCount"`
	PlatformsUsed     []string        `json:"platformsUsed"`
	UsedMultipleDexes bool            `json:"usedMultipleDexes"`
	RoundTripTokens   []RoundTripView `json:"roundTripTokens"`
	HasRoundTrip      bool            `json:"hasRoundTrip"`
	AllCriteriaMet    bool            `json:"allCriteriaMet"`
	Confidence        string          `json:"confidence"`
	Score             int             `json:"score"`
	Signatures        []string        `json:"signatures"`
}

// ProgressView is one slot of a scan run.
type ProgressView struct {
	Slot         int64     `json:"slot"`
	Status       string    `json:"status"`
	Transactions int       `json:"transactions"`
	Swaps        int       `json:"swaps"`
	Findings     int       `json:"findings"`
	Error        string    `json:"error,omitempty"`
	ScannedAt    time.Time `json:"scannedAt"`
}

// RunView summarizes a scan run.
type RunView struct {
	RunID     string         `json:"runId"`
	Completed int            `json:"completed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Slots     []ProgressView `json:"slots"`
}

func mintAmounts(in []domain.MintAmount) []MintAmountView {
	out := make([]MintAmountView, len(in))
	for i, m := range in {
		out[i] = MintAmountView{Mint: m.Mint, Amount: m.Amount.String()}
	}
	return out
}

func newSwapView(r *domain.SwapRecord) SwapView {
	v := SwapView{
		Signature:          r.Signature,
		Slot:               r.Slot,
		TxIndex:            r.TxIndex,
		BlockTime:          r.BlockTime,
		InitiatorWallet:    r.InitiatorWallet,
		Owner:              r.Owner,
		TokensIn:           mintAmounts(r.TokensIn),
		TokensOut:          mintAmounts(r.TokensOut),
		Platforms:          orEmpty(r.Platforms),
		TradePath:          r.TradePath,
		Confidence:         r.Confidence.String(),
		MatchedProgramIDs:  r.MatchedProgramIDs,
		UnknownPrograms:    r.UnknownPrograms,
		HasRelevantTokenOp: r.HasRelevantTokenOp,
		GainCount:          r.GainCount,
		LossCount:          r.LossCount,
		UniqueMints:        r.UniqueMints,
		Success:            r.Success,
		Fee:                r.Fee,
		ComputeUnits:       r.ComputeUnits,
		OuterInstructions:  r.OuterInstructions,
		InnerInstructions:  r.InnerInstructions,
		Complexity:         string(r.Complexity),
	}
	if r.StablePnL != nil {
		pnl := r.StablePnL.StringFixed(6)
		v.StablePnL = &pnl
	}
	if r.MEV != nil {
		f := newFindingView(r.MEV)
		v.MEV = &f
	}
	return v
}

func newFindingView(f *domain.MEVFinding) FindingView {
	patterns := make([]PatternView, len(f.Details.Patterns))
	for i, p := range f.Details.Patterns {
		patterns[i] = PatternView{
			Type:              p.Type.String(),
			Confidence:        p.Confidence,
			Reason:            p.Reason,
			Attacker:          p.Attacker,
			Victim:            p.Victim,
			RelatedSignatures: p.RelatedSignatures,
			Mints:             p.Mints,
		}
	}
	return FindingView{
		ID:          f.ID,
		Signature:   f.Signature,
		Slot:        f.Slot,
		TxIndex:     f.TxIndex,
		Type:        f.Type.String(),
		Description: mev.Description(f.Type),
		Confidence:  f.Confidence,
		Wallet:      f.Wallet,
		Patterns:    patterns,
		Suspicious:  f.Details.Suspicious,
	}
}

func newOpportunityView(o *domain.ArbitrageOpportunity) OpportunityView {
	trips := make([]RoundTripView, len(o.RoundTripTokens))
	for i, rt := range o.RoundTripTokens {
		trips[i] = RoundTripView{Mint: rt.Mint, BuyCount: rt.BuyCount, SellCount: rt.SellCount}
	}
	return OpportunityView{
		ID:                o.ID,
		Sender:            o.Sender,
		Slot:              o.Slot,
		Profile:           o.Profile,
		TransactionCount:  o.TransactionCount,
		PlatformsUsed:     orEmpty(o.PlatformsUsed),
		UsedMultipleDexes: o.UsedMultipleDexes,
		RoundTripTokens:   trips,
		HasRoundTrip:      o.HasRoundTrip,
		AllCriteriaMet:    o.AllCriteriaMet,
		Confidence:        o.Confidence.String(),
		Score:             o.Score,
		Signatures:        orEmpty(o.Signatures),
	}
}

func swapViews(records []*domain.SwapRecord) []SwapView {
	out := make([]SwapView, len(records))
	for i, r := range records {
		out[i] = newSwapView(r)
	}
	return out
}

func findingViews(findings []*domain.MEVFinding) []FindingView {
	out := make([]FindingView, len(findings))
	for i, f := range findings {
		out[i] = newFindingView(f)
	}
	return out
}

func opportunityViews(opps []*domain.ArbitrageOpportunity) []OpportunityView {
	out := make([]OpportunityView, len(opps))
	for i, o := range opps {
		out[i] = newOpportunityView(o)
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
