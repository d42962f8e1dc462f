package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
)

// JSONB column shapes. Amounts are serialized as decimal strings.

type mintAmountJSON struct {
	Mint   string          `json:"mint"`
	Amount decimal.Decimal `json:"amount"`
}

type roundTripJSON struct {
	Mint  string `json:"mint"`
	Buys  int    `json:"buys"`
	Sells int    `json:"sells"`
}

type patternJSON struct {
	Type              string   `json:"type"`
	Confidence        int      `json:"confidence"`
	Reason            string   `json:"reason"`
	Attacker          string   `json:"attacker,omitempty"`
	Victim            string   `json:"victim,omitempty"`
	RelatedSignatures []string `json:"related_signatures,omitempty"`
	Mints             []string `json:"mints,omitempty"`
}

func encodeMintAmounts(amounts []domain.MintAmount) ([]byte, error) {
	out := make([]mintAmountJSON, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, mintAmountJSON{Mint: a.Mint, Amount: a.Amount})
	}
	return json.Marshal(out)
}

func decodeMintAmounts(data []byte) ([]domain.MintAmount, error) {
	var in []mintAmountJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode mint amounts: %w", err)
	}
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]domain.MintAmount, len(in))
	for i, a := range in {
		out[i] = domain.MintAmount{Mint: a.Mint, Amount: a.Amount}
	}
	return out, nil
}

func encodeRoundTrips(tokens []domain.RoundTripToken) ([]byte, error) {
	out := make([]roundTripJSON, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, roundTripJSON{Mint: t.Mint, Buys: t.BuyCount, Sells: t.SellCount})
	}
	return json.Marshal(out)
}

func decodeRoundTrips(data []byte) ([]domain.RoundTripToken, error) {
	var in []roundTripJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode round trip tokens: %w", err)
	}
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]domain.RoundTripToken, len(in))
	for i, t := range in {
		out[i] = domain.RoundTripToken{Mint: t.Mint, BuyCount: t.Buys, SellCount: t.Sells}
	}
	return out, nil
}

func encodePatterns(patterns []domain.PatternMatch) ([]byte, error) {
	out := make([]patternJSON, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, patternJSON{
			Type:              string(p.Type),
			Confidence:        p.Confidence,
			Reason:            p.Reason,
			Attacker:          p.Attacker,
			Victim:            p.Victim,
			RelatedSignatures: p.RelatedSignatures,
			Mints:             p.Mints,
		})
	}
	return json.Marshal(out)
}

func decodePatterns(data []byte) ([]domain.PatternMatch, error) {
	var in []patternJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]domain.PatternMatch, len(in))
	for i, p := range in {
		out[i] = domain.PatternMatch{
			Type:              domain.MEVType(p.Type),
			Confidence:        p.Confidence,
			Reason:            p.Reason,
			Attacker:          p.Attacker,
			Victim:            p.Victim,
			RelatedSignatures: p.RelatedSignatures,
			Mints:             p.Mints,
		}
	}
	return out, nil
}
