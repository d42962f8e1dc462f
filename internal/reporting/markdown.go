package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MEV Scan Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Slots: %d..%d\n\n", r.FromSlot, r.ToSlot))

	if r.Run != nil {
		sb.WriteString("## Scan Run\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Run.RunID))
		sb.WriteString(fmt.Sprintf("| Completed Slots | %d |\n", r.Run.Completed))
		sb.WriteString(fmt.Sprintf("| Skipped Slots | %d |\n", r.Run.Skipped))
		sb.WriteString(fmt.Sprintf("| Failed Slots | %d |\n", r.Run.Failed))
		sb.WriteString("\n")
		if len(r.Run.Errors) > 0 {
			sb.WriteString("### Failures\n\n")
			for _, e := range r.Run.Errors {
				sb.WriteString(fmt.Sprintf("- %s\n", e))
			}
			sb.WriteString("\n")
		}
	}

	// Swaps
	s := r.Swaps
	sb.WriteString("## Swaps\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Swaps | %d |\n", s.Total))
	sb.WriteString(fmt.Sprintf("| Definite | %d |\n", s.Definite))
	sb.WriteString(fmt.Sprintf("| Probable | %d |\n", s.Probable))
	sb.WriteString(fmt.Sprintf("| Unique Wallets | %d |\n", s.UniqueWallets))
	sb.WriteString(fmt.Sprintf("| Complexity low/medium/high | %d / %d / %d |\n", s.LowComplexity, s.MedComplexity, s.HiComplexity))
	sb.WriteString(fmt.Sprintf("| Failed Transactions | %d |\n", s.Failed))
	sb.WriteString(fmt.Sprintf("| Stable-coin PnL | %s |\n", s.StablePnL.StringFixed(6)))
	sb.WriteString("\n")

	// Venues
	sb.WriteString("## Venue Activity\n\n")
	if len(r.Venues) > 0 {
		sb.WriteString("| Venue | Swaps | Wallets |\n")
		sb.WriteString("|-------|-------|---------|\n")
		for _, v := range r.Venues {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", v.Venue, v.Swaps, v.Wallets))
		}
	} else {
		sb.WriteString("No venue activity.\n")
	}
	sb.WriteString("\n")

	// MEV
	sb.WriteString("## MEV Findings\n\n")
	if len(r.MEV.Counts) > 0 {
		sb.WriteString("| Type | Count | Description |\n")
		sb.WriteString("|------|-------|-------------|\n")
		for _, c := range r.MEV.Counts {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", c.Type, c.Count, c.Description))
		}
		sb.WriteString("\n")
	}
	if len(r.MEV.Findings) > 0 {
		sb.WriteString("| Slot | Index | Signature | Type | Confidence | Wallet | Patterns |\n")
		sb.WriteString("|------|-------|-----------|------|------------|--------|----------|\n")
		for _, f := range r.MEV.Findings {
			sb.WriteString(fmt.Sprintf("| %d | %d | %s | %s | %d | %s | %s |\n",
				f.Slot, f.TxIndex, f.Signature, f.Type, f.Confidence, f.Wallet, f.Patterns))
		}
	} else {
		sb.WriteString("No MEV findings.\n")
	}
	sb.WriteString("\n")

	// Arbitrage
	a := r.Arbitrage.Summary
	sb.WriteString("## Arbitrage\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Opportunities | %d |\n", a.TotalOpportunities))
	sb.WriteString(fmt.Sprintf("| Unique Arbitragers | %d |\n", a.UniqueArbitragers))
	sb.WriteString(fmt.Sprintf("| Perfect | %d |\n", a.PerfectArbitrageCount))
	sb.WriteString(fmt.Sprintf("| High Confidence | %d |\n", a.HighConfidenceCount))
	sb.WriteString(fmt.Sprintf("| Multi-venue | %d |\n", a.MultiDexUsageCount))
	sb.WriteString(fmt.Sprintf("| Round Trip | %d |\n", a.RoundTripTradingCount))
	sb.WriteString("\n")
	if len(r.Arbitrage.Opportunities) > 0 {
		sb.WriteString("| Slot | Sender | Confidence | Score | Txs | Venues | Round Trips |\n")
		sb.WriteString("|------|--------|------------|-------|-----|--------|-------------|\n")
		for _, o := range r.Arbitrage.Opportunities {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %d | %s | %s |\n",
				o.Slot, o.Sender, o.Confidence, o.Score, o.Transactions, o.Platforms, o.RoundTrips))
		}
		sb.WriteString("\n")
	}

	// Unknown programs
	sb.WriteString("## Unknown Programs\n\n")
	if len(r.Unknown) > 0 {
		sb.WriteString("| Program | Guess | Sightings | First Slot | Last Slot |\n")
		sb.WriteString("|---------|-------|-----------|------------|-----------|\n")
		for _, u := range r.Unknown {
			guess := u.GuessedVenue
			if guess == "" {
				guess = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d |\n",
				u.ProgramID, guess, u.Sightings, u.FirstSlot, u.LastSlot))
		}
	} else {
		sb.WriteString("No unknown programs recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
