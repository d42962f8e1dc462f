package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// Trade paths and pattern lists contain commas, so rows go through
// encoding/csv for quoting.

// RenderFindingsCSV renders finding rows as CSV string.
func RenderFindingsCSV(rows []FindingRow) string {
	records := [][]string{{"slot", "tx_index", "signature", "type", "confidence", "wallet", "patterns", "trade_path"}}
	for _, f := range rows {
		records = append(records, []string{
			strconv.FormatInt(f.Slot, 10),
			strconv.Itoa(f.TxIndex),
			f.Signature,
			string(f.Type),
			strconv.Itoa(f.Confidence),
			f.Wallet,
			f.Patterns,
			f.TradePath,
		})
	}
	return writeCSV(records)
}

// RenderOpportunitiesCSV renders arbitrage rows as CSV string.
func RenderOpportunitiesCSV(rows []OpportunityRow) string {
	records := [][]string{{"id", "slot", "sender", "confidence", "score", "transactions", "venues", "round_trips"}}
	for _, o := range rows {
		records = append(records, []string{
			o.ID,
			strconv.FormatInt(o.Slot, 10),
			o.Sender,
			string(o.Confidence),
			strconv.Itoa(o.Score),
			strconv.Itoa(o.Transactions),
			o.Platforms,
			o.RoundTrips,
		})
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	// strings.Builder writes cannot fail.
	_ = w.WriteAll(records)
	return sb.String()
}
