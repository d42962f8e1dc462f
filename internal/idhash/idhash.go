// Package idhash derives the deterministic ids of MEV findings and
// arbitrage opportunities, so a rescan of the same slots produces the
// same keys and the stores reject the repeats.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"solana-mev-lab/internal/domain"
)

// hashFields returns hex(SHA256(f1|f2|...)).
func hashFields(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}

// ComputeFindingID hashes signature|slot|tx_index|mev_type.
func ComputeFindingID(signature string, slot int64, txIndex int, mevType domain.MEVType) string {
	return hashFields(signature, strconv.FormatInt(slot, 10), strconv.Itoa(txIndex), string(mevType))
}

// ComputeOpportunityID hashes sender|slot|profile|sig1,sig2,... with the
// signatures in the order given.
func ComputeOpportunityID(sender string, slot int64, profile string, signatures []string) string {
	return hashFields(sender, strconv.FormatInt(slot, 10), profile, strings.Join(signatures, ","))
}
