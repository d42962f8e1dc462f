package solana

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
)

var errEmptyTransaction = errors.New("empty transaction payload")

// normalize resolves a wire transaction into the domain shape. Legacy and
// v0 messages end up identical except for Version; addresses loaded from
// lookup tables are appended after the static keys (writable, then read-only).
func normalize(slot int64, blockTime *int64, txIndex int, wt wireTxMeta) (domain.Transaction, error) {
	tx := domain.Transaction{
		Slot:      slot,
		BlockTime: blockTime,
		TxIndex:   txIndex,
		Version:   parseVersion(wt.Version),
	}

	payload := bytes.TrimSpace(wt.Transaction)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return tx, errEmptyTransaction
	}

	var err error
	if payload[0] == '[' {
		err = decodeBinary(payload, &tx)
	} else {
		err = decodeJSON(payload, &tx)
	}
	if err != nil {
		return tx, err
	}

	if wt.Meta == nil {
		return tx, nil
	}
	meta, err := normalizeMeta(wt.Meta)
	if err != nil {
		return tx, err
	}
	if la := wt.Meta.LoadedAddresses; la != nil {
		tx.Message.AccountKeys = append(tx.Message.AccountKeys, la.Writable...)
		tx.Message.AccountKeys = append(tx.Message.AccountKeys, la.Readonly...)
	}
	tx.Meta = meta
	return tx, nil
}

func parseVersion(raw json.RawMessage) domain.MessageVersion {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "legacy" {
			return domain.MessageLegacy
		}
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && n == 0 {
		return domain.MessageV0
	}
	return domain.MessageLegacy
}

func decodeJSON(payload []byte, tx *domain.Transaction) error {
	var wt wireJSONTransaction
	if err := json.Unmarshal(payload, &wt); err != nil {
		return fmt.Errorf("decode json transaction: %w", err)
	}
	if len(wt.Signatures) > 0 {
		tx.Signature = wt.Signatures[0]
	}
	tx.Message.AccountKeys = append([]string(nil), wt.Message.AccountKeys...)
	tx.Message.Instructions = convertInstructions(wt.Message.Instructions)
	return nil
}

// decodeBinary handles the ["<base64>", "base64"] form.
func decodeBinary(payload []byte, tx *domain.Transaction) error {
	var parts []string
	if err := json.Unmarshal(payload, &parts); err != nil {
		return fmt.Errorf("decode binary envelope: %w", err)
	}
	if len(parts) != 2 || parts[1] != string(EncodingBase64) {
		return fmt.Errorf("unsupported transaction encoding %v", parts)
	}
	raw, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("decode base64: %w", err)
	}
	return decodeWire(raw, tx)
}

// decodeWire parses a serialized transaction with solana-go.
func decodeWire(raw []byte, tx *domain.Transaction) error {
	parsed, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return fmt.Errorf("decode wire transaction: %w", err)
	}
	if len(parsed.Signatures) > 0 {
		tx.Signature = parsed.Signatures[0].String()
	}
	if parsed.Message.IsVersioned() {
		tx.Version = domain.MessageV0
	} else {
		tx.Version = domain.MessageLegacy
	}

	keys := make([]string, len(parsed.Message.AccountKeys))
	for i, k := range parsed.Message.AccountKeys {
		keys[i] = k.String()
	}
	tx.Message.AccountKeys = keys

	ixs := make([]domain.Instruction, len(parsed.Message.Instructions))
	for i, ci := range parsed.Message.Instructions {
		accounts := make([]int, len(ci.Accounts))
		for j, a := range ci.Accounts {
			accounts[j] = int(a)
		}
		ixs[i] = domain.Instruction{
			ProgramIDIndex: int(ci.ProgramIDIndex),
			Accounts:       accounts,
			Data:           []byte(ci.Data),
		}
	}
	tx.Message.Instructions = ixs
	return nil
}

// convertInstructions decodes base58 data. Undecodable data marks the
// instruction Malformed instead of failing the transaction.
func convertInstructions(in []wireInstruction) []domain.Instruction {
	out := make([]domain.Instruction, len(in))
	for i, w := range in {
		ix := domain.Instruction{
			ProgramIDIndex: w.ProgramIDIndex,
			Accounts:       append([]int(nil), w.Accounts...),
		}
		if w.Data != "" {
			data, err := base58.Decode(w.Data)
			if err != nil {
				ix.Malformed = true
			} else {
				ix.Data = data
			}
		}
		out[i] = ix
	}
	return out
}

func normalizeMeta(w *wireMeta) (*domain.TransactionMeta, error) {
	meta := &domain.TransactionMeta{
		Err:                  w.Err,
		Fee:                  w.Fee,
		ComputeUnitsConsumed: w.ComputeUnitsConsumed,
		LogMessages:          w.LogMessages,
	}

	var err error
	if meta.PreTokenBalances, err = convertBalances(w.PreTokenBalances); err != nil {
		return nil, fmt.Errorf("preTokenBalances: %w", err)
	}
	if meta.PostTokenBalances, err = convertBalances(w.PostTokenBalances); err != nil {
		return nil, fmt.Errorf("postTokenBalances: %w", err)
	}

	if w.InnerInstructions != nil {
		meta.InnerInstructions = make([]domain.InnerInstructionGroup, len(w.InnerInstructions))
		for i, g := range w.InnerInstructions {
			meta.InnerInstructions[i] = domain.InnerInstructionGroup{
				Index:        g.Index,
				Instructions: convertInstructions(g.Instructions),
			}
		}
	}
	return meta, nil
}

// convertBalances keeps nil for an absent snapshot.
func convertBalances(in []wireTokenBalance) ([]domain.Balance, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]domain.Balance, len(in))
	for i, w := range in {
		amount, err := uiAmount(w.UITokenAmount)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", w.AccountIndex, err)
		}
		out[i] = domain.Balance{
			AccountIndex: w.AccountIndex,
			Mint:         w.Mint,
			Owner:        w.Owner,
			UIAmount:     amount,
			Decimals:     w.UITokenAmount.Decimals,
		}
	}
	return out, nil
}

// uiAmount prefers the exact string form, then the raw amount scaled by
// decimals, then the float.
func uiAmount(w wireUIAmount) (decimal.Decimal, error) {
	switch {
	case w.UIAmountString != "":
		return decimal.NewFromString(w.UIAmountString)
	case w.Amount != "":
		raw, err := decimal.NewFromString(w.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		return raw.Shift(-int32(w.Decimals)), nil
	case w.UIAmount != nil:
		return decimal.NewFromFloat(*w.UIAmount), nil
	default:
		return decimal.Zero, nil
	}
}
