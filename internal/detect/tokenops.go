package detect

import (
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/registry"
)

// SPL token instruction opcodes that move funds.
const (
	OpTransfer        byte = 3
	OpTransferChecked byte = 12
)

var tokenPrograms = map[string]struct{}{
	solana.TokenProgramID.String():     {},
	solana.Token2022ProgramID.String(): {},
}

// parsed instruction types that count as venue swap evidence
var venueOpTypes = map[string]struct{}{
	"swap":     {},
	"exchange": {},
	"transfer": {},
}

// TokenOp is a decoded Transfer or TransferChecked instruction.
type TokenOp struct {
	Program  string
	Opcode   byte
	Amount   uint64
	Decimals *uint8 // TransferChecked only
}

// IsTokenProgram reports whether programID is SPL Token or Token-2022.
func IsTokenProgram(programID string) bool {
	_, ok := tokenPrograms[programID]
	return ok
}

// DecodeTokenOp decodes a Transfer (opcode 3, amount u64) or
// TransferChecked (opcode 12, amount u64, decimals u8) instruction.
// It returns (nil, nil) for other token instructions and
// ErrMalformedInstruction when the layout does not match the opcode.
func DecodeTokenOp(programID string, ix domain.Instruction) (*TokenOp, error) {
	if !IsTokenProgram(programID) {
		return nil, nil
	}
	if ix.Malformed {
		return nil, ErrMalformedInstruction
	}
	if len(ix.Data) == 0 {
		return nil, nil
	}

	op := &TokenOp{Program: programID, Opcode: ix.Data[0]}
	switch op.Opcode {
	case OpTransfer:
		if len(ix.Accounts) < 3 || len(ix.Data) < 9 {
			return nil, fmt.Errorf("transfer: %d accounts, %d bytes: %w", len(ix.Accounts), len(ix.Data), ErrMalformedInstruction)
		}
	case OpTransferChecked:
		if len(ix.Accounts) < 4 || len(ix.Data) < 10 {
			return nil, fmt.Errorf("transferChecked: %d accounts, %d bytes: %w", len(ix.Accounts), len(ix.Data), ErrMalformedInstruction)
		}
	default:
		return nil, nil
	}

	dec := bin.NewBinDecoder(ix.Data[1:])
	amount, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("decode amount: %v: %w", err, ErrMalformedInstruction)
	}
	op.Amount = amount

	if op.Opcode == OpTransferChecked {
		decimals, err := dec.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("decode decimals: %v: %w", err, ErrMalformedInstruction)
		}
		op.Decimals = &decimals
	}
	return op, nil
}

// IsRelevantTokenOp reports whether ix moves funds in a way that corroborates
// a swap: a token Transfer/TransferChecked, or a registered venue
// instruction parsed as swap, exchange or transfer.
func IsRelevantTokenOp(tx *domain.Transaction, ix domain.Instruction, reg *registry.Registry) bool {
	pid, ok := tx.ProgramID(ix)
	if !ok {
		return false
	}

	if IsTokenProgram(pid) {
		op, err := DecodeTokenOp(pid, ix)
		return err == nil && op != nil
	}

	if reg.IsVenue(pid) && ix.Parsed != nil {
		_, ok := venueOpTypes[strings.ToLower(ix.Parsed.Type)]
		return ok
	}
	return false
}
