package domain

import "github.com/shopspring/decimal"

// MessageVersion identifies the wire format a transaction was decoded from.
type MessageVersion string

const (
	MessageLegacy MessageVersion = "legacy"
	MessageV0     MessageVersion = "v0"
)

// Block is a fetched slot with its transactions in execution order.
type Block struct {
	Slot         int64
	BlockTime    *int64
	Transactions []Transaction
}

// Transaction is the normalized transaction shape consumed by detection.
// Legacy and versioned messages are resolved into this shape at ingestion.
type Transaction struct {
	Signature string
	Slot      int64
	BlockTime *int64
	TxIndex   int // position inside the block, -1 when unknown
	Version   MessageVersion
	Message   Message
	Meta      *TransactionMeta
}

// Message holds the resolved account keys and top-level instructions.
// AccountKeys already include addresses loaded from lookup tables
// (static keys, then loaded writable, then loaded read-only).
type Message struct {
	AccountKeys  []string
	Instructions []Instruction
}

// TransactionMeta is the execution metadata of a transaction.
//
// PreTokenBalances and PostTokenBalances are nil when the snapshot is absent
// and empty when present but without rows.
type TransactionMeta struct {
	Err                  interface{}
	Fee                  uint64
	ComputeUnitsConsumed *uint64
	PreTokenBalances     []Balance
	PostTokenBalances    []Balance
	InnerInstructions    []InnerInstructionGroup
	LogMessages          []string
}

// InnerInstructionGroup holds the CPI instructions issued by outer instruction Index.
type InnerInstructionGroup struct {
	Index        int
	Instructions []Instruction
}

// Instruction is a compiled instruction with decoded data bytes.
type Instruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           []byte             // nil when absent
	Malformed      bool               // data present on the wire but undecodable
	Parsed         *ParsedInstruction // only for jsonParsed sources
}

// ParsedInstruction is the RPC-side parsed form of an instruction, when available.
type ParsedInstruction struct {
	Type string
	Info map[string]interface{}
}

// Balance is one row of a pre/post token balance snapshot.
type Balance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     decimal.Decimal
	Decimals     uint8
}

// Succeeded reports whether the transaction executed without error.
func (t *Transaction) Succeeded() bool {
	return t.Meta != nil && t.Meta.Err == nil
}

// FeePayer returns the first account key, or "" if none.
func (t *Transaction) FeePayer() string {
	if len(t.Message.AccountKeys) == 0 {
		return ""
	}
	return t.Message.AccountKeys[0]
}

// ProgramID resolves an instruction's program through the account keys.
// ok is false when the index is out of range.
func (t *Transaction) ProgramID(ix Instruction) (string, bool) {
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(t.Message.AccountKeys) {
		return "", false
	}
	return t.Message.AccountKeys[ix.ProgramIDIndex], true
}

// AllInstructions returns outer instructions followed by every inner group,
// in the order they appear.
func (t *Transaction) AllInstructions() []Instruction {
	all := make([]Instruction, 0, len(t.Message.Instructions))
	all = append(all, t.Message.Instructions...)
	if t.Meta != nil {
		for _, group := range t.Meta.InnerInstructions {
			all = append(all, group.Instructions...)
		}
	}
	return all
}

// InnerInstructionCount returns the total number of CPI instructions.
func (t *Transaction) InnerInstructionCount() int {
	if t.Meta == nil {
		return 0
	}
	n := 0
	for _, group := range t.Meta.InnerInstructions {
		n += len(group.Instructions)
	}
	return n
}
