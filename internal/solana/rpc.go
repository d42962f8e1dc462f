package solana

import (
	"context"
	"errors"
	"time"

	"solana-mev-lab/internal/domain"
)

var (
	// ErrNotFound is returned when the node has no record of a transaction.
	ErrNotFound = errors.New("not found")
	// ErrSlotSkipped is returned for slots that produced no block or whose
	// block is no longer available from the node.
	ErrSlotSkipped = errors.New("slot skipped or unavailable")
)

// RPCClient defines the Solana RPC calls used by the scanner.
// Every transaction it returns is already normalized: lookup-table
// addresses are appended to the account keys and instruction data is decoded.
type RPCClient interface {
	// GetBlock retrieves a full block by slot number.
	GetBlock(ctx context.Context, slot int64) (*domain.Block, error)

	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*domain.Transaction, error)

	// GetSlot returns the latest slot at the client's commitment.
	GetSlot(ctx context.Context) (int64, error)
}

// Encoding selects the wire encoding requested from the node.
type Encoding string

const (
	// EncodingJSON returns messages as JSON with base58 instruction data.
	EncodingJSON Encoding = "json"
	// EncodingBase64 returns the serialized transaction, decoded locally.
	EncodingBase64 Encoding = "base64"
)

// Observer receives the outcome of every RPC call.
type Observer func(method string, elapsed time.Duration, err error)
