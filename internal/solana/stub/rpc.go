// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/solana"
)

// RPCClient serves blocks and transactions from maps. Slots without a
// block report solana.ErrSlotSkipped; FailSlots return their error.
type RPCClient struct {
	mu           sync.Mutex
	Transactions map[string]*domain.Transaction
	Blocks       map[int64]*domain.Block
	FailSlots    map[int64]error
	Slot         int64
	calls        map[int64]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*domain.Transaction),
		Blocks:       make(map[int64]*domain.Block),
		FailSlots:    make(map[int64]error),
		calls:        make(map[int64]int),
	}
}

// GetBlock returns the stored block for slot.
func (c *RPCClient) GetBlock(ctx context.Context, slot int64) (*domain.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[slot]++
	if err, ok := c.FailSlots[slot]; ok {
		return nil, err
	}
	block, ok := c.Blocks[slot]
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", slot, solana.ErrSlotSkipped)
	}
	return block, nil
}

// GetTransaction returns the stored transaction for signature.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*domain.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", signature, solana.ErrNotFound)
	}
	return tx, nil
}

// GetSlot returns Slot, or the highest stored block when Slot is zero.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Slot != 0 {
		return c.Slot, nil
	}
	var max int64
	for s := range c.Blocks {
		if s > max {
			max = s
		}
	}
	return max, nil
}

// AddBlock stores a block, assigning slot and position to its transactions.
func (c *RPCClient) AddBlock(block *domain.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		tx.Slot = block.Slot
		tx.TxIndex = i
		if tx.BlockTime == nil {
			tx.BlockTime = block.BlockTime
		}
		c.Transactions[tx.Signature] = tx
	}
	c.Blocks[block.Slot] = block
}

// Calls reports how many times GetBlock was asked for slot.
func (c *RPCClient) Calls(slot int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[slot]
}
