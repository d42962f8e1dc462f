package pipeline

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/registry"
)

const (
	sol      = "So11111111111111111111111111111111111111112"
	mintM    = "MintMmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmm"
	poolAuth = "PoolAuth111111111111111111111111111111111111"
	venueA   = "VenueA111111111111111111111111111111111111"
	venueB   = "VenueB111111111111111111111111111111111111"
	unknownP = "Mystery1111111111111111111111111111111111"
)

func testRegistry() *registry.Registry {
	return registry.Empty(
		registry.WithVenues(map[string]string{venueA: "Alpha", venueB: "Beta"}),
		registry.WithSymbols(map[string]string{sol: "SOL", mintM: "M"}),
	)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func bal(idx int, mint, owner, amount string) domain.Balance {
	return domain.Balance{AccountIndex: idx, Mint: mint, Owner: owner, UIAmount: decimal.RequireFromString(amount), Decimals: 6}
}

// swapTx builds a transaction in which wallet gives 10 of in and receives
// 5 of out through program.
func swapTx(sig, wallet, in, out, program string) domain.Transaction {
	return domain.Transaction{
		Signature: sig,
		Version:   domain.MessageLegacy,
		Message: domain.Message{
			AccountKeys:  []string{wallet, sig + "-ain", sig + "-aout", sig + "-pin", sig + "-pout", program},
			Instructions: []domain.Instruction{{ProgramIDIndex: 5, Accounts: []int{1, 2, 3, 4}}},
		},
		Meta: &domain.TransactionMeta{
			Fee: 5000,
			PreTokenBalances: []domain.Balance{
				bal(1, in, wallet, "100"),
				bal(2, out, wallet, "0"),
				bal(3, in, poolAuth, "1000"),
				bal(4, out, poolAuth, "1000"),
			},
			PostTokenBalances: []domain.Balance{
				bal(1, in, wallet, "90"),
				bal(2, out, wallet, "5"),
				bal(3, in, poolAuth, "1010"),
				bal(4, out, poolAuth, "995"),
			},
		},
	}
}

// transferTx moves lamports only and is not a swap.
func transferTx(sig, wallet string) domain.Transaction {
	return domain.Transaction{
		Signature: sig,
		Message:   domain.Message{AccountKeys: []string{wallet, "dest", "11111111111111111111111111111111"}},
		Meta:      &domain.TransactionMeta{Fee: 5000, PreTokenBalances: []domain.Balance{}, PostTokenBalances: []domain.Balance{}},
	}
}

// sandwichBlock: A buys M on Alpha, victim V buys M, A sells M on Beta.
func sandwichBlock(slot int64) *domain.Block {
	bt := int64(1_700_000_000)
	return &domain.Block{
		Slot:      slot,
		BlockTime: &bt,
		Transactions: []domain.Transaction{
			swapTx("front", "A", sol, mintM, venueA),
			swapTx("victim", "V", sol, mintM, venueA),
			swapTx("back", "A", mintM, sol, venueB),
			transferTx("plain", "Z"),
		},
	}
}

// positioned assigns slot and block positions the way ingestion does.
func positioned(block *domain.Block) *domain.Block {
	for i := range block.Transactions {
		block.Transactions[i].Slot = block.Slot
		block.Transactions[i].TxIndex = i
		block.Transactions[i].BlockTime = block.BlockTime
	}
	return block
}
