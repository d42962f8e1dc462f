package detect

import (
	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/registry"
)

const (
	walletA  = "WalletA1111111111111111111111111111111111111"
	walletB  = "WalletB1111111111111111111111111111111111111"
	poolAuth = "PoolAuth111111111111111111111111111111111111"

	mintX    = "MintXxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
	mintY    = "MintYyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyy"
	mintZ    = "MintZzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"
	venueV1  = "Venue1111111111111111111111111111111111111"
	venueV2  = "Venue2222222222222222222222222222222222222"
	unknownP = "Unknown11111111111111111111111111111111111"

	computeBudget = "ComputeBudget111111111111111111111111111111"
	memoProgram   = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	tokenProgram  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

func testRegistry() *registry.Registry {
	return registry.Empty(
		registry.WithVenues(map[string]string{
			venueV1: "VenueOne",
			venueV2: "VenueTwo",
		}),
		registry.WithInfrastructure(computeBudget, memoProgram, tokenProgram),
		registry.WithSymbols(map[string]string{mintX: "X", mintY: "Y"}),
	)
}

func bal(idx int, mint, owner, amount string) domain.Balance {
	return domain.Balance{
		AccountIndex: idx,
		Mint:         mint,
		Owner:        owner,
		UIAmount:     decimal.RequireFromString(amount),
		Decimals:     6,
	}
}

func ix(programIdx int, accounts ...int) domain.Instruction {
	return domain.Instruction{ProgramIDIndex: programIdx, Accounts: accounts}
}

// swapTx builds a transaction where walletA gives up 10 X and receives 5 Y,
// with the pool on the other side. Account layout:
// 0 walletA, 1 walletA X ata, 2 walletA Y ata, 3 pool X, 4 pool Y, 5.. programs.
func swapTx(programs []string, ixs []domain.Instruction) *domain.Transaction {
	keys := []string{walletA, "ataAX", "ataAY", "poolX", "poolY"}
	keys = append(keys, programs...)
	return &domain.Transaction{
		Signature: "sig1",
		Slot:      100,
		TxIndex:   0,
		Message: domain.Message{
			AccountKeys:  keys,
			Instructions: ixs,
		},
		Meta: &domain.TransactionMeta{
			Fee: 5000,
			PreTokenBalances: []domain.Balance{
				bal(1, mintX, walletA, "100"),
				bal(2, mintY, walletA, "0"),
				bal(3, mintX, poolAuth, "1000"),
				bal(4, mintY, poolAuth, "1000"),
			},
			PostTokenBalances: []domain.Balance{
				bal(1, mintX, walletA, "90"),
				bal(2, mintY, walletA, "5"),
				bal(3, mintX, poolAuth, "1010"),
				bal(4, mintY, poolAuth, "995"),
			},
		},
	}
}

func mints(amounts []domain.MintAmount) []string {
	out := make([]string, len(amounts))
	for i, a := range amounts {
		out[i] = a.Mint
	}
	return out
}

func registryWithStables() *registry.Registry {
	return registry.New(
		registry.WithVenues(map[string]string{
			venueV1: "VenueOne",
			venueV2: "VenueTwo",
		}),
	)
}
