package solana

import "encoding/json"

// Wire shapes of getBlock / getTransaction results. Only the fields
// detection needs are decoded.

type wireBlock struct {
	BlockTime    *int64       `json:"blockTime"`
	Transactions []wireTxMeta `json:"transactions"`
}

type wireTxMeta struct {
	Transaction json.RawMessage `json:"transaction"`
	Meta        *wireMeta       `json:"meta"`
	Version     json.RawMessage `json:"version"`
}

type wireTransactionResult struct {
	Slot      int64  `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	wireTxMeta
}

// wireJSONTransaction is the "json" encoding of a transaction.
type wireJSONTransaction struct {
	Signatures []string    `json:"signatures"`
	Message    wireMessage `json:"message"`
}

type wireMessage struct {
	AccountKeys  []string          `json:"accountKeys"`
	Instructions []wireInstruction `json:"instructions"`
}

type wireInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
}

// Slices left nil by a null/missing field stay nil; an empty JSON array
// decodes to an empty slice. Detection relies on that difference.
type wireMeta struct {
	Err                  interface{}          `json:"err"`
	Fee                  uint64               `json:"fee"`
	ComputeUnitsConsumed *uint64              `json:"computeUnitsConsumed"`
	PreTokenBalances     []wireTokenBalance   `json:"preTokenBalances"`
	PostTokenBalances    []wireTokenBalance   `json:"postTokenBalances"`
	InnerInstructions    []wireInnerGroup     `json:"innerInstructions"`
	LoadedAddresses      *wireLoadedAddresses `json:"loadedAddresses"`
	LogMessages          []string             `json:"logMessages"`
}

type wireTokenBalance struct {
	AccountIndex  int          `json:"accountIndex"`
	Mint          string       `json:"mint"`
	Owner         string       `json:"owner"`
	UITokenAmount wireUIAmount `json:"uiTokenAmount"`
}

type wireUIAmount struct {
	Amount         string   `json:"amount"`
	Decimals       uint8    `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

type wireInnerGroup struct {
	Index        int               `json:"index"`
	Instructions []wireInstruction `json:"instructions"`
}

type wireLoadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}
