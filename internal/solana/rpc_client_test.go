package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"solana-mev-lab/internal/domain"
)

// rpcServer answers every request with result (or rpcErr when set).
func rpcServer(t *testing.T, method string, result any, rpcErr map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if method != "" && req.Method != method {
			t.Errorf("expected method %s, got %s", method, req.Method)
		}

		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func jsonBlockTx(sig string, keys []string, data string, version any, meta map[string]any) map[string]any {
	tx := map[string]any{
		"transaction": map[string]any{
			"signatures": []string{sig},
			"message": map[string]any{
				"accountKeys": keys,
				"instructions": []map[string]any{
					{"programIdIndex": len(keys) - 1, "accounts": []int{0}, "data": data},
				},
			},
		},
		"meta": meta,
	}
	if version != nil {
		tx["version"] = version
	}
	return tx
}

func TestHTTPClient_GetBlock(t *testing.T) {
	transferData := base58.Encode([]byte{3, 1, 0, 0, 0, 0, 0, 0, 0})

	meta := map[string]any{
		"err":                  nil,
		"fee":                  5000,
		"computeUnitsConsumed": 42000,
		"preTokenBalances": []map[string]any{
			{"accountIndex": 1, "mint": "mintA", "owner": "ownerA",
				"uiTokenAmount": map[string]any{"amount": "1500000", "decimals": 6, "uiAmountString": "1.5"}},
		},
		"postTokenBalances": []map[string]any{},
		"innerInstructions": []map[string]any{
			{"index": 0, "instructions": []map[string]any{
				{"programIdIndex": 2, "accounts": []int{1}, "data": transferData},
			}},
		},
		"loadedAddresses": map[string]any{
			"writable": []string{"loadedW"},
			"readonly": []string{"loadedR"},
		},
	}

	result := map[string]any{
		"blockTime": int64(1700000000),
		"transactions": []any{
			jsonBlockTx("sig1", []string{"payer", "acct", "prog"}, transferData, 0, meta),
			jsonBlockTx("sig2", []string{"payer", "prog"}, "", "legacy", map[string]any{"err": map[string]any{"InstructionError": []any{0, "Custom"}}, "fee": 5000}),
		},
	}

	server := rpcServer(t, "getBlock", result, nil)
	defer server.Close()

	client := NewHTTPClient(server.URL)
	block, err := client.GetBlock(context.Background(), 250)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}

	if block.Slot != 250 {
		t.Errorf("expected slot 250, got %d", block.Slot)
	}
	if block.BlockTime == nil || *block.BlockTime != 1700000000 {
		t.Errorf("unexpected blockTime %v", block.BlockTime)
	}
	if len(block.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(block.Transactions))
	}

	tx := block.Transactions[0]
	if tx.Signature != "sig1" || tx.TxIndex != 0 || tx.Slot != 250 {
		t.Errorf("unexpected identity: %s idx=%d slot=%d", tx.Signature, tx.TxIndex, tx.Slot)
	}
	if tx.Version != domain.MessageV0 {
		t.Errorf("expected v0, got %s", tx.Version)
	}

	wantKeys := []string{"payer", "acct", "prog", "loadedW", "loadedR"}
	if len(tx.Message.AccountKeys) != len(wantKeys) {
		t.Fatalf("expected keys %v, got %v", wantKeys, tx.Message.AccountKeys)
	}
	for i, k := range wantKeys {
		if tx.Message.AccountKeys[i] != k {
			t.Errorf("key %d: expected %s, got %s", i, k, tx.Message.AccountKeys[i])
		}
	}

	if got := tx.Message.Instructions[0].Data; len(got) != 9 || got[0] != 3 {
		t.Errorf("unexpected instruction data %v", got)
	}
	if tx.Meta.Fee != 5000 {
		t.Errorf("expected fee 5000, got %d", tx.Meta.Fee)
	}
	if pointer.GetUint64(tx.Meta.ComputeUnitsConsumed) != 42000 {
		t.Errorf("expected 42000 compute units, got %v", tx.Meta.ComputeUnitsConsumed)
	}
	if !tx.Meta.PreTokenBalances[0].UIAmount.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected 1.5, got %s", tx.Meta.PreTokenBalances[0].UIAmount)
	}
	if tx.Meta.PostTokenBalances == nil || len(tx.Meta.PostTokenBalances) != 0 {
		t.Errorf("expected present but empty post snapshot, got %v", tx.Meta.PostTokenBalances)
	}
	if tx.InnerInstructionCount() != 1 {
		t.Errorf("expected 1 inner instruction, got %d", tx.InnerInstructionCount())
	}
	if !tx.Succeeded() {
		t.Error("expected first transaction to succeed")
	}

	failed := block.Transactions[1]
	if failed.TxIndex != 1 || failed.Version != domain.MessageLegacy {
		t.Errorf("unexpected second tx: idx=%d version=%s", failed.TxIndex, failed.Version)
	}
	if failed.Succeeded() {
		t.Error("expected second transaction to be failed")
	}
	if failed.Meta.PreTokenBalances != nil {
		t.Error("absent snapshot should stay nil")
	}
	if failed.Message.Instructions[0].Data != nil {
		t.Error("empty data should decode to nil")
	}
}

func TestHTTPClient_GetBlock_MalformedData(t *testing.T) {
	result := map[string]any{
		"transactions": []any{
			jsonBlockTx("sig1", []string{"payer", "prog"}, "0OIl", "legacy", map[string]any{"err": nil}),
		},
	}
	server := rpcServer(t, "getBlock", result, nil)
	defer server.Close()

	block, err := NewHTTPClient(server.URL).GetBlock(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	ix := block.Transactions[0].Message.Instructions[0]
	if !ix.Malformed {
		t.Error("expected instruction to be marked malformed")
	}
	if ix.Data != nil {
		t.Errorf("expected nil data, got %v", ix.Data)
	}
}

func TestHTTPClient_GetBlock_RawAmountFallback(t *testing.T) {
	meta := map[string]any{
		"err": nil,
		"preTokenBalances": []map[string]any{
			{"accountIndex": 0, "mint": "m", "owner": "o",
				"uiTokenAmount": map[string]any{"amount": "1234567", "decimals": 6}},
		},
	}
	result := map[string]any{
		"transactions": []any{jsonBlockTx("sig", []string{"payer", "prog"}, "", nil, meta)},
	}
	server := rpcServer(t, "getBlock", result, nil)
	defer server.Close()

	block, err := NewHTTPClient(server.URL).GetBlock(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	got := block.Transactions[0].Meta.PreTokenBalances[0].UIAmount
	if !got.Equal(decimal.RequireFromString("1.234567")) {
		t.Errorf("expected 1.234567, got %s", got)
	}
}

func TestHTTPClient_GetBlock_Skipped(t *testing.T) {
	tests := []struct {
		name   string
		result any
		rpcErr map[string]any
	}{
		{"null result", nil, nil},
		{"skipped", nil, map[string]any{"code": -32007, "message": "Slot 5 was skipped"}},
		{"long term storage", nil, map[string]any{"code": -32009, "message": "Slot 5 was skipped, or missing in long-term storage"}},
		{"not available", nil, map[string]any{"code": -32004, "message": "Block not available for slot 5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := rpcServer(t, "getBlock", tt.result, tt.rpcErr)
			defer server.Close()

			_, err := NewHTTPClient(server.URL).GetBlock(context.Background(), 5)
			if !errors.Is(err, ErrSlotSkipped) {
				t.Errorf("expected ErrSlotSkipped, got %v", err)
			}
		})
	}
}

// serializeTx builds a one-signature wire transaction whose only
// instruction calls the last key with accounts [0].
func serializeTx(versioned bool, keys []solana.PublicKey, data []byte) []byte {
	b := []byte{1}
	b = append(b, make([]byte, 64)...)
	if versioned {
		b = append(b, 0x80)
	}
	b = append(b, 1, 0, 1)
	b = append(b, byte(len(keys)))
	for _, k := range keys {
		b = append(b, k[:]...)
	}
	b = append(b, make([]byte, 32)...)
	b = append(b, 1, byte(len(keys)-1), 1, 0, byte(len(data)))
	b = append(b, data...)
	if versioned {
		b = append(b, 0)
	}
	return b
}

func TestHTTPClient_GetBlock_Base64(t *testing.T) {
	payer := solana.MustPublicKeyFromBase58("JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN")
	keys := []solana.PublicKey{payer, solana.TokenProgramID}

	for _, versioned := range []bool{false, true} {
		raw := serializeTx(versioned, keys, []byte{3, 7, 0, 0, 0, 0, 0, 0, 0})
		meta := map[string]any{"err": nil}
		if versioned {
			meta["loadedAddresses"] = map[string]any{
				"writable": []string{}, "readonly": []string{"lookupRO"},
			}
		}
		result := map[string]any{
			"transactions": []any{
				map[string]any{
					"transaction": []string{base64.StdEncoding.EncodeToString(raw), "base64"},
					"meta":        meta,
				},
			},
		}

		server := rpcServer(t, "getBlock", result, nil)
		client := NewHTTPClient(server.URL, WithEncoding(EncodingBase64))
		block, err := client.GetBlock(context.Background(), 9)
		server.Close()
		if err != nil {
			t.Fatalf("GetBlock(versioned=%v): %v", versioned, err)
		}

		tx := block.Transactions[0]
		if tx.Meta == nil {
			t.Fatalf("versioned=%v: transaction was not decoded", versioned)
		}
		wantVersion := domain.MessageLegacy
		if versioned {
			wantVersion = domain.MessageV0
		}
		if tx.Version != wantVersion {
			t.Errorf("expected %s, got %s", wantVersion, tx.Version)
		}
		if tx.Signature != (solana.Signature{}).String() {
			t.Errorf("unexpected signature %s", tx.Signature)
		}
		if tx.FeePayer() != payer.String() {
			t.Errorf("expected fee payer %s, got %s", payer, tx.FeePayer())
		}
		pid, ok := tx.ProgramID(tx.Message.Instructions[0])
		if !ok || pid != solana.TokenProgramID.String() {
			t.Errorf("expected token program, got %s", pid)
		}
		if d := tx.Message.Instructions[0].Data; len(d) != 9 || d[1] != 7 {
			t.Errorf("unexpected data %v", d)
		}
		if versioned && tx.Message.AccountKeys[len(tx.Message.AccountKeys)-1] != "lookupRO" {
			t.Errorf("expected loaded address appended, got %v", tx.Message.AccountKeys)
		}
	}
}

func TestHTTPClient_GetTransaction(t *testing.T) {
	result := map[string]any{
		"slot":      int64(123456),
		"blockTime": int64(1700000000),
		"version":   "legacy",
		"meta": map[string]any{
			"err":         nil,
			"fee":         5000,
			"logMessages": []string{"Program log: Hello", "Program log: World"},
		},
		"transaction": map[string]any{
			"signatures": []string{"testsig123"},
			"message": map[string]any{
				"accountKeys":  []string{"addr1", "addr2"},
				"instructions": []any{},
			},
		},
	}
	server := rpcServer(t, "getTransaction", result, nil)
	defer server.Close()

	tx, err := NewHTTPClient(server.URL).GetTransaction(context.Background(), "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}
	if tx.TxIndex != -1 {
		t.Errorf("expected unknown index -1, got %d", tx.TxIndex)
	}
	if tx.Signature != "testsig123" {
		t.Errorf("expected testsig123, got %s", tx.Signature)
	}
	if len(tx.Meta.LogMessages) != 2 {
		t.Errorf("expected 2 log messages, got %d", len(tx.Meta.LogMessages))
	}
	if len(tx.Message.AccountKeys) != 2 {
		t.Errorf("expected 2 account keys, got %d", len(tx.Message.AccountKeys))
	}
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := rpcServer(t, "getTransaction", nil, nil)
	defer server.Close()

	tx, err := NewHTTPClient(server.URL).GetTransaction(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for not found, got %+v", tx)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32600, "message": "Invalid Request"},
		})
	}))
	defer server.Close()

	var observed atomic.Int32
	client := NewHTTPClient(server.URL,
		WithRetryDelay(time.Millisecond),
		WithObserver(func(method string, _ time.Duration, err error) {
			if method == "getSlot" && err != nil {
				observed.Add(1)
			}
		}),
	)

	_, err := client.GetSlot(context.Background())
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T", err)
	}
	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", attempts.Load())
	}
	if observed.Load() != 1 {
		t.Errorf("expected observer to see one failed call, got %d", observed.Load())
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetSlot(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHTTPClient_RetryClassification(t *testing.T) {
	tests := []struct {
		name     string
		fail     func(w http.ResponseWriter, id uint64)
		attempts int32
		wantErr  bool
	}{
		{
			name: "server error retried",
			fail: func(w http.ResponseWriter, _ uint64) {
				w.WriteHeader(http.StatusBadGateway)
			},
			attempts: 2,
		},
		{
			name: "unhealthy node retried",
			fail: func(w http.ResponseWriter, id uint64) {
				json.NewEncoder(w).Encode(map[string]any{
					"jsonrpc": "2.0", "id": id,
					"error": map[string]any{"code": -32005, "message": "Node is behind by 120 slots"},
				})
			},
			attempts: 2,
		},
		{
			name: "bad request not retried",
			fail: func(w http.ResponseWriter, _ uint64) {
				w.WriteHeader(http.StatusBadRequest)
			},
			attempts: 1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req rpcRequest
				json.NewDecoder(r.Body).Decode(&req)
				if attempts.Add(1) == 1 {
					tt.fail(w, req.ID)
					return
				}
				json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": 7})
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))
			slot, err := client.GetSlot(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
			} else if err != nil || slot != 7 {
				t.Fatalf("GetSlot = %d, %v", slot, err)
			}
			if got := attempts.Load(); got != tt.attempts {
				t.Errorf("attempts = %d, want %d", got, tt.attempts)
			}
		})
	}
}

func TestHTTPClient_RetryAfterCappedByMaxDelay(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": 1})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxDelay(20*time.Millisecond))
	start := time.Now()
	if _, err := client.GetSlot(context.Background()); err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Retry-After was not capped: waited %s", elapsed)
	}
}

func TestHTTPClient_GivesUp(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	if _, err := client.GetSlot(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestRetryAfter(t *testing.T) {
	if got := retryAfter("2"); got != 2*time.Second {
		t.Errorf("retryAfter(2) = %s", got)
	}
	for _, v := range []string{"", "-1", "Wed, 21 Oct 2015 07:28:00 GMT"} {
		if got := retryAfter(v); got != 0 {
			t.Errorf("retryAfter(%q) = %s, want 0", v, got)
		}
	}
}
