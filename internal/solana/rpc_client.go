package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"solana-mev-lab/internal/domain"
)

// Client defaults, overridable with ClientOption.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
	DefaultCommitment = "confirmed"

	// maxResponseBytes bounds a single response; full mainnet blocks run
	// to tens of megabytes.
	maxResponseBytes = 256 << 20
)

// Solana node error codes.
const (
	codeBlockNotAvailable   = -32004
	codeNodeUnhealthy       = -32005
	codeSlotSkipped         = -32007
	codeLongTermSlotSkipped = -32009
)

// HTTPClient implements RPCClient over JSON-RPC 2.0 on HTTP. Transport
// failures, 429 and 5xx answers, and unhealthy-node errors are retried
// with exponential backoff; other node errors are returned at once.
type HTTPClient struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	encoding   Encoding
	commitment string
	observer   Observer
	log        logrus.FieldLogger
	nextID     atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// WithMaxRetries sets how many times a failed call is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.maxRetries = n }
}

// WithRetryDelay sets the first backoff delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.retryDelay = d }
}

// WithMaxDelay caps the backoff delay, including server Retry-After hints.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.maxDelay = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) { c.client = client }
}

// WithEncoding selects the transaction encoding requested from the node.
func WithEncoding(enc Encoding) ClientOption {
	return func(c *HTTPClient) { c.encoding = enc }
}

// WithCommitment sets the commitment level sent with every call.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) { c.commitment = commitment }
}

// WithObserver installs a callback invoked once per call, after retries.
func WithObserver(o Observer) ClientOption {
	return func(c *HTTPClient) { c.observer = o }
}

// WithLogger sets the logger for retries and per-transaction decode warnings.
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *HTTPClient) { c.log = log }
}

// NewHTTPClient creates a client for the node at endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
		encoding:   EncodingJSON,
		commitment: DefaultCommitment,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// attemptError is a failed attempt that may be retried. wait, when set,
// is the server's Retry-After hint.
type attemptError struct {
	err   error
	retry bool
	wait  time.Duration
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

// call runs method and decodes its result into out.
func (c *HTTPClient) call(ctx context.Context, method string, params []any, out any) (err error) {
	if c.observer != nil {
		start := time.Now()
		defer func() { c.observer(method, time.Since(start), err) }()
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	for attempt := 0; ; attempt++ {
		result, err := c.attempt(ctx, body)
		if err == nil {
			if out == nil || len(result) == 0 {
				return nil
			}
			if err := json.Unmarshal(result, out); err != nil {
				return fmt.Errorf("unmarshal %s result: %w", method, err)
			}
			return nil
		}

		var ae *attemptError
		if !errors.As(err, &ae) || !ae.retry {
			return err
		}
		if attempt >= c.maxRetries {
			return fmt.Errorf("%s: giving up after %d attempts: %w", method, attempt+1, ae.err)
		}

		wait := delay
		if ae.wait > 0 {
			wait = ae.wait
		}
		wait = min(wait, c.maxDelay)
		c.log.WithFields(logrus.Fields{
			"method":  method,
			"attempt": attempt + 1,
			"delay":   wait,
		}).WithError(ae.err).Debug("Retrying RPC call")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = min(delay*2, c.maxDelay)
	}
}

// attempt performs one HTTP round trip and returns the raw result.
func (c *HTTPClient) attempt(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &attemptError{err: fmt.Errorf("http request: %w", err), retry: true}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &attemptError{
			err:   errors.New("rate limited (429)"),
			retry: true,
			wait:  retryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return nil, &attemptError{err: fmt.Errorf("server error %d", resp.StatusCode), retry: true}
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&rpcResp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &attemptError{err: fmt.Errorf("decode response: %w", err), retry: true}
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == codeNodeUnhealthy {
			return nil, &attemptError{err: rpcResp.Error, retry: true}
		}
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// txOptions is the config object of getBlock and getTransaction.
type txOptions struct {
	Encoding                       Encoding `json:"encoding"`
	Commitment                     string   `json:"commitment"`
	MaxSupportedTransactionVersion int      `json:"maxSupportedTransactionVersion"`
	TransactionDetails             string   `json:"transactionDetails,omitempty"`
	Rewards                        *bool    `json:"rewards,omitempty"`
}

func (c *HTTPClient) txOptions() txOptions {
	return txOptions{Encoding: c.encoding, Commitment: c.commitment}
}

// GetBlock retrieves a block with full transaction details. Transactions
// keep the order the node returned them in; TxIndex is their position.
func (c *HTTPClient) GetBlock(ctx context.Context, slot int64) (*domain.Block, error) {
	noRewards := false
	opts := c.txOptions()
	opts.TransactionDetails = "full"
	opts.Rewards = &noRewards

	var result *wireBlock
	if err := c.call(ctx, "getBlock", []any{slot, opts}, &result); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && isSkippedSlot(rpcErr.Code) {
			return nil, fmt.Errorf("slot %d: %w: %s", slot, ErrSlotSkipped, rpcErr.Message)
		}
		return nil, fmt.Errorf("getBlock %d: %w", slot, err)
	}
	if result == nil {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrSlotSkipped)
	}

	block := &domain.Block{
		Slot:         slot,
		BlockTime:    result.BlockTime,
		Transactions: make([]domain.Transaction, len(result.Transactions)),
	}
	for i, wt := range result.Transactions {
		tx, err := normalize(slot, result.BlockTime, i, wt)
		if err != nil {
			// The slot keeps its position; detection reports the missing metadata.
			c.log.WithFields(logrus.Fields{
				"slot":     slot,
				"tx_index": i,
			}).WithError(err).Warn("Transaction could not be decoded")
			tx = domain.Transaction{Slot: slot, BlockTime: result.BlockTime, TxIndex: i, Signature: tx.Signature}
		}
		block.Transactions[i] = tx
	}
	return block, nil
}

// GetTransaction retrieves a transaction by signature. Its TxIndex is -1
// because getTransaction does not report the position inside the block.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*domain.Transaction, error) {
	var result *wireTransactionResult
	if err := c.call(ctx, "getTransaction", []any{signature, c.txOptions()}, &result); err != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", signature, err)
	}
	if result == nil {
		return nil, fmt.Errorf("transaction %s: %w", signature, ErrNotFound)
	}

	tx, err := normalize(result.Slot, result.BlockTime, -1, result.wireTxMeta)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", signature, err)
	}
	return &tx, nil
}

// GetSlot returns the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var slot int64
	if err := c.call(ctx, "getSlot", []any{map[string]string{"commitment": c.commitment}}, &slot); err != nil {
		return 0, fmt.Errorf("getSlot: %w", err)
	}
	return slot, nil
}

func isSkippedSlot(code int) bool {
	switch code {
	case codeBlockNotAvailable, codeSlotSkipped, codeLongTermSlotSkipped:
		return true
	}
	return false
}
