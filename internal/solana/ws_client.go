package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrClientClosed is returned by calls on a closed WSClient.
var ErrClientClosed = errors.New("client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is the first wait after a dropped connection; it
	// doubles per failed dial up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	// PingInterval must be shorter than ReadTimeout: every pong pushes
	// the read deadline forward.
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	HandshakeTimeout  time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout  time.Duration
	// Buffer is the capacity of each notification channel.
	Buffer            int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    500 * time.Millisecond,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Buffer:            256,
	}
}

// WSClient implements SlotSubscriber over the node's PubSub endpoint.
// One goroutine owns the connection: it reads, and after a drop it
// redials and re-issues every subscription, moving each channel to the
// id the node hands out on the new connection.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	log      logrus.FieldLogger

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    map[int64]chan SlotNotification
	pending map[uint64]*pendingSub

	// detached holds subscriptions whose re-issue failed.
	detached []*pendingSub

	writeMu sync.Mutex
	nextID  atomic.Uint64
	closed  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// pendingSub is a slotSubscribe awaiting its id. confirm is nil for
// subscriptions re-issued after a reconnect.
type pendingSub struct {
	ch      chan SlotNotification
	confirm chan int64
}

// NewWSClient dials endpoint and starts the connection goroutines.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, log logrus.FieldLogger) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = 1
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		log:      log.WithField("component", "ws"),
		subs:     make(map[int64]chan SlotNotification),
		pending:  make(map[uint64]*pendingSub),
		done:     make(chan struct{}),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.wg.Add(2)
	go c.run(conn)
	go c.keepAlive()
	return c, nil
}

func (c *WSClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", c.endpoint, err)
	}
	conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})
	return conn, nil
}

// SubscribeSlots issues slotSubscribe and returns the notification
// channel once the node confirms it.
func (c *WSClient) SubscribeSlots(ctx context.Context) (<-chan SlotNotification, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	p := &pendingSub{
		ch:      make(chan SlotNotification, c.config.Buffer),
		confirm: make(chan int64, 1),
	}
	reqID, err := c.sendSubscribe(p)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case <-p.confirm:
		return p.ch, nil
	case <-timer.C:
		c.forget(reqID)
		return nil, fmt.Errorf("slotSubscribe: no reply within %s", c.config.SubscribeTimeout)
	case <-ctx.Done():
		c.forget(reqID)
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClientClosed
	}
}

func (c *WSClient) sendSubscribe(p *pendingSub) (uint64, error) {
	reqID := c.nextID.Add(1)
	c.mu.Lock()
	c.pending[reqID] = p
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.forget(reqID)
		return 0, errors.New("websocket not connected")
	}

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := conn.WriteJSON(wsRequest{JSONRPC: "2.0", ID: reqID, Method: "slotSubscribe"})
	c.writeMu.Unlock()
	if err != nil {
		c.forget(reqID)
		return 0, fmt.Errorf("write slotSubscribe: %w", err)
	}
	return reqID, nil
}

func (c *WSClient) forget(reqID uint64) {
	c.mu.Lock()
	delete(c.pending, reqID)
	c.mu.Unlock()
}

// Close closes the connection and every subscription channel.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}

	c.wg.Wait()

	c.mu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	// Re-issued subscriptions already belong to a caller.
	for id, p := range c.pending {
		if p.confirm == nil {
			close(p.ch)
		}
		delete(c.pending, id)
	}
	for _, p := range c.detached {
		close(p.ch)
	}
	c.detached = nil
	c.mu.Unlock()
	return nil
}

// run reads from conn until the client closes, redialing on failure.
func (c *WSClient) run(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		err := c.readUntilError(conn)
		_ = conn.Close()
		if c.closed.Load() {
			return
		}
		c.log.WithError(err).Warn("WebSocket connection lost")

		if conn = c.redial(); conn == nil {
			return
		}
		c.resubscribe()
	}
}

func (c *WSClient) readUntilError(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(message)
	}
}

// redial retries with exponential backoff until it connects or the
// client closes, in which case it returns nil.
func (c *WSClient) redial() *websocket.Conn {
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	delay := c.config.ReconnectDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-c.done:
			return nil
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.config.HandshakeTimeout)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.mu.Lock()
			if c.closed.Load() {
				c.mu.Unlock()
				_ = conn.Close()
				return nil
			}
			c.conn = conn
			c.mu.Unlock()
			c.log.WithField("attempt", attempt).Info("WebSocket reconnected")
			return conn
		}

		c.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("WebSocket reconnect failed")
		delay = min(delay*2, c.config.MaxReconnectDelay)
	}
}

// resubscribe re-issues every subscription on the new connection,
// including requests still unanswered on the old one. Channels are
// re-keyed as the node confirms.
func (c *WSClient) resubscribe() {
	c.mu.Lock()
	reissue := c.detached
	c.detached = nil
	for id, ch := range c.subs {
		reissue = append(reissue, &pendingSub{ch: ch})
		delete(c.subs, id)
	}
	for id, p := range c.pending {
		reissue = append(reissue, p)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	for _, p := range reissue {
		if _, err := c.sendSubscribe(p); err != nil {
			// Kept for the next reconnect; the read loop will notice the
			// broken connection.
			c.log.WithError(err).Warn("Resubscribe failed")
			c.mu.Lock()
			c.detached = append(c.detached, p)
			c.mu.Unlock()
		}
	}
}

func (c *WSClient) handleMessage(message []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.log.WithError(err).Debug("Ignoring undecodable message")
		return
	}

	switch {
	case env.Error != nil:
		c.log.WithFields(logrus.Fields{
			"code": env.Error.Code,
			"id":   env.ID,
		}).Warn(env.Error.Message)
	case env.Method == "slotNotification" && env.Params != nil:
		c.dispatch(env.Params)
	case env.ID != 0 && len(env.Result) > 0:
		var subID int64
		if err := json.Unmarshal(env.Result, &subID); err != nil {
			return
		}
		c.mu.Lock()
		p, ok := c.pending[env.ID]
		if ok {
			delete(c.pending, env.ID)
			c.subs[subID] = p.ch
		}
		c.mu.Unlock()
		if ok && p.confirm != nil {
			p.confirm <- subID
		}
	}
}

func (c *WSClient) dispatch(p *wsNotificationParams) {
	c.mu.Lock()
	ch, ok := c.subs[p.Subscription]
	c.mu.Unlock()
	if !ok {
		return
	}

	n := SlotNotification{Slot: p.Result.Slot, Parent: p.Result.Parent, Root: p.Result.Root}
	for {
		select {
		case ch <- n:
			return
		default:
		}
		// Followers only need recent slots: drop the oldest and retry.
		select {
		case <-ch:
		default:
		}
	}
}

// keepAlive pings the current connection. A missing pong lets the read
// deadline expire, which the run loop treats as a dropped connection.
func (c *WSClient) keepAlive() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			}
		}
	}
}

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// wsEnvelope covers responses, errors and notifications.
type wsEnvelope struct {
	ID     uint64                `json:"id"`
	Method string                `json:"method"`
	Result json.RawMessage       `json:"result"`
	Error  *RPCError             `json:"error"`
	Params *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Slot   int64 `json:"slot"`
		Parent int64 `json:"parent"`
		Root   int64 `json:"root"`
	} `json:"result"`
}
