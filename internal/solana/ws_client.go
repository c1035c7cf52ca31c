package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// SignatureResult is the payload of a signature notification.
type SignatureResult struct {
	Slot int64
	Err  interface{} // non-nil when the transaction failed
}

// pendingWait tracks one in-flight signature wait. The result channel is
// registered before the subscribe request is sent, so a notification that
// arrives back-to-back with the subscription confirmation is never dropped.
type pendingWait struct {
	subID  chan int64           // buffered 1, subscription ID on confirmation
	result chan SignatureResult // buffered 1, the one-shot notification
	failed chan struct{}        // closed when the connection drops first
}

// WSClient awaits transaction confirmations over a Solana WebSocket endpoint
// using signatureSubscribe. Subscriptions are one-shot: the node fires a
// single notification once the signature reaches the requested commitment
// and then cancels the subscription. A dropped connection is redialed with
// exponential backoff; in-flight waits fail over to the caller (whose poll
// fallback covers the gap) since the server-side subscriptions died with
// the connection and there is nothing to resubscribe.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to its wait until the subscription confirms
	pending   map[uint64]*pendingWait
	pendingMu sync.Mutex

	// subs maps subscription ID to its wait
	subs   map[int64]*pendingWait
	subsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		pending:  make(map[uint64]*pendingWait),
		subs:     make(map[int64]*pendingWait),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	// Pongs extend the read deadline so an idle but healthy connection
	// survives lulls longer than ReadTimeout.
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *wsNotifyParams `json:"params"`
	Error  *rpcError       `json:"error"`
}

type wsNotifyParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Err interface{} `json:"err"`
		} `json:"value"`
	} `json:"result"`
}

// WaitForSignature subscribes to a signature and blocks until the node
// reports it at the given commitment, or ctx expires. The caller bounds the
// wait with a deadline. The wait is registered before the subscribe request
// goes out, so the notification cannot race past the registration.
func (c *WSClient) WaitForSignature(ctx context.Context, signature, commitment string) (*SignatureResult, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	w := &pendingWait{
		subID:  make(chan int64, 1),
		result: make(chan SignatureResult, 1),
		failed: make(chan struct{}),
	}

	c.pendingMu.Lock()
	c.pending[reqID] = w
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
		select {
		case subID := <-w.subID:
			c.subsMu.Lock()
			delete(c.subs, subID)
			c.subsMu.Unlock()
		default:
		}
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": commitment},
		},
	}
	if err := c.write(req); err != nil {
		return nil, fmt.Errorf("subscribe to signature: %w", err)
	}

	select {
	case <-ctx.Done():
		select {
		case subID := <-w.subID:
			c.unsubscribe(subID)
		default:
		}
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case <-w.failed:
		return nil, fmt.Errorf("connection lost before notification")
	case res := <-w.result:
		return &res, nil
	}
}

// unsubscribe cancels a signature subscription, best effort.
func (c *WSClient) unsubscribe(subID int64) {
	c.subsMu.Lock()
	delete(c.subs, subID)
	c.subsMu.Unlock()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "signatureUnsubscribe",
		Params:  []interface{}{subID},
	}
	_ = c.write(req)
}

func (c *WSClient) write(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop dispatches subscription confirmations and notifications, and
// redials with exponential backoff when the connection drops.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(50 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// In-flight waits cannot outlive the connection that carries
			// their subscriptions; fail them so callers fall back to polling.
			c.failWaits()

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(50 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay
		c.handleMessage(data)
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	switch {
	case msg.ID != 0 && msg.Result != nil:
		// Response to signatureSubscribe: the result is the subscription ID.
		var subID int64
		if err := json.Unmarshal(msg.Result, &subID); err != nil {
			return
		}
		c.pendingMu.Lock()
		w, ok := c.pending[msg.ID]
		if ok {
			delete(c.pending, msg.ID)
		}
		c.pendingMu.Unlock()
		if !ok {
			// Waiter already gave up; drop the server-side subscription.
			c.unsubscribe(subID)
			return
		}
		c.subsMu.Lock()
		c.subs[subID] = w
		c.subsMu.Unlock()
		w.subID <- subID

	case msg.Method == "signatureNotification" && msg.Params != nil:
		c.subsMu.Lock()
		w, ok := c.subs[msg.Params.Subscription]
		if ok {
			delete(c.subs, msg.Params.Subscription)
		}
		c.subsMu.Unlock()
		if ok {
			w.result <- SignatureResult{
				Slot: msg.Params.Result.Context.Slot,
				Err:  msg.Params.Result.Value.Err,
			}
		}
	}
}

// failWaits releases every in-flight wait after a connection loss.
func (c *WSClient) failWaits() {
	c.pendingMu.Lock()
	for id, w := range c.pending {
		close(w.failed)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.subsMu.Lock()
	for id, w := range c.subs {
		select {
		case <-w.failed:
			// already failed while pending
		default:
			close(w.failed)
		}
		delete(c.subs, id)
	}
	c.subsMu.Unlock()
}

// reconnect redials after a connection loss.
func (c *WSClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Failure here is not terminal: the next read error triggers another
	// attempt with a longer delay.
	_ = c.connect(ctx)
}

// pingLoop keeps the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// Close shuts down the client and its goroutines.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	var err error
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return err
}
