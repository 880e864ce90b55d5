package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

const defaultPingInterval = 10 * time.Second

// Client is a market-channel connection. Events are delivered on the read
// goroutine, so handlers must not block.
type Client struct {
	host         string
	dialer       Dialer
	logger       *zap.Logger
	pingInterval time.Duration
	onEvent      func(Event)
	onDisconnect func(*Client, error)

	mu     sync.Mutex
	conn   Conn
	closed bool
	done   chan struct{}

	writeMu sync.Mutex
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithDialer replaces the gorilla dialer, mainly for tests
func WithDialer(d Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPingInterval sets the heartbeat period. Zero disables it.
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.pingInterval = d }
}

// WithEventHandler sets the callback for decoded events
func WithEventHandler(fn func(Event)) ClientOption {
	return func(c *Client) { c.onEvent = fn }
}

// WithDisconnectHandler is called once when the read loop stops for any
// reason other than Close
func WithDisconnectHandler(fn func(*Client, error)) ClientOption {
	return func(c *Client) { c.onDisconnect = fn }
}

// NewClient creates a new websocket client
func NewClient(host string, opts ...ClientOption) *Client {
	c := &Client{
		host:         host,
		dialer:       GorillaDialer{},
		logger:       zap.NewNop(),
		pingInterval: defaultPingInterval,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the market channel and subscribes to assetIDs
func (c *Client) Connect(ctx context.Context, assetIDs []string) error {
	c.mu.Lock()
	if c.conn != nil || c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client already used")
	}
	c.mu.Unlock()

	u, err := ChannelURL(c.host, types.WS_MARKET_CHANNEL)
	if err != nil {
		return err
	}
	conn, err := c.dialer.Dial(ctx, u)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("client closed while connecting")
	}
	c.conn = conn
	c.mu.Unlock()

	if assetIDs == nil {
		assetIDs = []string{}
	}
	if err := c.writeJSON(SubscriptionMessage{Type: types.WS_MARKET_CHANNEL, AssetsIDs: assetIDs}); err != nil {
		c.mu.Lock()
		c.conn = nil
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		_ = conn.Close()
		return fmt.Errorf("failed to send subscription message: %w", err)
	}
	c.logger.Info("ws connected", zap.String("url", u), zap.Int("assets", len(assetIDs)))

	go c.readLoop(conn)
	if c.pingInterval > 0 {
		go c.heartbeat(conn)
	}
	return nil
}

// UpdateAssets subscribes to or unsubscribes from assets on the open
// connection
func (c *Client) UpdateAssets(assetIDs []string, subscribe bool) error {
	op := "unsubscribe"
	if subscribe {
		op = "subscribe"
	}
	if err := c.writeJSON(UpdateMessage{AssetsIDs: assetIDs, Operation: op}); err != nil {
		return fmt.Errorf("failed to send %s message: %w", op, err)
	}
	c.logger.Debug("ws assets updated", zap.String("operation", op), zap.Strings("assets", assetIDs))
	return nil
}

func (c *Client) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("client is not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) heartbeat(conn Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write([]byte("PING")); err != nil {
				c.logger.Warn("ws ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) readLoop(conn Conn) {
	var readErr error
	defer func() {
		c.mu.Lock()
		intentional := c.closed
		c.closed = true
		c.conn = nil
		c.mu.Unlock()

		close(c.done)
		_ = conn.Close()

		if !intentional {
			c.logger.Warn("ws disconnected", zap.Error(readErr))
			if c.onDisconnect != nil {
				c.onDisconnect(c, readErr)
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}

		events, err := ParseMessage(message)
		if err != nil {
			c.logger.Debug("ws frame skipped", zap.Error(err), zap.ByteString("frame", message))
		}
		if c.onEvent == nil {
			continue
		}
		for _, ev := range events {
			c.onEvent(ev)
		}
	}
}

// Done is closed when the connection stops
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Close closes the websocket connection. It does not wait for the read
// goroutine.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		close(c.done)
		return nil
	}
	return conn.Close()
}
