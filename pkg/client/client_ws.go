package client

import (
	"github.com/pooofdevelopment/clob-trader/pkg/websocket"
)

// NewMarketPool returns a market-channel pool on the client's websocket
// host. The caller owns the pool and closes it.
func (c *ClobClient) NewMarketPool(opts ...websocket.PoolOption) *websocket.Pool {
	opts = append([]websocket.PoolOption{websocket.WithPoolLogger(c.logger.Named("ws"))}, opts...)
	return websocket.NewPool(c.wsHost, opts...)
}
