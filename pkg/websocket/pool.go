package websocket

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const defaultBuffer = 64

// Subscription receives the events of the assets it was opened for. The
// channel is closed on Close or when the pool loses its connection.
type Subscription struct {
	id     uint64
	assets map[string]struct{}
	ch     chan Event
	pool   *Pool
	once   sync.Once
}

// Events returns the delivery channel
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Assets returns the subscribed asset IDs
func (s *Subscription) Assets() []string {
	out := make([]string, 0, len(s.assets))
	for a := range s.assets {
		out = append(out, a)
	}
	return out
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.pool.release(s) })
}

// Pool shares one market-channel connection between subscribers. The
// connection opens with the first subscriber and closes with the last;
// assets are ref-counted so the exchange only sees subscribe and
// unsubscribe when the first or last interested subscriber comes and goes.
type Pool struct {
	host       string
	clientOpts []ClientOption
	logger     *zap.Logger
	buffer     int

	mu     sync.Mutex
	client *Client
	subs   map[uint64]*Subscription
	refs   map[string]int
	nextID uint64
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithClientOptions passes options to every Client the pool opens
func WithClientOptions(opts ...ClientOption) PoolOption {
	return func(p *Pool) { p.clientOpts = append(p.clientOpts, opts...) }
}

// WithPoolLogger sets the pool logger
func WithPoolLogger(l *zap.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithBuffer sets the per-subscriber channel size. Events for a full
// subscriber are dropped.
func WithBuffer(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// NewPool creates a pool for the websocket host
func NewPool(host string, opts ...PoolOption) *Pool {
	p := &Pool{
		host:   host,
		logger: zap.NewNop(),
		buffer: defaultBuffer,
		subs:   make(map[uint64]*Subscription),
		refs:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers interest in assetIDs, connecting on first use
func (p *Pool) Subscribe(ctx context.Context, assetIDs ...string) (*Subscription, error) {
	if len(assetIDs) == 0 {
		return nil, fmt.Errorf("at least one asset id is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var fresh []string
	seen := make(map[string]struct{}, len(assetIDs))
	for _, a := range assetIDs {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		if p.refs[a] == 0 {
			fresh = append(fresh, a)
		}
	}

	if p.client == nil {
		opts := append([]ClientOption{
			WithLogger(p.logger),
			WithEventHandler(p.dispatch),
			WithDisconnectHandler(p.lost),
		}, p.clientOpts...)
		c := NewClient(p.host, opts...)
		if err := c.Connect(ctx, fresh); err != nil {
			return nil, err
		}
		p.client = c
	} else if len(fresh) > 0 {
		if err := p.client.UpdateAssets(fresh, true); err != nil {
			return nil, err
		}
	}

	for a := range seen {
		p.refs[a]++
	}
	p.nextID++
	sub := &Subscription{id: p.nextID, assets: seen, ch: make(chan Event, p.buffer), pool: p}
	p.subs[sub.id] = sub

	p.logger.Debug("ws subscribe", zap.Uint64("subscription", sub.id), zap.Int("subscribers", len(p.subs)))
	return sub, nil
}

func (p *Pool) release(s *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.subs[s.id]; !ok {
		return
	}
	delete(p.subs, s.id)
	close(s.ch)

	var gone []string
	for a := range s.assets {
		p.refs[a]--
		if p.refs[a] <= 0 {
			delete(p.refs, a)
			gone = append(gone, a)
		}
	}

	if len(p.subs) == 0 {
		p.closeClient()
		return
	}
	if len(gone) > 0 && p.client != nil {
		if err := p.client.UpdateAssets(gone, false); err != nil {
			p.logger.Warn("ws unsubscribe failed", zap.Error(err))
		}
	}
}

// closeClient drops the connection. Caller holds p.mu.
func (p *Pool) closeClient() {
	if p.client == nil {
		return
	}
	if err := p.client.Close(); err != nil {
		p.logger.Debug("ws close", zap.Error(err))
	}
	p.client = nil
	p.refs = make(map[string]int)
	p.logger.Info("ws connection released")
}

func (p *Pool) dispatch(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.subs {
		if _, ok := s.assets[ev.AssetID]; !ok {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			p.logger.Warn("ws subscriber full, event dropped",
				zap.Uint64("subscription", s.id),
				zap.String("asset_id", ev.AssetID),
				zap.String("event", ev.Type))
		}
	}
}

// lost ends every subscription when the shared connection drops
func (p *Pool) lost(c *Client, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != c {
		return
	}
	p.logger.Warn("ws connection lost", zap.Error(err), zap.Int("subscribers", len(p.subs)))
	for id, s := range p.subs {
		close(s.ch)
		delete(p.subs, id)
	}
	p.client = nil
	p.refs = make(map[string]int)
}

// Close ends every subscription and the connection
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, s := range p.subs {
		close(s.ch)
		delete(p.subs, id)
	}
	p.closeClient()
}

// Refs returns how many subscribers want assetID
func (p *Pool) Refs(assetID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refs[assetID]
}

// Subscribers returns the number of open subscriptions
func (p *Pool) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Connected reports whether the pool holds a live connection
func (p *Pool) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil && p.client.IsConnected()
}
