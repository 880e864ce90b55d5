package gamma

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pooofdevelopment/clob-trader/pkg/httpclient"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

var (
	ErrEventNotFound  = errors.New("gamma event not found")
	ErrMarketNotFound = errors.New("gamma market not found")
)

// Client reads event and market metadata from the Gamma API
type Client struct {
	host   string
	http   *httpclient.Client
	logger *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTP shares a transport (and its rate limiter) with other clients
func WithHTTP(h *httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Gamma client for host
func NewClient(host string, opts ...Option) *Client {
	c := &Client{host: strings.TrimRight(host, "/"), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewClient(httpclient.WithLogger(c.logger))
	}
	return c
}

// ListEvents lists events matching params
func (c *Client) ListEvents(ctx context.Context, params *types.GammaEventsParams) ([]types.GammaEvent, error) {
	body, err := c.http.Get(ctx, httpclient.BuildURL(c.host, types.GAMMA_EVENTS, eventsQuery(params)), nil)
	if err != nil {
		return nil, err
	}
	return ParseEvents(body)
}

// GetEvent fetches an event by slug
func (c *Client) GetEvent(ctx context.Context, slug string) (*types.GammaEvent, error) {
	events, err := c.ListEvents(ctx, &types.GammaEventsParams{Slug: slug})
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].Slug == slug {
			return &events[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEventNotFound, slug)
}

// ListMarkets lists markets matching params
func (c *Client) ListMarkets(ctx context.Context, params *types.GammaMarketsParams) ([]types.GammaMarket, error) {
	body, err := c.http.Get(ctx, httpclient.BuildURL(c.host, types.GAMMA_MARKETS, marketsQuery(params)), nil)
	if err != nil {
		return nil, err
	}
	return ParseMarkets(body)
}

// GetMarketByToken finds the market that trades tokenID
func (c *Client) GetMarketByToken(ctx context.Context, tokenID string) (*types.GammaMarket, error) {
	markets, err := c.ListMarkets(ctx, &types.GammaMarketsParams{ClobTokenIDs: []string{tokenID}})
	if err != nil {
		return nil, err
	}
	for i := range markets {
		for _, id := range markets[i].ClobTokenIDs {
			if id == tokenID {
				return &markets[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: token %s", ErrMarketNotFound, tokenID)
}

// MarketConstraints returns the order grid of m, with exchange defaults for
// whatever Gamma left out
func MarketConstraints(m types.GammaMarket) types.MarketConstraints {
	return (&types.MarketConstraints{TickSize: m.TickSize, MinOrderSize: m.OrderMinSize}).WithDefaults()
}

// Tradable reports whether m currently accepts CLOB orders
func Tradable(m types.GammaMarket) bool {
	return m.Active && !m.Closed && m.AcceptingOrders && m.EnableOrderBook && len(m.ClobTokenIDs) > 0
}

func eventsQuery(p *types.GammaEventsParams) url.Values {
	q := url.Values{}
	if p == nil {
		return q
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Slug != "" {
		q.Set("slug", p.Slug)
	}
	if p.TagID > 0 {
		q.Set("tag_id", strconv.Itoa(p.TagID))
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	setBool(q, "active", p.Active)
	setBool(q, "closed", p.Closed)
	return q
}

func marketsQuery(p *types.GammaMarketsParams) url.Values {
	q := url.Values{}
	if p == nil {
		return q
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	if p.TagID > 0 {
		q.Set("tag_id", strconv.Itoa(p.TagID))
	}
	for _, s := range p.Slug {
		q.Add("slug", s)
	}
	for _, id := range p.ClobTokenIDs {
		q.Add("clob_token_ids", id)
	}
	for _, id := range p.ConditionIDs {
		q.Add("condition_ids", id)
	}
	setBool(q, "ascending", p.Ascending)
	setBool(q, "active", p.Active)
	setBool(q, "closed", p.Closed)
	return q
}

func setBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}
