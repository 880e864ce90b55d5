package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/httpclient"
	"github.com/pooofdevelopment/clob-trader/pkg/orderbook"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// GetTickSize gets the tick size for a market, as a fraction of $1
func (c *ClobClient) GetTickSize(ctx context.Context, tokenID string) (float64, error) {
	c.cacheMu.RLock()
	tick, ok := c.tickSizes[tokenID]
	c.cacheMu.RUnlock()
	if ok {
		return tick, nil
	}

	body, err := c.http.Get(ctx, httpclient.BuildURL(c.host, types.GET_TICK_SIZE, httpclient.TokenQuery(tokenID)), nil)
	if err != nil {
		return 0, err
	}
	tick, err = parseTickSize(body)
	if err != nil {
		return 0, err
	}

	c.cacheMu.Lock()
	c.tickSizes[tokenID] = tick
	c.cacheMu.Unlock()
	return tick, nil
}

// GetNegRisk checks if a market uses neg risk. Failures are returned, never
// defaulted: signing against the wrong exchange gets the order rejected.
func (c *ClobClient) GetNegRisk(ctx context.Context, tokenID string) (bool, error) {
	c.cacheMu.RLock()
	negRisk, ok := c.negRisk[tokenID]
	c.cacheMu.RUnlock()
	if ok {
		return negRisk, nil
	}

	body, err := c.http.Get(ctx, httpclient.BuildURL(c.host, types.GET_NEG_RISK, httpclient.TokenQuery(tokenID)), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", clobErrors.ErrNegRiskUnknown, err)
	}
	negRisk, err = parseNegRisk(body)
	if err != nil {
		return false, err
	}

	c.cacheMu.Lock()
	c.negRisk[tokenID] = negRisk
	c.cacheMu.Unlock()
	return negRisk, nil
}

// GetMarketConstraints returns the tick size and minimum order size of a
// market. The minimum comes from the book when it has not been seen yet.
func (c *ClobClient) GetMarketConstraints(ctx context.Context, tokenID string) (*types.MarketConstraints, error) {
	tick, err := c.GetTickSize(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	c.cacheMu.RLock()
	minSize, ok := c.minSizes[tokenID]
	c.cacheMu.RUnlock()
	if !ok {
		book, err := c.GetOrderBook(ctx, tokenID)
		if err != nil {
			return nil, err
		}
		minSize = book.MinOrderSize
	}

	out := (&types.MarketConstraints{TickSize: tick, MinOrderSize: minSize}).WithDefaults()
	return &out, nil
}

// GetOrderBook fetches the orderbook for the token_id, sorted best first
func (c *ClobClient) GetOrderBook(ctx context.Context, tokenID string) (*types.OrderBookSummary, error) {
	body, err := c.http.Get(ctx, httpclient.BuildURL(c.host, types.GET_ORDER_BOOK, httpclient.TokenQuery(tokenID)), nil)
	if err != nil {
		var apiErr *clobErrors.ApiError
		if stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w for %s: %w", clobErrors.ErrNoOrderbook, tokenID, err)
		}
		return nil, err
	}

	book, err := orderbook.ParseOrderBook(body)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	if book.TickSize > 0 {
		c.tickSizes[tokenID] = book.TickSize
	}
	if book.MinOrderSize > 0 {
		c.minSizes[tokenID] = book.MinOrderSize
	}
	c.cacheMu.Unlock()

	return book, nil
}

// GetMidpoint gets the mid market price in dollars
func (c *ClobClient) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	body, err := c.http.Get(ctx, httpclient.BuildURL(c.host, types.MID_POINT, httpclient.TokenQuery(tokenID)), nil)
	if err != nil {
		return 0, err
	}
	return parsePriceField(body, "mid", "midpoint")
}

// GetPrice gets the best price in dollars for side
func (c *ClobClient) GetPrice(ctx context.Context, tokenID, side string) (float64, error) {
	q := url.Values{"token_id": {tokenID}, "side": {side}}
	body, err := c.http.Get(ctx, httpclient.BuildURL(c.host, types.PRICE, q), nil)
	if err != nil {
		return 0, err
	}
	return parsePriceField(body, "price")
}

// MarketEstimate is the expected execution of a market order, priced in
// cents. Partial is set when the book cannot absorb the full size.
type MarketEstimate struct {
	orderbook.DepthResult
	TargetSize float64 `json:"target_size"`
	Partial    bool    `json:"partial"`
}

// EstimateMarketOrder walks the live book to price a taker order of size
// shares. A buy consumes asks, a sell consumes bids.
func (c *ClobClient) EstimateMarketOrder(ctx context.Context, tokenID, side string, size float64) (*MarketEstimate, error) {
	if side != types.BUY && side != types.SELL {
		return nil, clobErrors.ErrInvalidSide
	}

	book, err := c.GetOrderBook(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	levels := orderbook.LevelsFor(book, side)
	if len(levels) == 0 {
		return nil, clobErrors.ErrNoMatch
	}

	res := orderbook.WalkOrderbookDepth(orderbook.ToCents(levels), size)
	return &MarketEstimate{DepthResult: res, TargetSize: size, Partial: !res.Complete(size)}, nil
}

func (c *ClobClient) balanceParams(params *types.BalanceAllowanceParams) *types.BalanceAllowanceParams {
	p := types.BalanceAllowanceParams{AssetType: types.AssetTypeCollateral}
	if params != nil {
		p = *params
	}
	if p.SignatureType < 0 {
		if ob := c.orderBuilder(); ob != nil {
			p.SignatureType = int(ob.SignatureType())
		} else {
			p.SignatureType = 0
		}
	}
	return &p
}

// GetBalanceAllowance fetches the balance & allowance for a user. Only the
// bare path is signed even though the query goes out with the request.
func (c *ClobClient) GetBalanceAllowance(ctx context.Context, params *types.BalanceAllowanceParams) (*types.BalanceAllowance, error) {
	body, err := c.authed(ctx, authRequest{
		Method: http.MethodGet,
		Path:   types.GET_BALANCE_ALLOWANCE,
		Query:  httpclient.BalanceAllowanceQuery(c.balanceParams(params)),
	})
	if err != nil {
		return nil, err
	}
	return parseBalanceAllowance(body)
}

// UpdateBalanceAllowance asks the exchange to re-read on-chain balances
func (c *ClobClient) UpdateBalanceAllowance(ctx context.Context, params *types.BalanceAllowanceParams) error {
	_, err := c.authed(ctx, authRequest{
		Method: http.MethodGet,
		Path:   types.UPDATE_BALANCE_ALLOWANCE,
		Query:  httpclient.BalanceAllowanceQuery(c.balanceParams(params)),
	})
	return err
}
