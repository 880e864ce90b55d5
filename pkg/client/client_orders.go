package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/httpclient"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// CreateOrder validates, builds and signs an order. Market constraints and
// the neg-risk flag are fetched when opts leaves them unset.
func (c *ClobClient) CreateOrder(ctx context.Context, params types.OrderParams, opts *types.CreateOrderOptions) (*types.SignedOrder, error) {
	ob := c.orderBuilder()
	if ob == nil {
		return nil, clobErrors.ErrL1AuthUnavailable
	}
	if opts == nil {
		opts = &types.CreateOrderOptions{}
	}

	constraints := opts.Constraints
	if constraints == nil {
		var err error
		constraints, err = c.GetMarketConstraints(ctx, params.TokenID)
		if err != nil {
			return nil, fmt.Errorf("market constraints: %w", err)
		}
	}

	var negRisk bool
	if opts.NegRisk != nil {
		negRisk = *opts.NegRisk
	} else {
		var err error
		negRisk, err = c.GetNegRisk(ctx, params.TokenID)
		if err != nil {
			return nil, err
		}
	}

	return ob.CreateOrder(params, constraints, negRisk, opts.Nonce)
}

type orderPayload struct {
	Salt          uint64 `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type postOrderRequest struct {
	Order     orderPayload    `json:"order"`
	Owner     string          `json:"owner"`
	OrderType types.OrderType `json:"orderType"`
}

// orderToJSON converts an order to the wire format. Salt and signatureType
// go out as numbers, side as its label.
func orderToJSON(order *types.SignedOrder, owner string, orderType types.OrderType) ([]byte, error) {
	salt, err := strconv.ParseUint(order.Salt, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("order salt %q: %w", order.Salt, err)
	}
	return marshalBody(postOrderRequest{
		Order: orderPayload{
			Salt:          salt,
			Maker:         order.Maker,
			Signer:        order.Signer,
			Taker:         order.Taker,
			TokenID:       order.TokenID,
			MakerAmount:   order.MakerAmount,
			TakerAmount:   order.TakerAmount,
			Expiration:    order.Expiration,
			Nonce:         order.Nonce,
			FeeRateBps:    order.FeeRateBps,
			Side:          order.SideLabel(),
			SignatureType: int(order.SignatureType),
			Signature:     order.Signature,
		},
		Owner:     owner,
		OrderType: orderType,
	})
}

// PostOrder posts the order to the exchange. A success:false reply comes
// back as *errors.OrderRejectedError alongside the parsed response.
func (c *ClobClient) PostOrder(ctx context.Context, order *types.SignedOrder, orderType types.OrderType) (*types.OrderResponse, error) {
	if order == nil {
		return nil, fmt.Errorf("nil order")
	}
	if orderType == "" {
		orderType = types.OrderTypeGTC
	}

	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}
	body, err := orderToJSON(order, creds.ApiKey, orderType)
	if err != nil {
		return nil, err
	}

	resp, err := c.doL2(ctx, creds, authRequest{Method: http.MethodPost, Path: types.POST_ORDER, Body: body})
	if err != nil {
		return nil, err
	}

	out, err := parseOrderResponse(resp)
	if err != nil {
		c.logger.Warn("order rejected",
			zap.String("token_id", order.TokenID),
			zap.String("side", order.SideLabel()),
			zap.Error(err))
		return out, err
	}
	c.logger.Info("order posted",
		zap.String("order_id", out.OrderID),
		zap.String("status", out.Status),
		zap.Bool("neg_risk", order.NegRisk))
	return out, nil
}

// CreateAndPostOrder utility function to create and publish an order
func (c *ClobClient) CreateAndPostOrder(ctx context.Context, params types.OrderParams, opts *types.CreateOrderOptions, orderType types.OrderType) (*types.OrderResponse, error) {
	order, err := c.CreateOrder(ctx, params, opts)
	if err != nil {
		return nil, err
	}
	return c.PostOrder(ctx, order, orderType)
}

// Cancel cancels an order
func (c *ClobClient) Cancel(ctx context.Context, orderID string) (*types.CancelResponse, error) {
	body, err := marshalBody(map[string]string{"orderID": orderID})
	if err != nil {
		return nil, err
	}
	return c.cancel(ctx, authRequest{Method: http.MethodDelete, Path: types.CANCEL, Body: body})
}

// CancelOrders cancels multiple orders
func (c *ClobClient) CancelOrders(ctx context.Context, orderIDs []string) (*types.CancelResponse, error) {
	body, err := marshalBody(orderIDs)
	if err != nil {
		return nil, err
	}
	return c.cancel(ctx, authRequest{Method: http.MethodDelete, Path: types.CANCEL_ORDERS, Body: body})
}

// CancelAll cancels all available orders for the user
func (c *ClobClient) CancelAll(ctx context.Context) (*types.CancelResponse, error) {
	return c.cancel(ctx, authRequest{Method: http.MethodDelete, Path: types.CANCEL_ALL})
}

func (c *ClobClient) cancel(ctx context.Context, req authRequest) (*types.CancelResponse, error) {
	body, err := c.authed(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := parseCancelResponse(body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("cancel", zap.String("path", req.Path), zap.Int("canceled", len(resp.Canceled)), zap.Int("not_canceled", len(resp.NotCanceled)))
	return resp, nil
}

// GetOrders lists open orders, following cursors until the end marker.
// Each page is signed over the bare path.
func (c *ClobClient) GetOrders(ctx context.Context, params *types.OpenOrderParams) ([]types.OpenOrder, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}

	var results []types.OpenOrder
	cursor := types.StartCursor
	for cursor != types.EndCursor {
		body, err := c.doL2(ctx, creds, authRequest{
			Method: http.MethodGet,
			Path:   types.ORDERS,
			Query:  httpclient.OpenOrdersQuery(params, cursor),
		})
		if err != nil {
			return nil, err
		}
		page, err := parseOrdersPage(body)
		if err != nil {
			return nil, err
		}
		results = append(results, page.Orders...)

		if page.NextCursor == "" || page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}
	return results, nil
}

// GetOrder fetches the order corresponding to the order_id
func (c *ClobClient) GetOrder(ctx context.Context, orderID string) (*types.OpenOrder, error) {
	body, err := c.authed(ctx, authRequest{Method: http.MethodGet, Path: types.GET_ORDER + orderID})
	if err != nil {
		return nil, err
	}
	return parseSingleOrder(body)
}

// GetPositions lists conditional-token holdings, defaulting to the wallet
// address when params names no user.
func (c *ClobClient) GetPositions(ctx context.Context, params *types.PositionParams) ([]types.Position, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}

	p := types.PositionParams{}
	if params != nil {
		p = *params
	}
	if p.User == "" {
		p.User = c.GetAddress()
	}

	var out []types.Position
	cursor := ""
	for {
		body, err := c.doL2(ctx, creds, authRequest{
			Method: http.MethodGet,
			Path:   types.POSITIONS,
			Query:  httpclient.PositionsQuery(&p, cursor),
		})
		if err != nil {
			return nil, err
		}
		page, next, err := parsePositionsPage(body)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == types.EndCursor || next == cursor {
			return out, nil
		}
		cursor = next
	}
}
