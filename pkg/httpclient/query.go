package httpclient

import (
	"net/url"
	"strconv"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// OpenOrdersQuery builds the query of GET /data/orders
func OpenOrdersQuery(params *types.OpenOrderParams, nextCursor string) url.Values {
	q := url.Values{}
	if nextCursor != "" {
		q.Set("next_cursor", nextCursor)
	}
	if params != nil {
		if params.ID != "" {
			q.Set("id", params.ID)
		}
		if params.Market != "" {
			q.Set("market", params.Market)
		}
		if params.AssetID != "" {
			q.Set("asset_id", params.AssetID)
		}
	}
	return q
}

// BalanceAllowanceQuery builds the query of the balance-allowance endpoints
func BalanceAllowanceQuery(params *types.BalanceAllowanceParams) url.Values {
	q := url.Values{}
	if params == nil {
		return q
	}
	if params.AssetType != "" {
		q.Set("asset_type", string(params.AssetType))
	}
	if params.TokenID != "" {
		q.Set("token_id", params.TokenID)
	}
	if params.SignatureType >= 0 {
		q.Set("signature_type", strconv.Itoa(params.SignatureType))
	}
	return q
}

// PositionsQuery builds the query of GET /data/positions
func PositionsQuery(params *types.PositionParams, nextCursor string) url.Values {
	q := url.Values{}
	if nextCursor != "" {
		q.Set("next_cursor", nextCursor)
	}
	if params != nil {
		if params.User != "" {
			q.Set("user", params.User)
		}
		if params.Market != "" {
			q.Set("market", params.Market)
		}
	}
	return q
}

// TokenQuery is the single token_id query used by the market endpoints
func TokenQuery(tokenID string) url.Values {
	return url.Values{"token_id": {tokenID}}
}
