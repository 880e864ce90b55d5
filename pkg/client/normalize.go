package client

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/valyala/fastjson"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
	"github.com/pooofdevelopment/clob-trader/pkg/utilities"
)

func parseJSON(body []byte) (*fastjson.Value, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, clobErrors.ErrMissingResponse
	}
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

func parseApiCreds(body []byte) (*types.ApiCreds, error) {
	v, err := parseJSON(body)
	if err != nil {
		return nil, err
	}
	creds := &types.ApiCreds{
		ApiKey:        utilities.String(v, "apiKey", "api_key", "key"),
		ApiSecret:     utilities.String(v, "secret", "api_secret", "apiSecret"),
		ApiPassphrase: utilities.String(v, "passphrase", "api_passphrase", "apiPassphrase"),
	}
	if !creds.Valid() {
		return nil, fmt.Errorf("incomplete api credentials in response: %w", clobErrors.ErrMissingResponse)
	}
	return creds, nil
}

func parseApiKeys(body []byte) ([]string, error) {
	v, err := parseJSON(body)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, item := range utilities.Items(v, "apiKeys", "api_keys", "data") {
		if item.Type() == fastjson.TypeObject {
			keys = append(keys, utilities.String(item, "apiKey", "api_key", "key"))
			continue
		}
		keys = append(keys, utilities.AsString(item))
	}
	return keys, nil
}

// parseOrderResponse maps POST /order results. success:false is a business
// rejection and carries the exchange text verbatim.
func parseOrderResponse(body []byte) (*types.OrderResponse, error) {
	v, err := parseJSON(body)
	if err != nil {
		return nil, err
	}

	resp := &types.OrderResponse{
		Success:  utilities.Bool(v, "success"),
		ErrorMsg: utilities.String(v, "errorMsg", "error_msg", "error"),
		OrderID:  utilities.String(v, "orderID", "orderId", "order_id", "id"),
		Status:   utilities.String(v, "status"),
	}
	resp.OrderHashes = utilities.StringList(v, "orderHashes")
	if resp.OrderHashes == nil {
		resp.OrderHashes = utilities.StringList(v, "transactionsHashes")
	}

	// some responses omit success on accepted orders but carry the id
	if v.Get("success") == nil && resp.OrderID != "" && resp.ErrorMsg == "" {
		resp.Success = true
	}

	if !resp.Success {
		return resp, &clobErrors.OrderRejectedError{Message: resp.ErrorMsg, OrderID: resp.OrderID}
	}
	return resp, nil
}

func parseCancelResponse(body []byte) (*types.CancelResponse, error) {
	v, err := parseJSON(body)
	if err != nil {
		return nil, err
	}

	resp := &types.CancelResponse{
		Canceled:    utilities.StringList(v, "canceled"),
		NotCanceled: make(map[string]string),
	}
	nc := v.Get("not_canceled")
	if nc == nil {
		nc = v.Get("notCanceled")
	}
	if nc != nil && nc.Type() == fastjson.TypeObject {
		obj, _ := nc.Object()
		obj.Visit(func(key []byte, val *fastjson.Value) {
			resp.NotCanceled[string(key)] = utilities.AsString(val)
		})
	}
	if resp.Canceled == nil {
		resp.Canceled = []string{}
	}
	return resp, nil
}

func parseOpenOrder(v *fastjson.Value) types.OpenOrder {
	return types.OpenOrder{
		ID:           utilities.String(v, "id", "orderID", "orderId"),
		Status:       utilities.String(v, "status"),
		Market:       utilities.String(v, "market", "condition_id"),
		AssetID:      utilities.String(v, "asset_id", "assetId", "token_id"),
		Side:         strings.ToUpper(utilities.String(v, "side")),
		Price:        utilities.Float(v, "price"),
		OriginalSize: utilities.Float(v, "original_size", "originalSize", "size"),
		SizeMatched:  utilities.Float(v, "size_matched", "sizeMatched"),
		Outcome:      utilities.String(v, "outcome"),
		MakerAddress: utilities.String(v, "maker_address", "makerAddress", "maker"),
		CreatedAt:    utilities.Time(v, "created_at", "createdAt"),
	}
}

// orderPage is one page of a cursor-paginated listing
type orderPage struct {
	Orders     []types.OpenOrder
	NextCursor string
}

func parseOrdersPage(body []byte) (*orderPage, error) {
	v, err := parseJSON(body)
	if err != nil {
		return nil, err
	}
	page := &orderPage{NextCursor: utilities.String(v, "next_cursor", "nextCursor")}
	for _, item := range utilities.Items(v, "data", "orders") {
		page.Orders = append(page.Orders, parseOpenOrder(item))
	}
	if v.Type() == fastjson.TypeArray {
		page.NextCursor = types.EndCursor
	}
	return page, nil
}

func parseSingleOrder(body []byte) (*types.OpenOrder, error) {
	v, err := parseJSON(body)
	if err != nil {
		return nil, err
	}
	if inner := v.Get("order"); inner != nil && inner.Type() == fastjson.TypeObject {
		v = inner
	}
	if v.Type() != fastjson.TypeObject {
		return nil, clobErrors.ErrMissingResponse
	}
	o := parseOpenOrder(v)
	return &o, nil
}

func parsePosition(v *fastjson.Value) types.Position {
	return types.Position{
		AssetID:      utilities.String(v, "asset", "asset_id", "assetId", "token_id"),
		ConditionID:  utilities.String(v, "conditionId", "condition_id", "market"),
		Title:        utilities.String(v, "title", "question"),
		Outcome:      utilities.String(v, "outcome"),
		Size:         utilities.Float(v, "size"),
		AvgPrice:     utilities.Float(v, "avgPrice", "avg_price"),
		CurPrice:     utilities.Float(v, "curPrice", "cur_price"),
		Redeemable:   utilities.Bool(v, "redeemable"),
		NegRisk:      utilities.Bool(v, "negativeRisk", "negative_risk", "negRisk", "neg_risk"),
		OutcomeIndex: int(utilities.Int(v, "outcomeIndex", "outcome_index")),
	}
}

func parsePositionsPage(body []byte) ([]types.Position, string, error) {
	v, err := parseJSON(body)
	if err != nil {
		return nil, "", err
	}
	var out []types.Position
	for _, item := range utilities.Items(v, "data", "positions") {
		out = append(out, parsePosition(item))
	}
	cursor := types.EndCursor
	if v.Type() == fastjson.TypeObject {
		if next := utilities.String(v, "next_cursor", "nextCursor"); next != "" {
			cursor = next
		}
	}
	return out, cursor, nil
}

func parseBigInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

func parseBalanceAllowance(body []byte) (*types.BalanceAllowance, error) {
	v, err := parseJSON(body)
	if err != nil {
		return nil, err
	}
	out := &types.BalanceAllowance{
		Balance:    parseBigInt(utilities.String(v, "balance")),
		Allowances: make(map[string]*big.Int),
	}
	if a := v.Get("allowances"); a != nil && a.Type() == fastjson.TypeObject {
		obj, _ := a.Object()
		obj.Visit(func(key []byte, val *fastjson.Value) {
			out.Allowances[string(key)] = parseBigInt(utilities.AsString(val))
		})
	} else if single := utilities.String(v, "allowance"); single != "" {
		out.Allowances[""] = parseBigInt(single)
	}
	return out, nil
}

func parseTickSize(body []byte) (float64, error) {
	v, err := parseJSON(body)
	if err != nil {
		return 0, err
	}
	tick := utilities.Float(v, "minimum_tick_size", "min_tick_size", "tick_size")
	if tick <= 0 {
		return 0, fmt.Errorf("failed to get tick size from response: %s", body)
	}
	return tick, nil
}

func parseNegRisk(body []byte) (bool, error) {
	v, err := parseJSON(body)
	if err != nil {
		return false, err
	}
	for _, key := range []string{"neg_risk", "negRisk"} {
		if v.Get(key) != nil {
			return utilities.Bool(v, key), nil
		}
	}
	return false, clobErrors.ErrNegRiskUnknown
}

func parsePriceField(body []byte, keys ...string) (float64, error) {
	v, err := parseJSON(body)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if f, ok := utilities.AsFloat(v.Get(k)); ok {
			return f, nil
		}
	}
	return 0, fmt.Errorf("missing %s in response: %w", strings.Join(keys, "/"), clobErrors.ErrMissingResponse)
}
