package orderbook

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/valyala/fastjson"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
	"github.com/pooofdevelopment/clob-trader/pkg/utilities"
)

// ParseOrderBook decodes a /book response or a websocket book event.
// Levels may be {price,size} objects or [price,size] pairs, with values as
// strings or numbers. The result is sorted best first on both sides.
func ParseOrderBook(data []byte) (*types.OrderBookSummary, error) {
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse orderbook: %w", err)
	}
	return FromValue(v)
}

// FromValue is ParseOrderBook over an already parsed value
func FromValue(v *fastjson.Value) (*types.OrderBookSummary, error) {
	if v == nil || v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("parse orderbook: expected object")
	}

	book := &types.OrderBookSummary{
		Market:       utilities.String(v, "market"),
		AssetID:      utilities.String(v, "asset_id", "assetId", "token_id"),
		Timestamp:    utilities.String(v, "timestamp"),
		Hash:         utilities.String(v, "hash"),
		TickSize:     utilities.Float(v, "tick_size", "minimum_tick_size"),
		MinOrderSize: utilities.Float(v, "min_order_size", "minimum_order_size"),
		NegRisk:      utilities.Bool(v, "neg_risk", "negRisk"),
		Bids:         ParseLevels(v.Get("bids")),
		Asks:         ParseLevels(v.Get("asks")),
	}
	if book.Bids == nil {
		book.Bids = ParseLevels(v.Get("buys"))
	}
	if book.Asks == nil {
		book.Asks = ParseLevels(v.Get("sells"))
	}

	SortLevels(book)
	return book, nil
}

// ParseLevels decodes one side of a book, skipping malformed levels
func ParseLevels(v *fastjson.Value) []types.PriceLevel {
	if v == nil || v.Type() != fastjson.TypeArray {
		return nil
	}
	items := v.GetArray()
	levels := make([]types.PriceLevel, 0, len(items))
	for _, item := range items {
		var level types.PriceLevel
		var okPrice, okSize bool
		switch item.Type() {
		case fastjson.TypeObject:
			level.Price, okPrice = utilities.AsFloat(item.Get("price"))
			level.Size, okSize = utilities.AsFloat(item.Get("size"))
		case fastjson.TypeArray:
			pair := item.GetArray()
			if len(pair) < 2 {
				continue
			}
			level.Price, okPrice = utilities.AsFloat(pair[0])
			level.Size, okSize = utilities.AsFloat(pair[1])
		}
		if okPrice && okSize {
			levels = append(levels, level)
		}
	}
	return levels
}

// SortLevels orders bids highest first and asks lowest first
func SortLevels(book *types.OrderBookSummary) {
	sort.SliceStable(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })
	sort.SliceStable(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })
}

// ToCents converts levels priced in dollars to cents
func ToCents(levels []types.PriceLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, len(levels))
	for i, l := range levels {
		cents, _ := decimal.NewFromFloat(l.Price).Shift(2).Float64()
		out[i] = types.PriceLevel{Price: cents, Size: l.Size}
	}
	return out
}
