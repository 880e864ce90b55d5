package orderbook

import (
	"github.com/shopspring/decimal"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// DepthResult is what a market order of the walked size would get.
// FilledSize below the target means the book ran out first.
type DepthResult struct {
	AvgPrice   float64 `json:"avg_price"`
	FilledSize float64 `json:"filled_size"`
	// WorstPrice is the last level touched, the price a marketable limit
	// order would need to fill the whole walk.
	WorstPrice float64 `json:"worst_price"`
}

// Complete reports whether the walk filled targetSize
func (r DepthResult) Complete(targetSize float64) bool {
	return decimal.NewFromFloat(r.FilledSize).GreaterThanOrEqual(decimal.NewFromFloat(targetSize))
}

// WalkOrderbookDepth consumes levels best first until targetSize is filled or
// the levels run out. levels must already be in priority order (asks lowest
// first for a buy, bids highest first for a sell) and are not modified.
func WalkOrderbookDepth(levels []types.PriceLevel, targetSize float64) DepthResult {
	target := decimal.NewFromFloat(targetSize)
	filled := decimal.Zero
	notional := decimal.Zero
	var worst float64

	for _, level := range levels {
		if filled.GreaterThanOrEqual(target) {
			break
		}
		size := decimal.NewFromFloat(level.Size)
		if !size.IsPositive() {
			continue
		}
		take := decimal.Min(size, target.Sub(filled))
		notional = notional.Add(decimal.NewFromFloat(level.Price).Mul(take))
		filled = filled.Add(take)
		worst = level.Price
	}

	if filled.IsZero() {
		return DepthResult{}
	}

	avg, _ := notional.Div(filled).Float64()
	size, _ := filled.Float64()
	return DepthResult{AvgPrice: avg, FilledSize: size, WorstPrice: worst}
}

// LevelsFor returns the side of the book a taker order of side consumes
func LevelsFor(book *types.OrderBookSummary, side string) []types.PriceLevel {
	if book == nil {
		return nil
	}
	if side == types.SELL {
		return book.Bids
	}
	return book.Asks
}

// BestBid returns the highest bid of a sorted book
func BestBid(book *types.OrderBookSummary) (types.PriceLevel, bool) {
	if book == nil || len(book.Bids) == 0 {
		return types.PriceLevel{}, false
	}
	return book.Bids[0], true
}

// BestAsk returns the lowest ask of a sorted book
func BestAsk(book *types.OrderBookSummary) (types.PriceLevel, bool) {
	if book == nil || len(book.Asks) == 0 {
		return types.PriceLevel{}, false
	}
	return book.Asks[0], true
}

// Midpoint is the average of the best bid and best ask
func Midpoint(book *types.OrderBookSummary) (float64, bool) {
	bid, okBid := BestBid(book)
	ask, okAsk := BestAsk(book)
	if !okBid || !okAsk {
		return 0, false
	}
	mid, _ := decimal.NewFromFloat(bid.Price).Add(decimal.NewFromFloat(ask.Price)).Div(decimal.NewFromInt(2)).Float64()
	return mid, true
}
