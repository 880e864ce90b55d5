package gamma

import (
	"fmt"

	"github.com/valyala/fastjson"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
	"github.com/pooofdevelopment/clob-trader/pkg/utilities"
)

// ParseMarket decodes one Gamma market. clobTokenIds, outcomes and
// outcomePrices arrive either as arrays or as JSON-encoded strings.
func ParseMarket(v *fastjson.Value) types.GammaMarket {
	return types.GammaMarket{
		ID:              utilities.String(v, "id"),
		Slug:            utilities.String(v, "slug"),
		Question:        utilities.String(v, "question"),
		ConditionID:     utilities.String(v, "conditionId", "condition_id"),
		ClobTokenIDs:    utilities.StringList(v, "clobTokenIds"),
		Outcomes:        utilities.StringList(v, "outcomes"),
		OutcomePrices:   utilities.FloatList(v, "outcomePrices"),
		Active:          utilities.Bool(v, "active"),
		Closed:          utilities.Bool(v, "closed"),
		AcceptingOrders: utilities.Bool(v, "acceptingOrders", "accepting_orders"),
		EnableOrderBook: utilities.Bool(v, "enableOrderBook", "enable_order_book"),
		NegRisk:         utilities.Bool(v, "negRisk", "neg_risk"),
		TickSize:        utilities.Float(v, "orderPriceMinTickSize", "minimum_tick_size"),
		OrderMinSize:    utilities.Float(v, "orderMinSize", "minimum_order_size"),
		Liquidity:       utilities.Float(v, "liquidityNum", "liquidity"),
		Volume:          utilities.Float(v, "volumeNum", "volume"),
		EndDate:         utilities.String(v, "endDate", "end_date_iso"),
	}
}

// ParseEvent decodes one Gamma event with its markets. Markets inherit the
// event's negRisk flag when they do not carry their own.
func ParseEvent(v *fastjson.Value) types.GammaEvent {
	ev := types.GammaEvent{
		ID:      utilities.String(v, "id"),
		Slug:    utilities.String(v, "slug"),
		Title:   utilities.String(v, "title"),
		NegRisk: utilities.Bool(v, "negRisk", "neg_risk"),
		Active:  utilities.Bool(v, "active"),
		Closed:  utilities.Bool(v, "closed"),
		Volume:  utilities.Float(v, "volume"),
	}
	for _, m := range v.GetArray("markets") {
		market := ParseMarket(m)
		if m.Get("negRisk") == nil && m.Get("neg_risk") == nil {
			market.NegRisk = ev.NegRisk
		}
		ev.Markets = append(ev.Markets, market)
	}
	return ev
}

func parseList(body []byte) ([]*fastjson.Value, error) {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode gamma response: %w", err)
	}
	return utilities.Items(v, "data", "markets", "events"), nil
}

// ParseMarkets decodes a /markets listing
func ParseMarkets(body []byte) ([]types.GammaMarket, error) {
	items, err := parseList(body)
	if err != nil {
		return nil, err
	}
	out := make([]types.GammaMarket, 0, len(items))
	for _, item := range items {
		out = append(out, ParseMarket(item))
	}
	return out, nil
}

// ParseEvents decodes an /events listing
func ParseEvents(body []byte) ([]types.GammaEvent, error) {
	items, err := parseList(body)
	if err != nil {
		return nil, err
	}
	out := make([]types.GammaEvent, 0, len(items))
	for _, item := range items {
		out = append(out, ParseEvent(item))
	}
	return out, nil
}
