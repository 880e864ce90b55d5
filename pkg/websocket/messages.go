package websocket

import (
	"fmt"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/pooofdevelopment/clob-trader/pkg/orderbook"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
	"github.com/pooofdevelopment/clob-trader/pkg/utilities"
)

// Market channel event types
const (
	EventBook           = "book"
	EventPriceChange    = "price_change"
	EventTickSizeChange = "tick_size_change"
	EventLastTradePrice = "last_trade_price"
)

// SubscriptionMessage opens the market channel for a set of assets
type SubscriptionMessage struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

// UpdateMessage adds or removes assets on an open connection
type UpdateMessage struct {
	AssetsIDs []string `json:"assets_ids"`
	Operation string   `json:"operation"` // subscribe or unsubscribe
}

// PriceChange is one level update of a price_change event. Prices are in
// dollars as sent by the exchange.
type PriceChange struct {
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Side    string  `json:"side"`
	BestBid float64 `json:"best_bid,omitempty"`
	BestAsk float64 `json:"best_ask,omitempty"`
}

// Event is one decoded market-channel message for a single asset. Only the
// fields of its Type are populated.
type Event struct {
	Type      string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Timestamp string `json:"timestamp"`
	Hash      string `json:"hash,omitempty"`

	Book        *types.OrderBookSummary `json:"book,omitempty"`
	Changes     []PriceChange           `json:"changes,omitempty"`
	OldTickSize float64                 `json:"old_tick_size,omitempty"`
	NewTickSize float64                 `json:"new_tick_size,omitempty"`
	Price       float64                 `json:"price,omitempty"`
	Size        float64                 `json:"size,omitempty"`
	Side        string                  `json:"side,omitempty"`
}

// ParseMessage decodes a frame into events. Frames may carry one object or
// an array of them; heartbeat replies decode to nothing. A price_change that
// spans several assets is split into one event per asset.
func ParseMessage(raw []byte) ([]Event, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || strings.EqualFold(text, "PONG") {
		return nil, nil
	}

	v, err := fastjson.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("decode ws frame: %w", err)
	}

	var items []*fastjson.Value
	if v.Type() == fastjson.TypeArray {
		items, _ = v.Array()
	} else {
		items = []*fastjson.Value{v}
	}

	var out []Event
	for _, item := range items {
		if item.Type() != fastjson.TypeObject {
			continue
		}
		evs, err := parseEvent(item)
		if err != nil {
			return out, err
		}
		out = append(out, evs...)
	}
	return out, nil
}

func parseEvent(v *fastjson.Value) ([]Event, error) {
	base := Event{
		Type:      utilities.String(v, "event_type", "type"),
		AssetID:   utilities.String(v, "asset_id", "assetId"),
		Market:    utilities.String(v, "market"),
		Timestamp: utilities.String(v, "timestamp"),
		Hash:      utilities.String(v, "hash"),
	}

	switch base.Type {
	case EventBook:
		book, err := orderbook.FromValue(v)
		if err != nil {
			return nil, err
		}
		base.Book = book
		return []Event{base}, nil

	case EventPriceChange:
		return splitPriceChanges(base, v), nil

	case EventTickSizeChange:
		base.OldTickSize = utilities.Float(v, "old_tick_size")
		base.NewTickSize = utilities.Float(v, "new_tick_size")
		return []Event{base}, nil

	case EventLastTradePrice:
		base.Price = utilities.Float(v, "price")
		base.Size = utilities.Float(v, "size")
		base.Side = strings.ToUpper(utilities.String(v, "side"))
		return []Event{base}, nil
	}

	if base.Type == "" {
		return nil, nil
	}
	return []Event{base}, nil
}

func splitPriceChanges(base Event, v *fastjson.Value) []Event {
	changes := v.GetArray("price_changes")
	if changes == nil {
		changes = v.GetArray("changes")
	}

	byAsset := make(map[string]int)
	var out []Event
	for _, c := range changes {
		asset := utilities.String(c, "asset_id")
		if asset == "" {
			asset = base.AssetID
		}
		idx, ok := byAsset[asset]
		if !ok {
			ev := base
			ev.AssetID = asset
			ev.Changes = nil
			if h := utilities.String(c, "hash"); h != "" {
				ev.Hash = h
			}
			out = append(out, ev)
			idx = len(out) - 1
			byAsset[asset] = idx
		}
		out[idx].Changes = append(out[idx].Changes, PriceChange{
			Price:   utilities.Float(c, "price"),
			Size:    utilities.Float(c, "size"),
			Side:    strings.ToUpper(utilities.String(c, "side")),
			BestBid: utilities.Float(c, "best_bid"),
			BestAsk: utilities.Float(c, "best_ask"),
		})
	}
	if len(out) == 0 {
		out = append(out, base)
	}
	return out
}
