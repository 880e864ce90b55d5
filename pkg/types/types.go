package types

import (
	"math/big"
	"time"

	"github.com/polymarket/go-order-utils/pkg/model"
)

// ApiCreds represents API credentials for Level 2 authentication
type ApiCreds struct {
	ApiKey        string `json:"api_key"`
	ApiSecret     string `json:"api_secret"`
	ApiPassphrase string `json:"api_passphrase"`
}

// Valid reports whether every credential field is populated
func (c *ApiCreds) Valid() bool {
	return c != nil && c.ApiKey != "" && c.ApiSecret != "" && c.ApiPassphrase != ""
}

// RequestArgs represents arguments for building request headers.
// RequestPath is the path that gets signed and never carries the query string.
type RequestArgs struct {
	Method      string `json:"method"`
	RequestPath string `json:"request_path"`
	Body        string `json:"body,omitempty"`
}

// OrderParams is the human-entered order: price in cents, size in shares
type OrderParams struct {
	TokenID string  `json:"token_id"`
	Side    string  `json:"side"`  // BUY or SELL
	Price   float64 `json:"price"` // cents, possibly fractional on fine-tick markets
	Size    float64 `json:"size"`  // shares
}

// MarketConstraints are the grid rules a market enforces on prices and sizes
type MarketConstraints struct {
	TickSize     float64 `json:"tick_size"`      // fraction of $1, e.g. 0.01 or 0.001
	MinOrderSize float64 `json:"min_order_size"` // shares
}

// WithDefaults fills zero fields with the exchange defaults
func (m *MarketConstraints) WithDefaults() MarketConstraints {
	out := MarketConstraints{TickSize: DefaultTickSize, MinOrderSize: DefaultMinOrderSize}
	if m == nil {
		return out
	}
	if m.TickSize > 0 {
		out.TickSize = m.TickSize
	}
	if m.MinOrderSize > 0 {
		out.MinOrderSize = m.MinOrderSize
	}
	return out
}

// OrderStruct is the unsigned on-chain order. Numeric fields are base-10
// strings of uint256 values, except Salt which stays inside 53 bits.
type OrderStruct struct {
	Salt          string              `json:"salt"`
	Maker         string              `json:"maker"`
	Signer        string              `json:"signer"`
	Taker         string              `json:"taker"`
	TokenID       string              `json:"tokenId"`
	MakerAmount   string              `json:"makerAmount"`
	TakerAmount   string              `json:"takerAmount"`
	Expiration    string              `json:"expiration"`
	Nonce         string              `json:"nonce"`
	FeeRateBps    string              `json:"feeRateBps"`
	Side          model.Side          `json:"side"`
	SignatureType model.SignatureType `json:"signatureType"`
}

// SideLabel returns the wire label of the order side
func (o OrderStruct) SideLabel() string {
	if o.Side == model.SELL {
		return SELL
	}
	return BUY
}

// SignedOrder is an OrderStruct plus its EIP-712 signature
type SignedOrder struct {
	OrderStruct
	Signature string `json:"signature"`
	NegRisk   bool   `json:"-"`
}

// OrderType represents the order time-in-force
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good Till Cancelled
	OrderTypeFOK OrderType = "FOK" // Fill Or Kill
	OrderTypeGTD OrderType = "GTD" // Good Till Date
	OrderTypeFAK OrderType = "FAK" // Fill And Kill
)

// CreateOrderOptions carries what the client needs to know about the market
// before an order can be built. NegRisk must come from the market itself.
type CreateOrderOptions struct {
	Constraints *MarketConstraints
	NegRisk     *bool
	Nonce       int64
}

// PriceLevel is one price/size level of an orderbook side
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBookSummary represents the full orderbook state. After parsing, bids
// are sorted highest first and asks lowest first.
type OrderBookSummary struct {
	Market       string       `json:"market"`
	AssetID      string       `json:"asset_id"`
	Timestamp    string       `json:"timestamp"`
	Hash         string       `json:"hash,omitempty"`
	TickSize     float64      `json:"tick_size,omitempty"`
	MinOrderSize float64      `json:"min_order_size,omitempty"`
	NegRisk      bool         `json:"neg_risk,omitempty"`
	Bids         []PriceLevel `json:"bids"`
	Asks         []PriceLevel `json:"asks"`
}

// OrderResponse is the canonical result of POST /order
type OrderResponse struct {
	Success     bool     `json:"success"`
	ErrorMsg    string   `json:"errorMsg,omitempty"`
	OrderID     string   `json:"orderId"`
	Status      string   `json:"status,omitempty"`
	OrderHashes []string `json:"orderHashes,omitempty"`
}

// CancelResponse is the canonical result of DELETE /order and friends
type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// OpenOrderParams represents parameters for querying open orders
type OpenOrderParams struct {
	ID      string `json:"id,omitempty"`
	Market  string `json:"market,omitempty"`
	AssetID string `json:"asset_id,omitempty"`
}

// OpenOrder is a resting order as listed by GET /data/orders
type OpenOrder struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Market       string    `json:"market"`
	AssetID      string    `json:"asset_id"`
	Side         string    `json:"side"`
	Price        float64   `json:"price"`
	OriginalSize float64   `json:"original_size"`
	SizeMatched  float64   `json:"size_matched"`
	Outcome      string    `json:"outcome,omitempty"`
	MakerAddress string    `json:"maker_address"`
	CreatedAt    time.Time `json:"created_at"`
}

// PositionParams represents parameters for querying positions
type PositionParams struct {
	User   string `json:"user,omitempty"`
	Market string `json:"market,omitempty"`
}

// Position is a conditional-token holding
type Position struct {
	AssetID      string  `json:"asset_id"`
	ConditionID  string  `json:"condition_id"`
	Title        string  `json:"title,omitempty"`
	Outcome      string  `json:"outcome,omitempty"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avg_price"`
	CurPrice     float64 `json:"cur_price"`
	Redeemable   bool    `json:"redeemable"`
	NegRisk      bool    `json:"negative_risk"`
	OutcomeIndex int     `json:"outcome_index"`
}

// AssetType represents the type of asset (collateral or conditional)
type AssetType string

const (
	AssetTypeCollateral  AssetType = "COLLATERAL"
	AssetTypeConditional AssetType = "CONDITIONAL"
)

// BalanceAllowanceParams represents parameters for balance/allowance queries
type BalanceAllowanceParams struct {
	AssetType     AssetType `json:"asset_type,omitempty"`
	TokenID       string    `json:"token_id,omitempty"`
	SignatureType int       `json:"signature_type"`
}

// BalanceAllowance represents balance and allowance amounts in token base units
type BalanceAllowance struct {
	Balance    *big.Int            `json:"balance"`
	Allowances map[string]*big.Int `json:"allowances,omitempty"`
}

// ContractConfig represents smart contract addresses
type ContractConfig struct {
	Exchange          string `json:"exchange"`           // The exchange contract responsible for matching orders
	Collateral        string `json:"collateral"`         // The ERC20 token used as collateral
	ConditionalTokens string `json:"conditional_tokens"` // The ERC1155 conditional tokens contract
	NegRiskAdapter    string `json:"neg_risk_adapter,omitempty"`
}

// GammaMarketsParams represents parameters for gamma markets API
type GammaMarketsParams struct {
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
	Order        string   `json:"order,omitempty"`
	Ascending    *bool    `json:"ascending,omitempty"`
	Slug         []string `json:"slug,omitempty"`
	Active       *bool    `json:"active,omitempty"`
	Closed       *bool    `json:"closed,omitempty"`
	ClobTokenIDs []string `json:"clob_token_ids,omitempty"`
	ConditionIDs []string `json:"condition_ids,omitempty"`
	TagID        int      `json:"tag_id,omitempty"`
}

// GammaMarket represents a market from the gamma API
type GammaMarket struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Question        string    `json:"question"`
	ConditionID     string    `json:"condition_id"`
	ClobTokenIDs    []string  `json:"clob_token_ids"`
	Outcomes        []string  `json:"outcomes"`
	OutcomePrices   []float64 `json:"outcome_prices"`
	Active          bool      `json:"active"`
	Closed          bool      `json:"closed"`
	AcceptingOrders bool      `json:"accepting_orders"`
	EnableOrderBook bool      `json:"enable_order_book"`
	NegRisk         bool      `json:"neg_risk"`
	TickSize        float64   `json:"tick_size"`
	OrderMinSize    float64   `json:"order_min_size"`
	Liquidity       float64   `json:"liquidity"`
	Volume          float64   `json:"volume"`
	EndDate         string    `json:"end_date"`
}

// GammaEventsParams represents parameters for gamma events API
type GammaEventsParams struct {
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Slug   string `json:"slug,omitempty"`
	TagID  int    `json:"tag_id,omitempty"`
	Active *bool  `json:"active,omitempty"`
	Closed *bool  `json:"closed,omitempty"`
	Order  string `json:"order,omitempty"`
}

// GammaEvent represents an event from the gamma API
type GammaEvent struct {
	ID      string        `json:"id"`
	Slug    string        `json:"slug"`
	Title   string        `json:"title"`
	NegRisk bool          `json:"neg_risk"`
	Active  bool          `json:"active"`
	Closed  bool          `json:"closed"`
	Volume  float64       `json:"volume"`
	Markets []GammaMarket `json:"markets"`
}

// KeeperEntry is a near-certain position the harness deliberately keeps out
// of automatic cleanup and liquidation
type KeeperEntry struct {
	TokenID     string    `json:"tokenId"`
	ConditionID string    `json:"conditionId"`
	Question    string    `json:"question"`
	Size        float64   `json:"size"`
	Price       float64   `json:"price"`
	BoughtAt    time.Time `json:"boughtAt"`
}
