package types

const (
	// Zero address used for public orders
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// Order sides
	BUY  = "BUY"
	SELL = "SELL"

	// Client modes
	L0 = 0 // Level 0: No authentication
	L1 = 1 // Level 1: Private key authentication
	L2 = 2 // Level 2: API key authentication

	// Error messages
	L1AuthUnavailable = "Level 1 Authentication Unavailable"
	L2AuthUnavailable = "Level 2 Authentication Unavailable"

	// Cursor constants
	StartCursor = "MA=="
	EndCursor   = "LTE="
)

// Chain IDs
const (
	PolygonChainID = 137
	AmoyChainID    = 80002
)

// Order grid defaults applied when a market does not report its own constraints
const (
	DefaultTickSize     = 0.01
	DefaultMinOrderSize = 5.0
	MaxPriceCents       = 99.0
)

// Base unit scaling. Shares are carried with 2 decimals and scaled by 10^4,
// USDC is carried in tenths of a cent times hundredths of a share, scaled by 10.
const (
	ShareDecimals    = 2
	ShareUnitScale   = 10_000
	UsdcUnitScale    = 10
	TokenDecimals    = 6
	TokenUnitsPerOne = 1_000_000
)
