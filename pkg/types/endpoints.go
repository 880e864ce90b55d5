package types

// CLOB API endpoints
const (
	TIME = "/time"

	// Auth endpoints
	CREATE_API_KEY = "/auth/api-key"
	GET_API_KEYS   = "/auth/api-keys"
	DELETE_API_KEY = "/auth/api-key"
	DERIVE_API_KEY = "/auth/derive-api-key"

	// Trading data endpoints
	ORDERS    = "/data/orders"
	GET_ORDER = "/data/order/"
	POSITIONS = "/data/positions"

	// Order management endpoints
	POST_ORDER    = "/order"
	CANCEL        = "/order"
	CANCEL_ORDERS = "/orders"
	CANCEL_ALL    = "/cancel-all"

	// Book and pricing endpoints
	GET_ORDER_BOOK = "/book"
	MID_POINT      = "/midpoint"
	PRICE          = "/price"

	// Balance and allowance endpoints
	GET_BALANCE_ALLOWANCE    = "/balance-allowance"
	UPDATE_BALANCE_ALLOWANCE = "/balance-allowance/update"

	// Market info endpoints
	GET_TICK_SIZE = "/tick-size"
	GET_NEG_RISK  = "/neg-risk"
)

// Gamma metadata API endpoints
const (
	GAMMA_EVENTS  = "/events"
	GAMMA_MARKETS = "/markets"
)

// Websocket channels
const (
	WS_MARKET_CHANNEL = "market"
	WS_USER_CHANNEL   = "user"
)
