package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/headers"
	"github.com/pooofdevelopment/clob-trader/pkg/signer"
	"github.com/pooofdevelopment/clob-trader/pkg/signing"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testToken   = "71321045679252212594626385532706912750332728571942532289631379312455583992563"
)

var testCreds = types.ApiCreds{
	ApiKey:        "00000000-0000-0000-0000-000000000001",
	ApiSecret:     "cG9seW1hcmtldC10ZXN0LXNlY3JldC0zMi1ieXRlcyE=",
	ApiPassphrase: "passphrase",
}

// fakeExchange is a minimal CLOB that checks L2 signatures on every
// authenticated route.
type fakeExchange struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	routes   map[string]func(w http.ResponseWriter, r *http.Request, body []byte)
	hits     map[string]int
	badSigs  int
	requests []*http.Request
}

func newFakeExchange(t *testing.T) *fakeExchange {
	f := &fakeExchange{
		t:      t,
		routes: make(map[string]func(http.ResponseWriter, *http.Request, []byte)),
		hits:   make(map[string]int),
	}
	f.handle("GET "+types.DERIVE_API_KEY, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		if r.Header.Get(headers.POLY_SIGNATURE) == "" || r.Header.Get(headers.POLY_NONCE) == "" {
			http.Error(w, `{"error":"missing l1 headers"}`, http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]string{
			"apiKey":     testCreds.ApiKey,
			"secret":     testCreds.ApiSecret,
			"passphrase": testCreds.ApiPassphrase,
		})
	})
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeExchange) handle(route string, h func(http.ResponseWriter, *http.Request, []byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

func (f *fakeExchange) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

func (f *fakeExchange) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	route := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.hits[route]++
	f.requests = append(f.requests, r)
	h := f.routes[route]
	if r.Header.Get(headers.POLY_API_KEY) != "" && !validL2(r, body) {
		f.badSigs++
	}
	f.mu.Unlock()

	if h == nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	h(w, r, body)
}

// validL2 recomputes the HMAC over the bare path
func validL2(r *http.Request, body []byte) bool {
	ts, err := strconv.ParseInt(r.Header.Get(headers.POLY_TIMESTAMP), 10, 64)
	if err != nil {
		return false
	}
	want, err := signing.BuildHMACSignature(testCreds.ApiSecret, ts, r.Method, r.URL.Path, string(body))
	return err == nil && want == r.Header.Get(headers.POLY_SIGNATURE)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeExchange, opts ...Option) *ClobClient {
	t.Helper()
	s, err := signer.NewSigner(testKey, types.PolygonChainID)
	require.NoError(t, err)
	c, err := NewClobClient(f.server.URL, types.PolygonChainID, s, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClobClientModes(t *testing.T) {
	l0, err := NewClobClient("https://clob.example.test/", types.PolygonChainID, nil)
	require.NoError(t, err)
	assert.Equal(t, types.L0, l0.Mode())
	assert.Equal(t, "https://clob.example.test", l0.Host())
	assert.Empty(t, l0.GetAddress())

	s, err := signer.NewSigner(testKey, types.PolygonChainID)
	require.NoError(t, err)

	l1, err := NewClobClient("https://clob.example.test", types.PolygonChainID, s)
	require.NoError(t, err)
	assert.Equal(t, types.L1, l1.Mode())
	assert.Equal(t, testAddress, l1.GetAddress())

	creds := testCreds
	l2, err := NewClobClient("https://clob.example.test", types.PolygonChainID, s, WithCredentials(&creds))
	require.NoError(t, err)
	assert.Equal(t, types.L2, l2.Mode())
}

func TestNewClobClientRejectsChains(t *testing.T) {
	_, err := NewClobClient("https://clob.example.test", 1, nil)
	assert.ErrorIs(t, err, clobErrors.ErrInvalidChainID)

	amoy, err := signer.NewSigner(testKey, types.AmoyChainID)
	require.NoError(t, err)
	_, err = NewClobClient("https://clob.example.test", types.PolygonChainID, amoy)
	assert.ErrorIs(t, err, clobErrors.ErrInvalidChainID)
}

func TestLevel0CannotTrade(t *testing.T) {
	f := newFakeExchange(t)
	c, err := NewClobClient(f.server.URL, types.PolygonChainID, nil)
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), types.OrderParams{TokenID: testToken, Side: types.BUY, Price: 50, Size: 10}, nil)
	assert.ErrorIs(t, err, clobErrors.ErrL1AuthUnavailable)

	_, err = c.GetOrders(context.Background(), nil)
	assert.ErrorIs(t, err, clobErrors.ErrL2AuthUnavailable)
	assert.Zero(t, f.count("GET "+types.DERIVE_API_KEY))
}

func TestCredentialsDerivedOnce(t *testing.T) {
	f := newFakeExchange(t)
	f.handle("GET "+types.ORDERS, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]interface{}{"data": []interface{}{}, "next_cursor": types.EndCursor})
	})
	c := newTestClient(t, f)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrders(context.Background(), nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.count("GET "+types.DERIVE_API_KEY))
	assert.Equal(t, types.L2, c.Mode())
	assert.Zero(t, f.badSigs)
}

func TestDeriveFallsBackToCreate(t *testing.T) {
	f := newFakeExchange(t)
	f.handle("GET "+types.DERIVE_API_KEY, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		http.Error(w, `{"error":"Could not derive api key!"}`, http.StatusBadRequest)
	})
	f.handle("POST "+types.CREATE_API_KEY, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]string{
			"apiKey":     testCreds.ApiKey,
			"secret":     testCreds.ApiSecret,
			"passphrase": testCreds.ApiPassphrase,
		})
	})
	f.handle("GET "+types.GET_API_KEYS, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]interface{}{"apiKeys": []string{testCreds.ApiKey}})
	})
	c := newTestClient(t, f)

	keys, err := c.GetApiKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{testCreds.ApiKey}, keys)
	assert.Equal(t, 1, f.count("POST "+types.CREATE_API_KEY))
}

func TestInvalidApiKeyClearsCredentials(t *testing.T) {
	f := newFakeExchange(t)
	calls := 0
	f.handle("GET "+types.ORDERS, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		calls++
		if calls == 1 {
			http.Error(w, `{"error":"Unauthorized/Invalid api key"}`, http.StatusUnauthorized)
			return
		}
		writeJSON(w, []interface{}{})
	})
	stale := types.ApiCreds{ApiKey: "stale", ApiSecret: testCreds.ApiSecret, ApiPassphrase: "old"}
	c := newTestClient(t, f, WithCredentials(&stale))

	_, err := c.GetOrders(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, clobErrors.IsInvalidApiKey(err))
	assert.Equal(t, types.L1, c.Mode())

	_, err = c.GetOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("GET "+types.DERIVE_API_KEY))

	creds, ok := c.Session().Cached()
	require.True(t, ok)
	assert.Equal(t, testCreds.ApiKey, creds.ApiKey)
}

func TestSignedPathExcludesQuery(t *testing.T) {
	f := newFakeExchange(t)
	var rawQuery string
	f.handle("GET "+types.GET_BALANCE_ALLOWANCE, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		rawQuery = r.URL.RawQuery
		writeJSON(w, map[string]interface{}{
			"balance":    "12500000",
			"allowances": map[string]string{"0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E": "115792089237316195423570985008687907853269984665640564039457584007913129639935"},
		})
	})
	c := newTestClient(t, f)

	ba, err := c.GetBalanceAllowance(context.Background(), nil)
	require.NoError(t, err)

	assert.Contains(t, rawQuery, "asset_type=COLLATERAL")
	assert.Contains(t, rawQuery, "signature_type=0")
	assert.Zero(t, f.badSigs)
	assert.Equal(t, "12500000", ba.Balance.String())
	assert.Len(t, ba.Allowances, 1)
}

func TestPostOrderWireFormat(t *testing.T) {
	f := newFakeExchange(t)
	var posted map[string]interface{}
	f.handle("POST "+types.POST_ORDER, func(w http.ResponseWriter, _ *http.Request, body []byte) {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		assert.NoError(t, dec.Decode(&posted))
		writeJSON(w, map[string]interface{}{"success": true, "orderID": "0xabc", "status": "live", "orderHashes": []string{}})
	})
	c := newTestClient(t, f)

	negRisk := false
	order, err := c.CreateOrder(context.Background(),
		types.OrderParams{TokenID: testToken, Side: types.BUY, Price: 50, Size: 10},
		&types.CreateOrderOptions{Constraints: &types.MarketConstraints{TickSize: 0.01, MinOrderSize: 5}, NegRisk: &negRisk})
	require.NoError(t, err)

	resp, err := c.PostOrder(context.Background(), order, types.OrderTypeGTC)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "0xabc", resp.OrderID)
	assert.Zero(t, f.badSigs)

	assert.Equal(t, testCreds.ApiKey, posted["owner"])
	assert.Equal(t, "GTC", posted["orderType"])

	wire := posted["order"].(map[string]interface{})
	salt, ok := wire["salt"].(json.Number)
	require.True(t, ok, "salt must be a JSON number")
	assert.Equal(t, order.Salt, salt.String())
	assert.Equal(t, "BUY", wire["side"])
	assert.Equal(t, json.Number("0"), wire["signatureType"])
	assert.Equal(t, "5000000", wire["makerAmount"])
	assert.Equal(t, "10000000", wire["takerAmount"])
	assert.Equal(t, testAddress, wire["maker"])
	assert.Equal(t, types.ZeroAddress, wire["taker"])
}

func TestPostOrderRejected(t *testing.T) {
	f := newFakeExchange(t)
	f.handle("POST "+types.POST_ORDER, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]interface{}{"success": false, "errorMsg": "not enough balance / allowance"})
	})
	creds := testCreds
	c := newTestClient(t, f, WithCredentials(&creds))

	negRisk := true
	order, err := c.CreateOrder(context.Background(),
		types.OrderParams{TokenID: testToken, Side: types.SELL, Price: 42, Size: 5},
		&types.CreateOrderOptions{Constraints: &types.MarketConstraints{TickSize: 0.01, MinOrderSize: 5}, NegRisk: &negRisk})
	require.NoError(t, err)

	resp, err := c.PostOrder(context.Background(), order, types.OrderTypeGTC)
	var rejected *clobErrors.OrderRejectedError
	require.True(t, stderrors.As(err, &rejected))
	assert.Equal(t, "not enough balance / allowance", rejected.Message)
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
}

func TestCreateOrderFetchesMarketInfo(t *testing.T) {
	f := newFakeExchange(t)
	f.handle("GET "+types.GET_TICK_SIZE, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]interface{}{"minimum_tick_size": 0.001})
	})
	f.handle("GET "+types.GET_ORDER_BOOK, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]interface{}{"asset_id": testToken, "bids": []interface{}{}, "asks": []interface{}{}, "min_order_size": "5"})
	})
	f.handle("GET "+types.GET_NEG_RISK, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]interface{}{"neg_risk": true})
	})
	c := newTestClient(t, f)

	order, err := c.CreateOrder(context.Background(), types.OrderParams{TokenID: testToken, Side: types.BUY, Price: 1.5, Size: 10}, nil)
	require.NoError(t, err)
	assert.True(t, order.NegRisk)

	domain, err := signing.OrderDomain(types.PolygonChainID, true)
	require.NoError(t, err)
	hash, err := signing.HashOrder(order.OrderStruct, domain)
	require.NoError(t, err)
	sig, err := hexutil.Decode(order.Signature)
	require.NoError(t, err)
	sig[64] -= 27
	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, testAddress, crypto.PubkeyToAddress(*pub).Hex())

	// cached on the second order
	_, err = c.CreateOrder(context.Background(), types.OrderParams{TokenID: testToken, Side: types.BUY, Price: 2, Size: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("GET "+types.GET_NEG_RISK))
	assert.Equal(t, 1, f.count("GET "+types.GET_TICK_SIZE))
}

func TestCreateOrderNegRiskFailurePropagates(t *testing.T) {
	f := newFakeExchange(t)
	f.handle("GET "+types.GET_NEG_RISK, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	})
	c := newTestClient(t, f)

	_, err := c.CreateOrder(context.Background(),
		types.OrderParams{TokenID: testToken, Side: types.BUY, Price: 50, Size: 10},
		&types.CreateOrderOptions{Constraints: &types.MarketConstraints{TickSize: 0.01, MinOrderSize: 5}})
	assert.ErrorIs(t, err, clobErrors.ErrNegRiskUnknown)
}

func TestCreateOrderValidationError(t *testing.T) {
	f := newFakeExchange(t)
	c := newTestClient(t, f)

	negRisk := false
	_, err := c.CreateOrder(context.Background(),
		types.OrderParams{TokenID: testToken, Side: types.BUY, Price: 150, Size: 1},
		&types.CreateOrderOptions{Constraints: &types.MarketConstraints{TickSize: 0.01, MinOrderSize: 5}, NegRisk: &negRisk})

	var verr *clobErrors.ValidationError
	require.True(t, stderrors.As(err, &verr))
	assert.Contains(t, verr.Errors, "Minimum order size is 5 shares")
	assert.Empty(t, f.requests)
}

func TestGetOrdersFollowsCursor(t *testing.T) {
	f := newFakeExchange(t)
	var cursors []string
	f.handle("GET "+types.ORDERS, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		cursor := r.URL.Query().Get("next_cursor")
		cursors = append(cursors, cursor)
		switch cursor {
		case types.StartCursor:
			writeJSON(w, map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": "0x1", "side": "buy", "price": "0.45", "original_size": "10", "size_matched": "0", "asset_id": testToken},
					{"id": "0x2", "side": "SELL", "price": "0.55", "original_size": "5", "size_matched": "1"},
				},
				"next_cursor": "MTAw",
			})
		default:
			writeJSON(w, map[string]interface{}{
				"data":        []map[string]interface{}{{"id": "0x3", "side": "BUY", "price": 0.4, "original_size": 7}},
				"next_cursor": types.EndCursor,
			})
		}
	})
	creds := testCreds
	c := newTestClient(t, f, WithCredentials(&creds))

	orders, err := c.GetOrders(context.Background(), &types.OpenOrderParams{AssetID: testToken})
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, []string{types.StartCursor, "MTAw"}, cursors)
	assert.Equal(t, "BUY", orders[0].Side)
	assert.InDelta(t, 0.45, orders[0].Price, 1e-9)
	assert.InDelta(t, 1.0, orders[1].SizeMatched, 1e-9)
	assert.Zero(t, f.badSigs)
}

func TestCancelEndpoints(t *testing.T) {
	f := newFakeExchange(t)
	var cancelBody, batchBody []byte
	f.handle("DELETE "+types.CANCEL, func(w http.ResponseWriter, _ *http.Request, body []byte) {
		cancelBody = body
		writeJSON(w, map[string]interface{}{"canceled": []string{"0x1"}, "not_canceled": map[string]string{}})
	})
	f.handle("DELETE "+types.CANCEL_ORDERS, func(w http.ResponseWriter, _ *http.Request, body []byte) {
		batchBody = body
		writeJSON(w, map[string]interface{}{"canceled": []string{"0x1"}, "not_canceled": map[string]string{"0x2": "order already matched"}})
	})
	f.handle("DELETE "+types.CANCEL_ALL, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]interface{}{"canceled": []string{}})
	})
	creds := testCreds
	c := newTestClient(t, f, WithCredentials(&creds))
	ctx := context.Background()

	resp, err := c.Cancel(ctx, "0x1")
	require.NoError(t, err)
	assert.Equal(t, []string{"0x1"}, resp.Canceled)
	assert.JSONEq(t, `{"orderID":"0x1"}`, string(cancelBody))

	resp, err = c.CancelOrders(ctx, []string{"0x1", "0x2"})
	require.NoError(t, err)
	assert.Equal(t, "order already matched", resp.NotCanceled["0x2"])
	assert.JSONEq(t, `["0x1","0x2"]`, string(batchBody))

	resp, err = c.CancelAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.Canceled)
	assert.Zero(t, f.badSigs)
}

func TestGetPositionsDefaultsToWallet(t *testing.T) {
	f := newFakeExchange(t)
	var user string
	f.handle("GET "+types.POSITIONS, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		user = r.URL.Query().Get("user")
		writeJSON(w, []map[string]interface{}{
			{"asset": testToken, "conditionId": "0xc0", "size": 12.5, "avgPrice": 0.97, "curPrice": 0.99, "outcome": "Yes", "negativeRisk": true},
		})
	})
	creds := testCreds
	c := newTestClient(t, f, WithCredentials(&creds))

	positions, err := c.GetPositions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, testAddress, user)
	assert.Equal(t, testToken, positions[0].AssetID)
	assert.True(t, positions[0].NegRisk)
	assert.InDelta(t, 12.5, positions[0].Size, 1e-9)
}

func TestEstimateMarketOrder(t *testing.T) {
	f := newFakeExchange(t)
	f.handle("GET "+types.GET_ORDER_BOOK, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSON(w, map[string]interface{}{
			"asset_id": testToken,
			"bids":     []map[string]string{{"price": "0.40", "size": "100"}, {"price": "0.45", "size": "50"}},
			"asks":     []map[string]string{{"price": "0.60", "size": "100"}, {"price": "0.55", "size": "50"}},
		})
	})
	c := newTestClient(t, f)

	est, err := c.EstimateMarketOrder(context.Background(), testToken, types.BUY, 100)
	require.NoError(t, err)
	assert.False(t, est.Partial)
	assert.InDelta(t, 57.5, est.AvgPrice, 1e-9)
	assert.InDelta(t, 60.0, est.WorstPrice, 1e-9)

	est, err = c.EstimateMarketOrder(context.Background(), testToken, types.SELL, 500)
	require.NoError(t, err)
	assert.True(t, est.Partial)
	assert.InDelta(t, 150.0, est.FilledSize, 1e-9)

	_, err = c.EstimateMarketOrder(context.Background(), testToken, "HOLD", 1)
	assert.ErrorIs(t, err, clobErrors.ErrInvalidSide)
}

func TestGetOrderBookMissing(t *testing.T) {
	f := newFakeExchange(t)
	c := newTestClient(t, f)

	_, err := c.GetOrderBook(context.Background(), "unknown")
	assert.ErrorIs(t, err, clobErrors.ErrNoOrderbook)
}

func TestServerTimeAndOk(t *testing.T) {
	f := newFakeExchange(t)
	f.handle("GET /", func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		_, _ = io.WriteString(w, `"OK"`)
	})
	f.handle("GET "+types.TIME, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		_, _ = io.WriteString(w, "1700000000")
	})
	c := newTestClient(t, f)

	ok, err := c.GetOk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", ok)

	ts, err := c.GetServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts.Unix())
}

func TestSetSignerDropsCredentials(t *testing.T) {
	f := newFakeExchange(t)
	creds := testCreds
	c := newTestClient(t, f, WithCredentials(&creds))
	require.Equal(t, types.L2, c.Mode())

	other, err := signer.NewSigner("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d", types.PolygonChainID)
	require.NoError(t, err)
	require.NoError(t, c.SetSigner(other))
	assert.Equal(t, types.L1, c.Mode())
	assert.Equal(t, other.Address(), c.GetAddress())

	require.NoError(t, c.SetSigner(nil))
	assert.Equal(t, types.L0, c.Mode())
}

func TestNewMarketPoolUsesWSHost(t *testing.T) {
	c, err := NewClobClient("https://clob.example.test", types.PolygonChainID, nil, WithWSHost("wss://ws.example.test"))
	require.NoError(t, err)

	p := c.NewMarketPool()
	defer p.Close()
	assert.False(t, p.Connected())
	assert.Zero(t, p.Subscribers())
}
