package gamma

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

const marketJSON = `{
	"id": "512345",
	"slug": "will-it-rain",
	"question": "Will it rain tomorrow?",
	"conditionId": "0xc0ffee",
	"clobTokenIds": "[\"111\", \"222\"]",
	"outcomes": "[\"Yes\", \"No\"]",
	"outcomePrices": "[\"0.985\", \"0.015\"]",
	"active": true,
	"closed": false,
	"acceptingOrders": true,
	"enableOrderBook": true,
	"orderPriceMinTickSize": 0.001,
	"orderMinSize": 5,
	"liquidityNum": 1234.5,
	"volume": "98765.4321"
}`

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestParseMarketStringifiedFields(t *testing.T) {
	markets, err := ParseMarkets([]byte("[" + marketJSON + "]"))
	require.NoError(t, err)
	require.Len(t, markets, 1)

	m := markets[0]
	assert.Equal(t, []string{"111", "222"}, m.ClobTokenIDs)
	assert.Equal(t, []string{"Yes", "No"}, m.Outcomes)
	assert.Equal(t, []float64{0.985, 0.015}, m.OutcomePrices)
	assert.Equal(t, 0.001, m.TickSize)
	assert.Equal(t, 98765.4321, m.Volume)
	assert.True(t, Tradable(m))
}

func TestParseEventInheritsNegRisk(t *testing.T) {
	events, err := ParseEvents([]byte(`[{"id":"9","slug":"election","title":"Election","negRisk":true,
		"markets":[` + marketJSON + `,{"id":"2","negRisk":false,"clobTokenIds":["333"]}]}]`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Markets, 2)

	assert.True(t, events[0].Markets[0].NegRisk)
	assert.False(t, events[0].Markets[1].NegRisk)
	assert.Equal(t, []string{"333"}, events[0].Markets[1].ClobTokenIDs)
}

func TestGetMarketByToken(t *testing.T) {
	var query url.Values
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, types.GAMMA_MARKETS, r.URL.Path)
		query = r.URL.Query()
		_, _ = io.WriteString(w, "["+marketJSON+"]")
	})

	m, err := c.GetMarketByToken(context.Background(), "222")
	require.NoError(t, err)
	assert.Equal(t, "will-it-rain", m.Slug)
	assert.Equal(t, "222", query.Get("clob_token_ids"))

	_, err = c.GetMarketByToken(context.Background(), "999")
	assert.ErrorIs(t, err, ErrMarketNotFound)
}

func TestGetEvent(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, types.GAMMA_EVENTS, r.URL.Path)
		if r.URL.Query().Get("slug") == "election" {
			_, _ = io.WriteString(w, `[{"id":"9","slug":"election","title":"Election","markets":[]}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	ev, err := c.GetEvent(context.Background(), "election")
	require.NoError(t, err)
	assert.Equal(t, "Election", ev.Title)

	_, err = c.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListMarketsQuery(t *testing.T) {
	var query url.Values
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = io.WriteString(w, `[]`)
	})

	active, closed := true, false
	_, err := c.ListMarkets(context.Background(), &types.GammaMarketsParams{Limit: 20, Active: &active, Closed: &closed, Order: "volume"})
	require.NoError(t, err)
	assert.Equal(t, "20", query.Get("limit"))
	assert.Equal(t, "true", query.Get("active"))
	assert.Equal(t, "false", query.Get("closed"))
	assert.Equal(t, "volume", query.Get("order"))
}

func TestMarketConstraintsDefaults(t *testing.T) {
	got := MarketConstraints(types.GammaMarket{})
	assert.Equal(t, types.DefaultTickSize, got.TickSize)
	assert.Equal(t, types.DefaultMinOrderSize, got.MinOrderSize)

	got = MarketConstraints(types.GammaMarket{TickSize: 0.001, OrderMinSize: 15})
	assert.Equal(t, 0.001, got.TickSize)
	assert.Equal(t, 15.0, got.MinOrderSize)
}
