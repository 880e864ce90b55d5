package utilities

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func mustParse(t *testing.T, s string) *fastjson.Value {
	t.Helper()
	v, err := fastjson.Parse(s)
	require.NoError(t, err)
	return v
}

func TestStringAlternatives(t *testing.T) {
	v := mustParse(t, `{"orderId":"","orderID":"0xabc","token":71321045679252212594626385532706912750332728571942532289631379312455583992563}`)

	assert.Equal(t, "0xabc", String(v, "orderID", "orderId", "id"))
	assert.Equal(t, "0xabc", String(v, "orderId", "orderID"), "empty values fall through")
	assert.Equal(t, "71321045679252212594626385532706912750332728571942532289631379312455583992563", String(v, "token"))
	assert.Equal(t, "", String(v, "missing"))
	assert.Equal(t, "", String(nil, "x"))
}

func TestFloatAndBool(t *testing.T) {
	v := mustParse(t, `{"a":"0.45","b":12,"c":"x","t":"true","f":false,"n":true}`)

	assert.Equal(t, 0.45, Float(v, "a"))
	assert.Equal(t, 12.0, Float(v, "missing", "b"))
	assert.Equal(t, 0.0, Float(v, "c"))
	assert.Equal(t, int64(12), Int(v, "b"))
	assert.True(t, Bool(v, "t"))
	assert.False(t, Bool(v, "f"))
	assert.True(t, Bool(v, "n"))
}

func TestItems(t *testing.T) {
	assert.Len(t, Items(mustParse(t, `[1,2,3]`)), 3)
	assert.Len(t, Items(mustParse(t, `{"data":[1,2]}`), "data"), 2)
	assert.Nil(t, Items(mustParse(t, `{"data":{}}`), "data"))
}

func TestStringList(t *testing.T) {
	v := mustParse(t, `{"ids":"[\"1\", \"2\"]","plain":["Yes","No"],"nums":"[\"0.25\",\"0.75\"]","bare":"solo"}`)

	assert.Equal(t, []string{"1", "2"}, StringList(v, "ids"))
	assert.Equal(t, []string{"Yes", "No"}, StringList(v, "plain"))
	assert.Equal(t, []float64{0.25, 0.75}, FloatList(v, "nums"))
	assert.Equal(t, []string{"solo"}, StringList(v, "bare"))
	assert.Nil(t, StringList(v, "missing"))
}

func TestTime(t *testing.T) {
	v := mustParse(t, `{"s":1700000000,"ms":"1700000000123","iso":"2024-01-02T03:04:05Z"}`)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), Time(v, "s"))
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), Time(v, "ms"))
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Time(v, "iso"))
	assert.True(t, Time(v, "missing").IsZero())
}

func TestTokenDecimals(t *testing.T) {
	assert.Equal(t, "12.5", FromTokenDecimals(big.NewInt(12_500_000)).String())
	assert.Equal(t, "0", FromTokenDecimals(nil).String())
	assert.Equal(t, "1234567", ToTokenDecimals(decimal.RequireFromString("1.2345665")).String())
}
