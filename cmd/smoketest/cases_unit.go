package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pooofdevelopment/clob-trader/pkg/orderbook"
	"github.com/pooofdevelopment/clob-trader/pkg/orderbuilder"
	"github.com/pooofdevelopment/clob-trader/pkg/signer"
	"github.com/pooofdevelopment/clob-trader/pkg/signing"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
	"github.com/pooofdevelopment/clob-trader/pkg/validation"
)

func unitCases() []Case {
	return []Case{
		{ID: "amounts", Name: "maker/taker amounts", Kind: KindUnit, Run: unitAmounts},
		{ID: "grid", Name: "tick grid validation", Kind: KindUnit, Run: unitGrid},
		{ID: "hmac", Name: "L2 HMAC vector", Kind: KindUnit, Run: unitHMAC},
		{ID: "sign", Name: "EIP-712 sign and recover", Kind: KindUnit, Run: unitSign},
		{ID: "depth", Name: "orderbook depth walk", Kind: KindUnit, Run: unitDepth},
	}
}

func unitAmounts(context.Context, *Env) (string, error) {
	vectors := []struct {
		price, size  float64
		side         string
		maker, taker string
	}{
		{50, 10, types.BUY, "5000000", "10000000"},
		{50, 10, types.SELL, "10000000", "5000000"},
		{1.5, 5, types.BUY, "75000", "5000000"},
		{33, 0.29, types.BUY, "95700", "290000"},
	}
	for _, v := range vectors {
		maker, taker := orderbuilder.CalculateAmounts(v.price, v.size, v.side)
		if maker != v.maker || taker != v.taker {
			return "", fmt.Errorf("%s %v@%v: got %s/%s want %s/%s", v.side, v.size, v.price, maker, taker, v.maker, v.taker)
		}
	}
	return fmt.Sprintf("%d vectors", len(vectors)), nil
}

func unitGrid(context.Context, *Env) (string, error) {
	fine := &types.MarketConstraints{TickSize: 0.001, MinOrderSize: 5}
	cases := []struct {
		params types.OrderParams
		c      *types.MarketConstraints
		valid  bool
	}{
		{types.OrderParams{TokenID: "1", Side: types.BUY, Price: 50, Size: 5}, nil, true},
		{types.OrderParams{TokenID: "1", Side: types.BUY, Price: 50.5, Size: 5}, nil, false},
		{types.OrderParams{TokenID: "1", Side: types.BUY, Price: 1.5, Size: 5}, fine, true},
		{types.OrderParams{TokenID: "1", Side: types.BUY, Price: 1.15, Size: 5}, fine, false},
		{types.OrderParams{TokenID: "1", Side: types.SELL, Price: 99.5, Size: 5}, nil, false},
		{types.OrderParams{TokenID: "1", Side: types.SELL, Price: 20, Size: 4.99}, nil, false},
	}
	for i, tc := range cases {
		res := validation.ValidateOrderParams(tc.params, tc.c)
		if res.Valid != tc.valid {
			return "", fmt.Errorf("case %d: valid=%v errors=%s", i, res.Valid, strings.Join(res.Errors, "; "))
		}
	}
	if got := validation.SnapToTick(1.149, 0.001); math.Abs(got-1.1) > 1e-9 {
		return "", fmt.Errorf("snap 1.149 on 0.1c grid: got %v", got)
	}
	return fmt.Sprintf("%d rules", len(cases)), nil
}

func unitHMAC(context.Context, *Env) (string, error) {
	const want = "w5-NSgXC8a1XbHobNIYFiQuoIaX18U-Wzigy8w6Uq5U="
	got, err := signing.BuildHMACSignature("cG9seW1hcmtldC10ZXN0LXNlY3JldC0zMi1ieXRlcyE=", 1700000000, "POST", "/order", `{"orderType":"GTC"}`)
	if err != nil {
		return "", err
	}
	if got != want {
		return "", fmt.Errorf("got %s want %s", got, want)
	}
	return "matches reference", nil
}

func unitSign(context.Context, *Env) (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	s, err := signer.NewSigner(hexutil.Encode(crypto.FromECDSA(key)), types.PolygonChainID)
	if err != nil {
		return "", err
	}

	for _, negRisk := range []bool{false, true} {
		order, err := orderbuilder.NewOrderBuilder(s).CreateOrder(
			types.OrderParams{TokenID: "1234", Side: types.BUY, Price: 42, Size: 10}, nil, negRisk, 0)
		if err != nil {
			return "", err
		}
		domain, err := signing.OrderDomain(types.PolygonChainID, negRisk)
		if err != nil {
			return "", err
		}
		hash, err := signing.HashOrder(order.OrderStruct, domain)
		if err != nil {
			return "", err
		}
		sig, err := hexutil.Decode(order.Signature)
		if err != nil {
			return "", err
		}
		sig[64] -= 27
		pub, err := crypto.SigToPub(hash, sig)
		if err != nil {
			return "", err
		}
		if got := crypto.PubkeyToAddress(*pub).Hex(); got != s.Address() {
			return "", fmt.Errorf("negRisk=%v recovered %s want %s", negRisk, got, s.Address())
		}
	}
	return "both exchange domains recover", nil
}

func unitDepth(context.Context, *Env) (string, error) {
	asks := []types.PriceLevel{{Price: 55, Size: 50}, {Price: 60, Size: 100}}
	res := orderbook.WalkOrderbookDepth(asks, 100)
	if math.Abs(res.AvgPrice-57.5) > 1e-9 || !res.Complete(100) {
		return "", fmt.Errorf("full walk: %+v", res)
	}
	partial := orderbook.WalkOrderbookDepth(asks, 500)
	if partial.Complete(500) || partial.FilledSize != 150 {
		return "", fmt.Errorf("partial walk: %+v", partial)
	}
	if asks[0].Size != 50 {
		return "", fmt.Errorf("input mutated")
	}
	return "avg 57.5c, partial 150/500", nil
}
