package orderbuilder

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// CalculateAmounts converts a cent price and share size into the maker and
// taker amounts of the on-chain order, in token base units.
//
// Inputs are rounded onto their grids (hundredths of a share, tenths of a
// cent) in decimal and scaled on big integers, so no size overflows. Inputs
// are not checked beyond that; run validation first. Non-finite inputs yield
// zero amounts.
func CalculateAmounts(priceCents, size float64, side string) (makerAmount, takerAmount string) {
	if !finite(priceCents) || !finite(size) {
		return "0", "0"
	}
	sharesInt := decimal.NewFromFloat(size).Shift(2).Round(0).BigInt()
	priceTenths := decimal.NewFromFloat(priceCents).Shift(1).Round(0).BigInt()

	shares := new(big.Int).Mul(sharesInt, big.NewInt(types.ShareUnitScale))

	usdc := new(big.Int).Mul(priceTenths, sharesInt)
	usdc.Mul(usdc, big.NewInt(types.UsdcUnitScale))

	if side == types.SELL {
		return shares.String(), usdc.String()
	}
	return usdc.String(), shares.String()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
