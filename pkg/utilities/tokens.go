package utilities

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// FromTokenDecimals converts base units of a 6-decimal token into a decimal
func FromTokenDecimals(amount *big.Int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -types.TokenDecimals)
}

// ToTokenDecimals converts a whole-token amount into base units, rounding
// half away from zero.
func ToTokenDecimals(amount decimal.Decimal) *big.Int {
	return amount.Shift(types.TokenDecimals).Round(0).BigInt()
}
