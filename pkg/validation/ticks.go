package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

const (
	priceTolerance = 1e-9
	sizeTolerance  = 1e-8
)

// Result is the outcome of ValidateOrderParams. Every rule is evaluated, so
// Errors lists all failures in rule order.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// TickSizeToCents converts a tick size expressed as a fraction of $1 into cents
func TickSizeToCents(tickSize float64) float64 {
	// trim float noise such as 0.1000000000000000055
	return math.Round(tickSize*100*1e10) / 1e10
}

// SnapToTick rounds a cent price to the nearest point of the tick grid
func SnapToTick(priceCents, tickSize float64) float64 {
	tickCents := TickSizeToCents(tickSize)
	if tickCents <= 0 {
		return priceCents
	}
	return math.Round(priceCents/tickCents) * tickCents
}

// TickSizePriceDecimals is the number of decimal cent places a price on this
// grid needs: 0 for a 1c tick, 1 for 0.1c, and so on.
func TickSizePriceDecimals(tickSize float64) int {
	tickCents := TickSizeToCents(tickSize)
	if tickCents >= 1 {
		return 0
	}
	return int(math.Ceil(-math.Log10(tickCents + 1e-15)))
}

// FormatPriceCents renders a cent price with the decimals its grid allows
func FormatPriceCents(priceCents, tickSize float64) string {
	return strconv.FormatFloat(priceCents, 'f', TickSizePriceDecimals(tickSize), 64)
}

// ValidateOrderParams checks an order against the market grid. Constraints may
// be nil, in which case the 1c tick and 5 share minimum apply.
func ValidateOrderParams(params types.OrderParams, constraints *types.MarketConstraints) Result {
	c := constraints.WithDefaults()
	tickCents := TickSizeToCents(c.TickSize)

	var errs []string

	if strings.TrimSpace(params.TokenID) == "" {
		errs = append(errs, "Token ID is required")
	}

	if math.IsNaN(params.Price) || params.Price < tickCents || params.Price > types.MaxPriceCents {
		errs = append(errs, fmt.Sprintf("Price must be between %s and %s cents",
			formatCents(tickCents), formatCents(types.MaxPriceCents)))
	} else if math.Abs(params.Price-SnapToTick(params.Price, c.TickSize)) > priceTolerance {
		if tickCents >= 1 {
			errs = append(errs, "Price must be a whole number of cents")
		} else {
			errs = append(errs, fmt.Sprintf("Price must be in %s cent increments", formatCents(tickCents)))
		}
	}

	if math.IsNaN(params.Size) || params.Size <= 0 {
		errs = append(errs, "Size must be greater than 0")
	}

	if math.IsNaN(params.Size) || params.Size < c.MinOrderSize {
		errs = append(errs, fmt.Sprintf("Minimum order size is %s shares", formatCents(c.MinOrderSize)))
	}

	if math.IsInf(params.Size, 0) {
		errs = append(errs, "Size must be a finite number")
	} else if !math.IsNaN(params.Size) {
		hundredths := math.Round(params.Size * 100)
		if math.Abs(params.Size-hundredths/100) > sizeTolerance {
			errs = append(errs, "Size must be in increments of 0.01 shares")
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func formatCents(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
