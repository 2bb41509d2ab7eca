package workflow

import (
	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

var oneHundred = decimal.NewFromInt(100)

// Deviation is the price-deviation signal between an invoice line's
// unit price and the catalog base price for the resolved unit.
type Deviation struct {
	Percent   decimal.Decimal `json:"percent"`
	Amount    decimal.Decimal `json:"amount"`
	Direction Direction       `json:"direction"`
}

// Indicator returns the arrow glyph the UI renders for this deviation.
// NOTE: the mapping is inverted on purpose — a price increase renders a
// down-pointing arrow and a decrease an up-pointing one. This matches
// the shipped behavior users are trained on; confirm with the product
// owner before "fixing" it.
func (d Deviation) Indicator() string {
	if d.Direction == DirectionIncrease {
		return "▼"
	}
	return "▲"
}

// Tone returns the severity class for rendering: increases are warnings,
// decreases (and no change) are favorable. Same inversion caveat as
// Indicator.
func (d Deviation) Tone() string {
	if d.Direction == DirectionIncrease {
		return "warning"
	}
	return "favorable"
}

// ReconcilePrice computes the deviation of the invoice unit price from
// the catalog base cost. Percent is zero when the catalog cost is not
// positive (nothing meaningful to compare against).
func ReconcilePrice(catalogBaseCost, invoiceUnitPrice decimal.Decimal) Deviation {
	amount := invoiceUnitPrice.Sub(catalogBaseCost)

	percent := decimal.Zero
	if catalogBaseCost.IsPositive() {
		percent = amount.Div(catalogBaseCost).Mul(oneHundred)
	}

	direction := DirectionDecrease
	if amount.IsPositive() {
		direction = DirectionIncrease
	}

	return Deviation{
		Percent:   percent,
		Amount:    amount,
		Direction: direction,
	}
}

// MarginPercent computes the margin threshold from the pre-shift cost
// and the sale price: ((sale - cost) / cost) * 100. The second return
// is false when either side is non-positive, meaning the stored margin
// must stay unchanged.
func MarginPercent(cost, salePrice decimal.Decimal) (decimal.Decimal, bool) {
	if !cost.IsPositive() || !salePrice.IsPositive() {
		return decimal.Zero, false
	}
	return salePrice.Sub(cost).Div(cost).Mul(oneHundred), true
}
