package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/money"
)

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	// DiscountPercent treats the value as a percentage of the unit price
	// (line) or subtotal (global).
	DiscountPercent DiscountKind = "percent"
	// DiscountAmount treats the value as a flat currency amount.
	DiscountAmount DiscountKind = "amount"
)

// Valid reports whether the kind is one of the supported variants.
func (k DiscountKind) Valid() bool {
	return k == DiscountPercent || k == DiscountAmount
}

// Discount pairs a non-negative value with its interpretation.
type Discount struct {
	Value money.Money
	Kind  DiscountKind
}

// Line describes a line item used for pricing calculation.
type Line struct {
	Qty       int
	UnitPrice money.Money
	Discount  Discount
}

// DiscountAmount resolves the per-unit discount for the line. Negative
// configured values are clamped to zero; percentage discounts are deliberately
// NOT capped at 100%, so a discount above 100% yields a negative effective
// unit price, matching the behaviour of the admin surface this engine backs.
func (l Line) DiscountAmount() money.Money {
	value := money.ClampNonNegative(l.Discount.Value)
	if l.Discount.Kind == DiscountPercent {
		return l.UnitPrice.Mul(value).Div(decimal.NewFromInt(100))
	}
	return value
}

// Subtotal computes the rounded line subtotal from the current unit price,
// quantity and discount. Pure; recomputed on every mutation.
func (l Line) Subtotal() money.Money {
	if l.Qty <= 0 {
		return money.Zero()
	}
	effective := l.UnitPrice.Sub(l.DiscountAmount())
	return money.Round(effective.Mul(decimal.NewFromInt(int64(l.Qty))))
}

// Summary aggregates computed sale totals.
type Summary struct {
	Subtotal       money.Money
	DiscountAmount money.Money
	TaxableBase    money.Money
	TaxAmount      money.Money
	Shipping       money.Money
	GrandTotal     money.Money
}

// Compute derives sale totals from the provided lines and global adjustments.
// taxRate is a fraction (0.21 for 21%). The taxable base never goes negative:
// a global discount larger than the subtotal clamps it to zero.
func Compute(lines []Line, global Discount, taxRate money.Money, shipping money.Money) Summary {
	var subtotal money.Money = decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	discount := money.ClampNonNegative(global.Value)
	if global.Kind == DiscountPercent {
		discount = subtotal.Mul(discount).Div(decimal.NewFromInt(100))
	}
	discount = money.Round(discount)

	taxable := money.ClampNonNegative(subtotal.Sub(discount))
	tax := money.Round(taxable.Mul(taxRate))
	if shipping.IsNegative() {
		shipping = decimal.Zero
	}
	total := money.Round(taxable.Add(tax).Add(shipping))

	return Summary{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableBase:    taxable,
		TaxAmount:      tax,
		Shipping:       shipping,
		GrandTotal:     total,
	}
}
