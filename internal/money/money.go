package money

import "github.com/shopspring/decimal"

// Money represents a monetary value with fixed decimal precision.
type Money = decimal.Decimal

// epsilon is the tolerance below which two amounts are considered equal.
// Every monetary equality decision in the service goes through NearlyEqual;
// nothing compares amounts directly.
var epsilon = decimal.New(1, -3) // 0.001

// Zero returns the zero amount.
func Zero() Money {
	return decimal.Zero
}

// New builds an amount from an integer value scaled by 10^exp,
// e.g. New(2178, -2) == 21.78.
func New(value int64, exp int32) Money {
	return decimal.New(value, exp)
}

// FromFloat converts a float into an amount. Inputs are expected to carry at
// most a handful of decimal places; callers round before comparing.
func FromFloat(f float64) Money {
	return decimal.NewFromFloat(f)
}

// FromInt converts an integer number of currency units.
func FromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

// Round normalises an amount to 2 decimal places using round-half-away-from-
// zero, the conventional "half up" for non-negative currency amounts. All
// totals, taxes and denomination sums apply this same rule.
func Round(m Money) Money {
	return m.Round(2)
}

// NearlyEqual reports whether a and b differ by no more than the epsilon
// tolerance (0.001 currency units), absorbing representation error from
// upstream float inputs.
func NearlyEqual(a, b Money) bool {
	return a.Sub(b).Abs().Cmp(epsilon) <= 0
}

// IsNearlyZero reports whether m is within epsilon of zero.
func IsNearlyZero(m Money) bool {
	return m.Abs().Cmp(epsilon) <= 0
}

// GreaterThan reports whether a exceeds b by more than epsilon. It is the
// strict counterpart of NearlyEqual used for overpayment and surplus checks.
func GreaterThan(a, b Money) bool {
	return a.Sub(b).Cmp(epsilon) > 0
}

// ClampNonNegative returns m, or zero when m is negative.
func ClampNonNegative(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}
