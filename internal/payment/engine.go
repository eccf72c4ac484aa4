package payment

import (
	"errors"
	"fmt"

	"github.com/noah-isme/backend-pos/internal/money"
)

var (
	// ErrInvalidAmount is returned for tenders of zero or negative amount.
	ErrInvalidAmount = errors.New("tender amount must be positive")
	// ErrOverPayment is returned when a tender exceeds the remaining balance
	// beyond the epsilon tolerance. Change-making is not supported at the
	// engine level.
	ErrOverPayment = errors.New("tender exceeds remaining balance")
	// ErrNotFullyPaid is returned by Finalize gates while the tendered total
	// does not match the grand total.
	ErrNotFullyPaid = errors.New("sale is not fully paid")
	// ErrTenderNotFound indicates the tender index is out of range.
	ErrTenderNotFound = errors.New("tender not found")
)

// Tender is one payment instrument applied toward the sale.
type Tender struct {
	MethodRef string
	Amount    money.Money
	Note      string
}

// Set accumulates tenders against a target total. Not safe for concurrent
// use; the owning sale serialises access.
type Set struct {
	grandTotal money.Money
	tenders    []Tender
}

// NewSet builds an empty payment set for the given target total.
func NewSet(grandTotal money.Money) *Set {
	return &Set{grandTotal: grandTotal}
}

// SetGrandTotal updates the target after the cart changed. Existing tenders
// are kept; the caller decides whether a now-overpaying set should be edited.
func (s *Set) SetGrandTotal(total money.Money) {
	s.grandTotal = total
}

// GrandTotal returns the current target total.
func (s *Set) GrandTotal() money.Money {
	return s.grandTotal
}

// Tenders returns the tenders in insertion order.
func (s *Set) Tenders() []Tender {
	return s.tenders
}

// Paid returns the sum of all tender amounts.
func (s *Set) Paid() money.Money {
	total := money.Zero()
	for _, t := range s.tenders {
		total = total.Add(t.Amount)
	}
	return total
}

// Remaining returns grandTotal minus the paid amount, rounded.
func (s *Set) Remaining() money.Money {
	return money.Round(s.grandTotal.Sub(s.Paid()))
}

// SuggestedAmount proposes the next tender's default amount: exactly what
// remains, floored at zero.
func (s *Set) SuggestedAmount() money.Money {
	return money.ClampNonNegative(s.Remaining())
}

// Add appends a tender after validating it. The set is unchanged on error.
func (s *Set) Add(methodRef string, amount money.Money, note string) error {
	if methodRef == "" {
		return fmt.Errorf("payment method required: %w", ErrInvalidAmount)
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if money.GreaterThan(amount, s.Remaining()) {
		return fmt.Errorf("%w: remaining %s", ErrOverPayment, s.Remaining())
	}
	s.tenders = append(s.tenders, Tender{MethodRef: methodRef, Amount: amount, Note: note})
	return nil
}

// Remove deletes the tender at the given index.
func (s *Set) Remove(index int) error {
	if index < 0 || index >= len(s.tenders) {
		return ErrTenderNotFound
	}
	s.tenders = append(s.tenders[:index], s.tenders[index+1:]...)
	return nil
}

// CanFinalize reports whether the sale may complete: at least one tender and
// a remaining balance within epsilon of zero.
func (s *Set) CanFinalize() bool {
	return len(s.tenders) > 0 && money.IsNearlyZero(s.Remaining())
}

// Clear discards all tenders, e.g. after a successful finalize or an abort.
func (s *Set) Clear() {
	s.tenders = nil
}
