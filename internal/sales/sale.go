package sales

import (
	"sync"
	"time"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/payment"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Sale is one in-flight point-of-sale transaction: a stock-gated cart plus
// the tenders applied against its running total. Sales live in memory until
// finalized or aborted; the order collaborator owns the persisted document.
type Sale struct {
	mu        sync.Mutex
	finalized bool

	ID          string
	CustomerRef string
	LocationRef string
	Notes       string
	CreatedAt   time.Time

	Cart           *cart.Cart
	Payments       *payment.Set
	GlobalDiscount pricing.Discount
	Shipping       money.Money
}

func newSale(id, customerRef, locationRef string, now time.Time) *Sale {
	return &Sale{
		ID:          id,
		CustomerRef: customerRef,
		LocationRef: locationRef,
		CreatedAt:   now,
		Cart:        &cart.Cart{},
		Payments:    payment.NewSet(money.Zero()),
	}
}

// do runs fn while holding the sale's mutex. All mutation and reads of a
// sale's cart and payment set go through here; one mutation at a time per
// sale. A sale that was finalized while the caller waited on the mutex is
// gone: callers holding a stale pointer get not-found, never a second
// submission.
func (s *Sale) do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrSaleNotFound
	}
	return fn()
}

// totals recomputes the pricing summary for the current cart state and
// re-targets the payment set at the new grand total. Callers hold the mutex.
func (s *Sale) totals(taxRate money.Money) pricing.Summary {
	summary := pricing.Compute(s.Cart.PricingLines(), s.GlobalDiscount, taxRate, s.Shipping)
	s.Payments.SetGrandTotal(summary.GrandTotal)
	return summary
}

// findLine locates a cart line by product ref or SKU. Callers hold the mutex.
func (s *Sale) findLine(key string) *cart.Line {
	for _, l := range s.Cart.Lines() {
		if l.Product.Ref == key || l.Product.SKU == key {
			return l
		}
	}
	return nil
}
