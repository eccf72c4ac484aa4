package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/order"
	"github.com/noah-isme/backend-pos/internal/payment"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

var (
	// ErrSaleNotFound indicates the sale id is unknown or already finalized.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrProductNotFound indicates the catalog returned no match for the query.
	ErrProductNotFound = errors.New("product not found")
	// ErrEmptySale is returned when finalizing a sale with no lines.
	ErrEmptySale = errors.New("sale has no lines")
	// ErrOrderCreationFailed wraps order collaborator failures during
	// finalize. The sale's state is untouched when this is returned.
	ErrOrderCreationFailed = errors.New("order creation failed")
)

// Inventory looks up sellable products. Results carry the stock snapshot the
// cart validates against.
type Inventory interface {
	FindProduct(ctx context.Context, query, locationRef string) ([]cart.Product, error)
}

// OrderCreator persists a finalized sale.
type OrderCreator interface {
	CreateSale(ctx context.Context, req order.CreateSaleRequest) (order.CreateSaleResult, error)
}

// Service owns the in-flight sales and orchestrates finalize against the
// order collaborator.
type Service struct {
	Sales     *Registry
	Inventory Inventory
	Orders    OrderCreator
	Events    *events.Bus
	TaxRate   money.Money
	Log       zerolog.Logger
}

// LineView is the wire shape of one cart line.
type LineView struct {
	Ref           string      `json:"ref"`
	SKU           string      `json:"sku"`
	Name          string      `json:"name"`
	Qty           int         `json:"qty"`
	UnitPrice     money.Money `json:"unitPrice"`
	DiscountValue money.Money `json:"discountValue"`
	DiscountKind  string      `json:"discountKind,omitempty"`
	Subtotal      money.Money `json:"subtotal"`
}

// TenderView is the wire shape of one applied tender.
type TenderView struct {
	Index     int         `json:"index"`
	MethodRef string      `json:"methodRef"`
	Amount    money.Money `json:"amount"`
	Note      string      `json:"note,omitempty"`
}

// TotalsView is the wire shape of the computed totals.
type TotalsView struct {
	Subtotal       money.Money `json:"subtotal"`
	DiscountAmount money.Money `json:"discountAmount"`
	TaxableBase    money.Money `json:"taxableBase"`
	TaxAmount      money.Money `json:"taxAmount"`
	Shipping       money.Money `json:"shipping"`
	GrandTotal     money.Money `json:"grandTotal"`
}

// View is the full wire shape of a sale.
type View struct {
	ID              string       `json:"id"`
	CustomerRef     string       `json:"customerRef,omitempty"`
	LocationRef     string       `json:"locationRef,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	Lines           []LineView   `json:"lines"`
	Totals          TotalsView   `json:"totals"`
	Tenders         []TenderView `json:"tenders"`
	Paid            money.Money  `json:"paid"`
	Remaining       money.Money  `json:"remaining"`
	SuggestedAmount money.Money  `json:"suggestedAmount"`
	CanFinalize     bool         `json:"canFinalize"`
}

// FinalizeResult is returned once the order collaborator accepted the sale.
type FinalizeResult struct {
	SaleID         string      `json:"saleId"`
	DocumentNumber string      `json:"documentNumber"`
	Total          money.Money `json:"total"`
}

// Open creates a new empty sale.
func (s *Service) Open(customerRef, locationRef string) View {
	sale := s.Sales.Create(customerRef, locationRef)
	var view View
	_ = sale.do(func() error {
		view = s.viewLocked(sale)
		return nil
	})
	return view
}

// Get returns the current view of a sale.
func (s *Service) Get(id string) (View, error) {
	return s.withSale(id, func(sale *Sale) error { return nil })
}

// AddLine looks the product up in the catalog and adds it to the sale, or
// increments the existing line. The stock snapshot comes from the lookup.
func (s *Service) AddLine(ctx context.Context, id, query string, qty int) (View, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return View{}, fmt.Errorf("%w: product query is required", cart.ErrInvalidInput)
	}
	sale, ok := s.Sales.Get(id)
	if !ok {
		return View{}, ErrSaleNotFound
	}
	// Catalog lookup happens outside the sale lock; only the mutation is
	// serialized.
	products, err := s.Inventory.FindProduct(ctx, query, sale.LocationRef)
	if err != nil {
		return View{}, err
	}
	if len(products) == 0 {
		return View{}, fmt.Errorf("%w: %q", ErrProductNotFound, query)
	}
	product := products[0]
	return s.apply(sale, func() error {
		_, err := sale.Cart.AddOrIncrement(product, qty)
		return err
	})
}

// LineUpdate is a tagged mutation applied to one line.
type LineUpdate struct {
	Op            string      `json:"op" validate:"required,oneof=setQuantity setDiscount setUnitPrice"`
	Qty           int         `json:"qty,omitempty"`
	DiscountValue money.Money `json:"discountValue,omitempty"`
	DiscountKind  string      `json:"discountKind,omitempty"`
	UnitPrice     money.Money `json:"unitPrice,omitempty"`
}

// UpdateLine applies a tagged mutation to the line identified by product ref
// or SKU.
func (s *Service) UpdateLine(id, lineKey string, update LineUpdate) (View, error) {
	sale, ok := s.Sales.Get(id)
	if !ok {
		return View{}, ErrSaleNotFound
	}
	return s.apply(sale, func() error {
		line := sale.findLine(lineKey)
		if line == nil {
			return cart.ErrLineNotFound
		}
		switch update.Op {
		case "setQuantity":
			return sale.Cart.SetQuantity(line.Product.Ref, update.Qty)
		case "setDiscount":
			return sale.Cart.SetDiscount(line.Product.Ref, update.DiscountValue, pricing.DiscountKind(update.DiscountKind))
		case "setUnitPrice":
			return sale.Cart.SetUnitPrice(line.Product.Ref, update.UnitPrice)
		default:
			return fmt.Errorf("%w: unknown op %q", cart.ErrInvalidInput, update.Op)
		}
	})
}

// RemoveLine deletes the line identified by product ref or SKU.
func (s *Service) RemoveLine(id, lineKey string) (View, error) {
	sale, ok := s.Sales.Get(id)
	if !ok {
		return View{}, ErrSaleNotFound
	}
	return s.apply(sale, func() error {
		line := sale.findLine(lineKey)
		if line == nil {
			return cart.ErrLineNotFound
		}
		sale.Cart.Remove(line.Product.Ref)
		return nil
	})
}

// SaleUpdate mutates sale-level adjustments.
type SaleUpdate struct {
	GlobalDiscountValue *money.Money `json:"globalDiscountValue,omitempty"`
	GlobalDiscountKind  *string      `json:"globalDiscountKind,omitempty"`
	Shipping            *money.Money `json:"shipping,omitempty"`
	Notes               *string      `json:"notes,omitempty"`
	CustomerRef         *string      `json:"customerRef,omitempty"`
}

// Update applies sale-level adjustments: global discount, shipping, notes.
func (s *Service) Update(id string, update SaleUpdate) (View, error) {
	sale, ok := s.Sales.Get(id)
	if !ok {
		return View{}, ErrSaleNotFound
	}
	return s.apply(sale, func() error {
		if update.GlobalDiscountKind != nil {
			kind := pricing.DiscountKind(*update.GlobalDiscountKind)
			if !kind.Valid() {
				return fmt.Errorf("%w: unknown discount kind %q", cart.ErrInvalidInput, kind)
			}
			sale.GlobalDiscount.Kind = kind
		}
		if update.GlobalDiscountValue != nil {
			if sale.GlobalDiscount.Kind == "" {
				sale.GlobalDiscount.Kind = pricing.DiscountAmount
			}
			sale.GlobalDiscount.Value = money.ClampNonNegative(*update.GlobalDiscountValue)
		}
		if update.Shipping != nil {
			sale.Shipping = money.ClampNonNegative(*update.Shipping)
		}
		if update.Notes != nil {
			sale.Notes = *update.Notes
		}
		if update.CustomerRef != nil {
			sale.CustomerRef = *update.CustomerRef
		}
		return nil
	})
}

// AddTender applies a tender toward the sale's grand total.
func (s *Service) AddTender(id, methodRef string, amount money.Money, note string) (View, error) {
	sale, ok := s.Sales.Get(id)
	if !ok {
		return View{}, ErrSaleNotFound
	}
	view, err := s.apply(sale, func() error {
		return sale.Payments.Add(methodRef, amount, note)
	})
	if err == nil && obs.TendersTotal != nil {
		obs.TendersTotal.WithLabelValues(methodRef).Inc()
	}
	return view, err
}

// RemoveTender deletes the tender at the given index.
func (s *Service) RemoveTender(id string, index int) (View, error) {
	sale, ok := s.Sales.Get(id)
	if !ok {
		return View{}, ErrSaleNotFound
	}
	return s.apply(sale, func() error {
		return sale.Payments.Remove(index)
	})
}

// Finalize submits the sale to the order collaborator. Nothing local changes
// until the collaborator accepts: on any error the sale keeps its lines and
// tenders so the operator can correct and retry. On success the cart and
// tenders are cleared and the sale marked finalized while the mutex is still
// held, the sale is removed from the registry, and a sale.finalized event is
// emitted.
func (s *Service) Finalize(ctx context.Context, id string) (FinalizeResult, error) {
	sale, ok := s.Sales.Get(id)
	if !ok {
		return FinalizeResult{}, ErrSaleNotFound
	}

	var result FinalizeResult
	err := sale.do(func() error {
		if sale.Cart.IsEmpty() {
			return ErrEmptySale
		}
		summary := sale.totals(s.TaxRate)
		if !sale.Payments.CanFinalize() {
			return fmt.Errorf("%w: remaining %s", payment.ErrNotFullyPaid, sale.Payments.Remaining())
		}

		req := order.CreateSaleRequest{
			Total:       summary.GrandTotal,
			CustomerRef: sale.CustomerRef,
			LocationRef: sale.LocationRef,
			Notes:       sale.Notes,
		}
		for _, l := range sale.Cart.Lines() {
			req.Lines = append(req.Lines, order.Line{
				ProductRef:    l.Product.Ref,
				SKU:           l.Product.SKU,
				Qty:           l.Qty,
				UnitPrice:     l.Product.UnitPrice,
				DiscountValue: l.Discount.Value,
				DiscountKind:  string(l.Discount.Kind),
				Subtotal:      l.Subtotal(),
			})
		}
		for _, t := range sale.Payments.Tenders() {
			req.Payments = append(req.Payments, order.Payment{MethodRef: t.MethodRef, Amount: t.Amount, Note: t.Note})
		}

		res, err := s.Orders.CreateSale(ctx, req)
		if err != nil {
			if errors.Is(err, cart.ErrInsufficientStock) || common.IsAppError(err) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
		}
		result = FinalizeResult{SaleID: res.SaleID, DocumentNumber: res.DocumentNumber, Total: res.Total}
		// Collaborator accepted: clear local state and mark the sale
		// finalized before the mutex is released so a concurrent Finalize
		// cannot re-submit.
		sale.Cart.Clear()
		sale.Payments = payment.NewSet(money.Zero())
		sale.finalized = true
		return nil
	})
	if err != nil {
		if obs.SalesFinalizedTotal != nil {
			obs.SalesFinalizedTotal.WithLabelValues("rejected").Inc()
		}
		return FinalizeResult{}, err
	}

	s.Sales.Delete(id)
	if obs.SalesFinalizedTotal != nil {
		obs.SalesFinalizedTotal.WithLabelValues("accepted").Inc()
	}
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicSaleFinalized, result.SaleID, result); err != nil {
			s.Log.Warn().Err(err).Str("sale_id", result.SaleID).Msg("emit sale.finalized")
		}
	}
	return result, nil
}

// Abort discards the sale's in-memory state.
func (s *Service) Abort(id string) error {
	if _, ok := s.Sales.Get(id); !ok {
		return ErrSaleNotFound
	}
	s.Sales.Delete(id)
	return nil
}

// withSale runs fn under the sale's lock and returns the refreshed view.
func (s *Service) withSale(id string, fn func(*Sale) error) (View, error) {
	sale, ok := s.Sales.Get(id)
	if !ok {
		return View{}, ErrSaleNotFound
	}
	var view View
	err := sale.do(func() error {
		if err := fn(sale); err != nil {
			return err
		}
		view = s.viewLocked(sale)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

func (s *Service) apply(sale *Sale, mutate func() error) (View, error) {
	var view View
	err := sale.do(func() error {
		if err := mutate(); err != nil {
			return err
		}
		view = s.viewLocked(sale)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return view, nil
}

// viewLocked projects the sale into its wire shape. Callers hold the sale's
// mutex.
func (s *Service) viewLocked(sale *Sale) View {
	summary := sale.totals(s.TaxRate)

	lines := make([]LineView, 0, sale.Cart.Len())
	for _, l := range sale.Cart.Lines() {
		lines = append(lines, LineView{
			Ref:           l.Product.Ref,
			SKU:           l.Product.SKU,
			Name:          l.Product.Name,
			Qty:           l.Qty,
			UnitPrice:     l.Product.UnitPrice,
			DiscountValue: l.Discount.Value,
			DiscountKind:  string(l.Discount.Kind),
			Subtotal:      l.Subtotal(),
		})
	}
	tenders := make([]TenderView, 0, len(sale.Payments.Tenders()))
	for i, t := range sale.Payments.Tenders() {
		tenders = append(tenders, TenderView{Index: i, MethodRef: t.MethodRef, Amount: t.Amount, Note: t.Note})
	}

	return View{
		ID:          sale.ID,
		CustomerRef: sale.CustomerRef,
		LocationRef: sale.LocationRef,
		Notes:       sale.Notes,
		CreatedAt:   sale.CreatedAt,
		Lines:       lines,
		Totals: TotalsView{
			Subtotal:       summary.Subtotal,
			DiscountAmount: summary.DiscountAmount,
			TaxableBase:    summary.TaxableBase,
			TaxAmount:      summary.TaxAmount,
			Shipping:       summary.Shipping,
			GrandTotal:     summary.GrandTotal,
		},
		Tenders:         tenders,
		Paid:            sale.Payments.Paid(),
		Remaining:       sale.Payments.Remaining(),
		SuggestedAmount: sale.Payments.SuggestedAmount(),
		CanFinalize:     sale.Payments.CanFinalize() && !sale.Cart.IsEmpty(),
	}
}
