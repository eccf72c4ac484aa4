package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/order"
	"github.com/noah-isme/backend-pos/internal/payment"
)

type stubInventory struct {
	products map[string]cart.Product
	err      error
}

func (s *stubInventory) FindProduct(_ context.Context, query, _ string) ([]cart.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[query]
	if !ok {
		return nil, nil
	}
	return []cart.Product{p}, nil
}

type stubOrders struct {
	req    order.CreateSaleRequest
	result order.CreateSaleResult
	err    error
	calls  int
}

func (s *stubOrders) CreateSale(_ context.Context, req order.CreateSaleRequest) (order.CreateSaleResult, error) {
	s.calls++
	s.req = req
	if s.err != nil {
		return order.CreateSaleResult{}, s.err
	}
	return s.result, nil
}

func newTestService(inv *stubInventory, orders OrderCreator) *Service {
	return &Service{
		Sales:     NewRegistry(),
		Inventory: inv,
		Orders:    orders,
		TaxRate:   money.New(21, -2),
	}
}

func espresso() cart.Product {
	return cart.Product{Ref: "p-espresso", SKU: "ESP-1", Name: "Espresso", UnitPrice: money.FromInt(100), AvailableStock: 10}
}

func TestAddLineComputesTotals(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	svc := newTestService(inv, &stubOrders{})

	opened := svc.Open("", "store-1")
	view, err := svc.AddLine(context.Background(), opened.ID, "ESP-1", 2)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	require.Equal(t, 2, view.Lines[0].Qty)

	view, err = svc.UpdateLine(opened.ID, "ESP-1", LineUpdate{Op: "setDiscount", DiscountValue: money.FromInt(10), DiscountKind: "percent"})
	require.NoError(t, err)
	require.True(t, view.Totals.Subtotal.Equal(money.FromInt(180)), "subtotal %s", view.Totals.Subtotal)
	require.True(t, view.Totals.TaxAmount.Equal(money.New(378, -1)), "tax %s", view.Totals.TaxAmount)
	require.True(t, view.Totals.GrandTotal.Equal(money.New(2178, -1)), "total %s", view.Totals.GrandTotal)
	require.True(t, view.SuggestedAmount.Equal(view.Totals.GrandTotal))
}

func TestAddLineUnknownProduct(t *testing.T) {
	svc := newTestService(&stubInventory{products: map[string]cart.Product{}}, &stubOrders{})
	opened := svc.Open("", "")

	_, err := svc.AddLine(context.Background(), opened.ID, "NOPE", 1)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddLineStockGate(t *testing.T) {
	p := espresso()
	p.AvailableStock = 1
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": p}}
	svc := newTestService(inv, &stubOrders{})
	opened := svc.Open("", "")

	view, err := svc.AddLine(context.Background(), opened.ID, "ESP-1", 1)
	require.NoError(t, err)
	require.Equal(t, 1, view.Lines[0].Qty)

	_, err = svc.AddLine(context.Background(), opened.ID, "ESP-1", 1)
	require.ErrorIs(t, err, cart.ErrInsufficientStock)

	view, err = svc.Get(opened.ID)
	require.NoError(t, err)
	require.Equal(t, 1, view.Lines[0].Qty)
}

func TestTenderFlow(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	svc := newTestService(inv, &stubOrders{})
	opened := svc.Open("", "")
	_, err := svc.AddLine(context.Background(), opened.ID, "ESP-1", 1)
	require.NoError(t, err)

	// 100 + 21% tax = 121
	view, err := svc.AddTender(opened.ID, "cash", money.FromInt(100), "")
	require.NoError(t, err)
	require.False(t, view.CanFinalize)
	require.True(t, view.Remaining.Equal(money.FromInt(21)))

	_, err = svc.AddTender(opened.ID, "card", money.FromInt(30), "")
	require.ErrorIs(t, err, payment.ErrOverPayment)

	view, err = svc.AddTender(opened.ID, "card", money.FromInt(21), "")
	require.NoError(t, err)
	require.True(t, view.CanFinalize)

	view, err = svc.RemoveTender(opened.ID, 1)
	require.NoError(t, err)
	require.False(t, view.CanFinalize)
}

func TestFinalizeSubmitsDocumentAndClearsSale(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	orders := &stubOrders{result: order.CreateSaleResult{SaleID: "sale-9", DocumentNumber: "T-9", Total: money.FromInt(121)}}
	svc := newTestService(inv, orders)
	opened := svc.Open("cust-1", "store-1")
	_, err := svc.AddLine(context.Background(), opened.ID, "ESP-1", 1)
	require.NoError(t, err)
	_, err = svc.AddTender(opened.ID, "cash", money.FromInt(121), "")
	require.NoError(t, err)

	result, err := svc.Finalize(context.Background(), opened.ID)
	require.NoError(t, err)
	require.Equal(t, "T-9", result.DocumentNumber)
	require.Equal(t, "cust-1", orders.req.CustomerRef)
	require.Len(t, orders.req.Lines, 1)
	require.Len(t, orders.req.Payments, 1)
	require.True(t, orders.req.Total.Equal(money.FromInt(121)))

	_, err = svc.Get(opened.ID)
	require.ErrorIs(t, err, ErrSaleNotFound)
}

type gatedOrders struct {
	stubOrders
	entered chan struct{}
	release chan struct{}
}

func (g *gatedOrders) CreateSale(ctx context.Context, req order.CreateSaleRequest) (order.CreateSaleResult, error) {
	if g.calls == 0 {
		defer func() { <-g.release }()
		defer close(g.entered)
	}
	return g.stubOrders.CreateSale(ctx, req)
}

func TestFinalizeConcurrentSubmitsOnce(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	orders := &gatedOrders{
		stubOrders: stubOrders{result: order.CreateSaleResult{SaleID: "sale-9", DocumentNumber: "T-9", Total: money.FromInt(121)}},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	svc := newTestService(inv, orders)
	opened := svc.Open("", "store-1")
	_, err := svc.AddLine(context.Background(), opened.ID, "ESP-1", 1)
	require.NoError(t, err)
	_, err = svc.AddTender(opened.ID, "cash", money.FromInt(121), "")
	require.NoError(t, err)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Finalize(context.Background(), opened.ID)
		firstErr <- err
	}()
	<-orders.entered

	// Second finalize arrives while the first is still inside the
	// collaborator call. It must not submit the order again.
	secondErr := make(chan error, 1)
	go func() {
		_, err := svc.Finalize(context.Background(), opened.ID)
		secondErr <- err
	}()
	close(orders.release)

	require.NoError(t, <-firstErr)
	require.ErrorIs(t, <-secondErr, ErrSaleNotFound)
	require.Equal(t, 1, orders.calls)
}

func TestFinalizeGates(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	svc := newTestService(inv, &stubOrders{})
	opened := svc.Open("", "")

	_, err := svc.Finalize(context.Background(), opened.ID)
	require.ErrorIs(t, err, ErrEmptySale)

	_, err = svc.AddLine(context.Background(), opened.ID, "ESP-1", 1)
	require.NoError(t, err)
	_, err = svc.Finalize(context.Background(), opened.ID)
	require.ErrorIs(t, err, payment.ErrNotFullyPaid)
}

func TestFinalizeKeepsStateOnCollaboratorFailure(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	orders := &stubOrders{err: errors.New("connection refused")}
	svc := newTestService(inv, orders)
	opened := svc.Open("", "")
	_, err := svc.AddLine(context.Background(), opened.ID, "ESP-1", 1)
	require.NoError(t, err)
	_, err = svc.AddTender(opened.ID, "cash", money.FromInt(121), "")
	require.NoError(t, err)

	_, err = svc.Finalize(context.Background(), opened.ID)
	require.ErrorIs(t, err, ErrOrderCreationFailed)

	// Lines and tenders survive so the operator can retry.
	view, err := svc.Get(opened.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	require.Len(t, view.Tenders, 1)
	require.True(t, view.CanFinalize)

	orders.err = fmt.Errorf("%w: ESP-1 gone", cart.ErrInsufficientStock)
	_, err = svc.Finalize(context.Background(), opened.ID)
	require.ErrorIs(t, err, cart.ErrInsufficientStock)
	require.Equal(t, 2, orders.calls)
}

func TestAbortDiscardsSale(t *testing.T) {
	svc := newTestService(&stubInventory{}, &stubOrders{})
	opened := svc.Open("", "")

	require.NoError(t, svc.Abort(opened.ID))
	require.ErrorIs(t, svc.Abort(opened.ID), ErrSaleNotFound)
}

func TestGlobalDiscountAndShipping(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	svc := newTestService(inv, &stubOrders{})
	opened := svc.Open("", "")
	_, err := svc.AddLine(context.Background(), opened.ID, "ESP-1", 2)
	require.NoError(t, err)

	discount := money.FromInt(300)
	shipping := money.FromInt(15)
	view, err := svc.Update(opened.ID, SaleUpdate{GlobalDiscountValue: &discount, Shipping: &shipping})
	require.NoError(t, err)
	// Discount above subtotal clamps the taxable base to zero.
	require.True(t, view.Totals.TaxableBase.IsZero())
	require.True(t, view.Totals.GrandTotal.Equal(shipping))
}
