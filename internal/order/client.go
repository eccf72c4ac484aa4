package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

// ErrUnavailable indicates the order collaborator could not be reached or the
// circuit breaker refused the call.
var ErrUnavailable = errors.New("order service unavailable")

// Line is one sale line in the order-creation contract.
type Line struct {
	ProductRef    string      `json:"productRef"`
	SKU           string      `json:"sku"`
	Qty           int         `json:"qty"`
	UnitPrice     money.Money `json:"unitPrice"`
	DiscountValue money.Money `json:"discountValue"`
	DiscountKind  string      `json:"discountKind"`
	Subtotal      money.Money `json:"subtotal"`
}

// Payment is one applied tender in the order-creation contract.
type Payment struct {
	MethodRef string      `json:"methodRef"`
	Amount    money.Money `json:"amount"`
	Note      string      `json:"note,omitempty"`
}

// CreateSaleRequest is the document submitted to the order collaborator when
// a sale is finalized.
type CreateSaleRequest struct {
	Lines       []Line      `json:"lines"`
	Payments    []Payment   `json:"payments"`
	Total       money.Money `json:"total"`
	CustomerRef string      `json:"customerRef,omitempty"`
	LocationRef string      `json:"locationRef,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// CreateSaleResult is the collaborator's acknowledgement of a persisted sale.
type CreateSaleResult struct {
	SaleID         string      `json:"saleId"`
	DocumentNumber string      `json:"documentNumber"`
	Total          money.Money `json:"total"`
}

// Client submits finalized sales to the order collaborator. Calls go through
// a circuit breaker so a dead collaborator fails fast instead of tying up
// request workers.
type Client struct {
	http    *resty.Client
	breaker *resilience.Breaker
}

// NewClient builds an order client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, breaker *resilience.Breaker) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetTimeout(timeout)
	return &Client{http: httpClient, breaker: breaker}
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSale submits the sale document and returns the collaborator's
// acknowledgement. Stock conflicts reported by the collaborator map to
// cart.ErrInsufficientStock so callers can surface them uniformly.
func (c *Client) CreateSale(ctx context.Context, req CreateSaleRequest) (CreateSaleResult, error) {
	if c.breaker != nil && !c.breaker.Allow(ctx) {
		return CreateSaleResult{}, fmt.Errorf("%w: %v", ErrUnavailable, resilience.ErrOpenCircuit)
	}
	result := new(CreateSaleResult)
	apiErr := new(apiError)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		SetError(apiErr).
		Post("/v1/sales")
	if err != nil {
		c.report(ctx, false)
		return CreateSaleResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		switch {
		case resp.StatusCode() == http.StatusConflict:
			c.report(ctx, true)
			return CreateSaleResult{}, fmt.Errorf("%w: %s", cart.ErrInsufficientStock, apiErr.Error.Message)
		case resp.StatusCode() >= http.StatusInternalServerError:
			c.report(ctx, false)
			return CreateSaleResult{}, fmt.Errorf("%w: %s", ErrUnavailable, apiErr.Error.Message)
		default:
			c.report(ctx, true)
			return CreateSaleResult{}, common.NewAppError("ORDER_REJECTED", apiErr.Error.Message, http.StatusUnprocessableEntity, nil)
		}
	}
	c.report(ctx, true)
	return *result, nil
}

func (c *Client) report(ctx context.Context, success bool) {
	if obs.CollaboratorRequestTotal != nil {
		result := "ok"
		if !success {
			result = "error"
		}
		obs.CollaboratorRequestTotal.WithLabelValues("orders", result).Inc()
	}
	if c.breaker != nil {
		c.breaker.Report(ctx, success)
	}
}
