package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// ErrUnavailable indicates the catalog collaborator could not be reached or
// answered with a server error.
var ErrUnavailable = errors.New("catalog service unavailable")

// PaymentMethod is one configured tender method.
type PaymentMethod struct {
	Ref         string `json:"ref"`
	DisplayName string `json:"displayName"`
	Kind        string `json:"kind"`
	Active      bool   `json:"active"`
}

// Client is a resty-backed client for the inventory/catalog collaborator. It
// supplies product snapshots (unit price, available stock) and the
// payment-method catalog; both are treated as externally validated data.
type Client struct {
	http *resty.Client
}

// NewClient builds a catalog client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetTimeout(timeout)
	return &Client{http: httpClient}
}

type productPayload struct {
	Ref            string  `json:"ref"`
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	UnitPrice      string  `json:"unitPrice"`
	UnitPriceNum   float64 `json:"unit_price,omitempty"`
	AvailableStock int     `json:"availableStock"`
}

type findProductsResponse struct {
	Data []productPayload `json:"data"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func countRequest(reachable bool) {
	if obs.CollaboratorRequestTotal == nil {
		return
	}
	result := "ok"
	if !reachable {
		result = "error"
	}
	obs.CollaboratorRequestTotal.WithLabelValues("catalog", result).Inc()
}

// FindProduct searches the catalog at the given location and returns the
// matching product snapshots, best match first.
func (c *Client) FindProduct(ctx context.Context, query, locationRef string) ([]cart.Product, error) {
	result := new(findProductsResponse)
	apiErr := new(apiError)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("location", locationRef).
		SetResult(result).
		SetError(apiErr).
		Get("/v1/products")
	if err != nil {
		countRequest(false)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		if resp.StatusCode() >= http.StatusInternalServerError {
			countRequest(false)
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, apiErr.Error.Message)
		}
		countRequest(true)
		return nil, fmt.Errorf("find product: %s", apiErr.Error.Message)
	}
	countRequest(true)
	products := make([]cart.Product, 0, len(result.Data))
	for _, p := range result.Data {
		price, err := parseAmount(p)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.SKU, err)
		}
		products = append(products, cart.Product{
			Ref:            p.Ref,
			SKU:            p.SKU,
			Name:           p.Name,
			UnitPrice:      price,
			AvailableStock: p.AvailableStock,
		})
	}
	return products, nil
}

type listMethodsResponse struct {
	Data []PaymentMethod `json:"data"`
}

// ListPaymentMethods returns the configured payment methods, active and
// inactive; callers filter.
func (c *Client) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	result := new(listMethodsResponse)
	apiErr := new(apiError)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get("/v1/payment-methods")
	if err != nil {
		countRequest(false)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		countRequest(false)
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, apiErr.Error.Message)
	}
	countRequest(true)
	return result.Data, nil
}

func parseAmount(p productPayload) (money.Money, error) {
	if strings.TrimSpace(p.UnitPrice) != "" {
		d, err := decimal.NewFromString(p.UnitPrice)
		if err != nil {
			return money.Zero(), fmt.Errorf("parse unit price %q: %w", p.UnitPrice, err)
		}
		return d, nil
	}
	return money.FromFloat(p.UnitPriceNum), nil
}
