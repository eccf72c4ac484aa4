package sales

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/order"
)

func newTestRouter(svc *Service) http.Handler {
	h := &Handler{Svc: svc, Validate: validator.New()}
	r := chi.NewRouter()
	r.Route("/v1/sales", h.Routes)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func openSale(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/sales", `{"locationRef":"store-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out struct {
		Data View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Data.ID
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	orders := &stubOrders{result: order.CreateSaleResult{SaleID: "sale-1", DocumentNumber: "T-1", Total: money.FromInt(121)}}
	router := newTestRouter(newTestService(inv, orders))

	id := openSale(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/sales/"+id+"/lines", `{"sku":"ESP-1","qty":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/sales/"+id+"/tenders", `{"method":"cash","amount":"121"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Data.CanFinalize)

	rec = doJSON(t, router, http.MethodPost, "/v1/sales/"+id+"/finalize", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/sales/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddLineValidation(t *testing.T) {
	router := newTestRouter(newTestService(&stubInventory{}, &stubOrders{}))
	id := openSale(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/sales/"+id+"/lines", `{"qty":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStockConflictStatus(t *testing.T) {
	p := espresso()
	p.AvailableStock = 0
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": p}}
	router := newTestRouter(newTestService(inv, &stubOrders{}))
	id := openSale(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/sales/"+id+"/lines", `{"sku":"ESP-1","qty":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_STOCK")
}

func TestOverPaymentStatus(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	router := newTestRouter(newTestService(inv, &stubOrders{}))
	id := openSale(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/sales/"+id+"/lines", `{"sku":"ESP-1","qty":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/sales/"+id+"/tenders", `{"method":"cash","amount":"500"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "OVER_PAYMENT")
}

func TestTaggedLineCommands(t *testing.T) {
	inv := &stubInventory{products: map[string]cart.Product{"ESP-1": espresso()}}
	router := newTestRouter(newTestService(inv, &stubOrders{}))
	id := openSale(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/sales/"+id+"/lines", `{"sku":"ESP-1","qty":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/v1/sales/"+id+"/lines/ESP-1", `{"op":"setQuantity","qty":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Empty(t, out.Data.Lines)

	rec = doJSON(t, router, http.MethodPatch, "/v1/sales/"+id+"/lines/ESP-1", `{"op":"grow"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAbortOverHTTP(t *testing.T) {
	router := newTestRouter(newTestService(&stubInventory{}, &stubOrders{}))
	id := openSale(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/v1/sales/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/v1/sales/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
