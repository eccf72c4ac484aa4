package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes the catalog passthrough endpoints.
type Handler struct {
	Products *Client
	Methods  Methods
}

// SearchProducts proxies product search to the catalog collaborator.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "query parameter q is required", nil)
		return
	}
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 20)
	products, err := h.Products.FindProduct(r.Context(), query, location)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// ListPaymentMethods returns the (cached) payment-method catalog, active
// methods only.
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.Methods.ListPaymentMethods(r.Context())
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list payment methods", nil)
		return
	}
	active := make([]PaymentMethod, 0, len(methods))
	for _, m := range methods {
		if m.Active {
			active = append(active, m)
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": active})
}
