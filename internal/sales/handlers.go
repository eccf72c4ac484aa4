package sales

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/order"
	"github.com/noah-isme/backend-pos/internal/payment"
)

// Handler exposes the sale endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	// Idem, when set, guards the finalize endpoint against duplicate
	// submissions (Idempotency-Key header).
	Idem func(http.Handler) http.Handler
}

// Routes mounts the sale endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Open)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Abort)
		r.Post("/lines", h.AddLine)
		r.Patch("/lines/{sku}", h.UpdateLine)
		r.Delete("/lines/{sku}", h.RemoveLine)
		r.Post("/tenders", h.AddTender)
		r.Delete("/tenders/{index}", h.RemoveTender)
		if h.Idem != nil {
			r.With(h.Idem).Post("/finalize", h.Finalize)
		} else {
			r.Post("/finalize", h.Finalize)
		}
	})
}

type openPayload struct {
	CustomerRef string `json:"customerRef"`
	LocationRef string `json:"locationRef"`
}

// Open creates a new empty sale.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var payload openPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
	}
	view := h.Svc.Open(payload.CustomerRef, payload.LocationRef)
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get returns the sale's lines, totals and payment state.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type addLinePayload struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty"`
}

// AddLine resolves the product and adds it to the sale.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var payload addLinePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	view, err := h.Svc.AddLine(r.Context(), chi.URLParam(r, "id"), payload.SKU, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// UpdateLine applies a tagged mutation (setQuantity, setDiscount,
// setUnitPrice) to one line.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var payload LineUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	view, err := h.Svc.UpdateLine(chi.URLParam(r, "id"), chi.URLParam(r, "sku"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveLine deletes one line.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemoveLine(chi.URLParam(r, "id"), chi.URLParam(r, "sku"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Update applies sale-level adjustments.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var payload SaleUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	view, err := h.Svc.Update(chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type addTenderPayload struct {
	Method string      `json:"method" validate:"required"`
	Amount money.Money `json:"amount"`
	Note   string      `json:"note"`
}

// AddTender applies a tender toward the sale's total.
func (h *Handler) AddTender(w http.ResponseWriter, r *http.Request) {
	var payload addTenderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	view, err := h.Svc.AddTender(chi.URLParam(r, "id"), payload.Method, payload.Amount, payload.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveTender deletes the tender at the path index.
func (h *Handler) RemoveTender(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tender index", nil)
		return
	}
	view, err := h.Svc.RemoveTender(chi.URLParam(r, "id"), index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Finalize submits the sale to the order collaborator.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.Finalize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

// Abort discards the sale.
func (h *Handler) Abort(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Abort(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrSaleNotFound), errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, payment.ErrTenderNotFound), errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, cart.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error(), nil)
	case errors.Is(err, payment.ErrOverPayment):
		common.JSONError(w, http.StatusUnprocessableEntity, "OVER_PAYMENT", err.Error(), nil)
	case errors.Is(err, payment.ErrInvalidAmount):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_AMOUNT", err.Error(), nil)
	case errors.Is(err, payment.ErrNotFullyPaid):
		common.JSONError(w, http.StatusUnprocessableEntity, "NOT_FULLY_PAID", err.Error(), nil)
	case errors.Is(err, ErrEmptySale), errors.Is(err, cart.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, catalog.ErrUnavailable), errors.Is(err, order.ErrUnavailable):
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, ErrOrderCreationFailed):
		common.JSONError(w, http.StatusBadGateway, "ORDER_CREATION_FAILED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
