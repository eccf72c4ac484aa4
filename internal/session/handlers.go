package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/drawer"
	"github.com/noah-isme/backend-pos/internal/money"
)

// Handler exposes the cash-session endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Routes mounts the cash-session endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Open)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/movements", h.AddMovement)
		r.Post("/counts", h.Count)
		r.Post("/close", h.Close)
	})
}

type openPayload struct {
	Register     string      `json:"register" validate:"required"`
	OpenedBy     string      `json:"openedBy"`
	OpeningFloat money.Money `json:"openingFloat"`
}

// Open starts a cash session for a register.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var payload openPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	view, err := h.Svc.Open(r.Context(), payload.Register, payload.OpenedBy, payload.OpeningFloat)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get returns the session with its ledger and expected balance.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type movementPayload struct {
	Kind   MovementKind `json:"kind" validate:"required,oneof=sale in out"`
	Amount money.Money  `json:"amount"`
	Reason string       `json:"reason"`
}

// AddMovement records a ledger movement against an open session.
func (h *Handler) AddMovement(w http.ResponseWriter, r *http.Request) {
	var payload movementPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	view, err := h.Svc.AddMovement(r.Context(), chi.URLParam(r, "id"), payload.Kind, payload.Amount, payload.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Count records an advisory intermediate reconciliation.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	var payload CountInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	rec, err := h.Svc.Count(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": rec})
}

// Close executes one step of the close-out workflow.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	var payload CloseInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	view, err := h.Svc.Close(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
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
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrAlreadyOpen):
		common.JSONError(w, http.StatusConflict, "SESSION_ALREADY_OPEN", err.Error(), nil)
	case errors.Is(err, ErrSessionClosed):
		common.JSONError(w, http.StatusConflict, "SESSION_CLOSED", err.Error(), nil)
	case errors.Is(err, drawer.ErrNotesRequired):
		common.JSONError(w, http.StatusUnprocessableEntity, "NOTES_REQUIRED", err.Error(), nil)
	case errors.Is(err, drawer.ErrNothingCounted):
		common.JSONError(w, http.StatusUnprocessableEntity, "NOTHING_COUNTED", err.Error(), nil)
	case errors.Is(err, drawer.ErrInvalidTransition), errors.Is(err, drawer.ErrClosed),
		errors.Is(err, ErrCloseoutNotStarted):
		common.JSONError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, ErrInvalidMovement), errors.Is(err, drawer.ErrDenominationOutOfRange):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
