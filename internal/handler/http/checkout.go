package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/service"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httputil"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/middleware"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/validator"
)

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// PlaceOrderRequest is the JSON request body for a pay-later order.
type PlaceOrderRequest struct {
	CustomerInfo domain.CustomerInfo `json:"customerInfo"`
}

// CaptureRequest is the optional JSON request body for a capture.
type CaptureRequest struct {
	CustomerInfo *domain.CustomerInfo `json:"customerInfo" validate:"omitempty"`
}

// --- Handlers ---

// PlaceOrder handles POST /api/v1/checkout/orders
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.service.PlaceOrder(r.Context(), middleware.SessionIDFromContext(r.Context()), req.CustomerInfo)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, result)
}

// CreatePaymentOrder handles POST /api/v1/checkout/paypal/orders
func (h *CheckoutHandler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CreatePaymentOrder(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, order)
}

// CapturePayment handles POST /api/v1/checkout/paypal/orders/{orderId}/capture
func (h *CheckoutHandler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	var customer domain.CustomerInfo
	if req.CustomerInfo != nil {
		customer = *req.CustomerInfo
	}

	outcome, err := h.service.CapturePayment(r.Context(),
		middleware.SessionIDFromContext(r.Context()),
		chi.URLParam(r, "orderId"),
		customer,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, outcome)
}
