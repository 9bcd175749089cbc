package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/service"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httputil"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/middleware"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/validator"
)

// CheckoutPath is where the storefront sends shoppers to pay for a local cart.
const CheckoutPath = "/checkout"

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a variant to the cart.
type AddItemRequest struct {
	SelectedVariantID string `json:"selectedVariantId" validate:"required"`
}

// UpdateItemRequest is the JSON request body for stepping a line's quantity.
type UpdateItemRequest struct {
	UpdateType string `json:"updateType" validate:"required,oneof=plus minus delete"`
}

// SetQuantityRequest is the JSON request body for setting a line's quantity.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
}

// cartResponse is the cart as rendered to the storefront, plus an optional
// notice when the request named a line the cart does not hold.
type cartResponse struct {
	*domain.Cart
	Message string `json:"message,omitempty"`
}

func newCartResponse(c *domain.Cart) cartResponse {
	view := *c
	if view.CheckoutURL == "" {
		view.CheckoutURL = CheckoutPath
	}
	if view.Lines == nil {
		view.Lines = []domain.LineItem{}
	}
	return cartResponse{Cart: &view}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), middleware.SessionIDFromContext(r.Context()), req.SelectedVariantID)
	h.writeCart(w, r, cart, err)
}

// UpdateItem handles PATCH /api/v1/cart/items/{merchandiseId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.UpdateItem(r.Context(),
		middleware.SessionIDFromContext(r.Context()),
		chi.URLParam(r, "merchandiseId"),
		domain.UpdateType(req.UpdateType),
	)
	h.writeCart(w, r, cart, err)
}

// SetItemQuantity handles PUT /api/v1/cart/items/{merchandiseId}
func (h *CartHandler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	cart, err := h.service.SetItemQuantity(r.Context(),
		middleware.SessionIDFromContext(r.Context()),
		chi.URLParam(r, "merchandiseId"),
		*req.Quantity,
	)
	h.writeCart(w, r, cart, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{merchandiseId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveItem(r.Context(),
		middleware.SessionIDFromContext(r.Context()),
		chi.URLParam(r, "merchandiseId"),
	)
	h.writeCart(w, r, cart, err)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearCart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	h.writeCart(w, r, cart, err)
}

// writeCart renders the outcome of a cart mutation. A missing line is not a
// failure: the unchanged cart is returned with a message.
func (h *CartHandler) writeCart(w http.ResponseWriter, r *http.Request, cart *domain.Cart, err error) {
	if errors.Is(err, service.ErrItemNotFound) && cart != nil {
		resp := newCartResponse(cart)
		resp.Message = "Item not found in cart"
		httputil.WriteData(w, http.StatusOK, resp)
		return
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}
