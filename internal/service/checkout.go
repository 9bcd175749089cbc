package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/event"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/ledger"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/validator"
)

const (
	// DefaultOrderListLimit is how many orders ListOrders returns by default.
	DefaultOrderListLimit = 10

	// MaxOrderListLimit caps the limit ListOrders accepts.
	MaxOrderListLimit = 100

	// maxOrderIDAttempts bounds retries when a generated order ID collides.
	maxOrderIDAttempts = 3
)

// Ledger records orders in the external order ledger.
type Ledger interface {
	Record(ctx context.Context, order ledger.LedgerOrder) (*ledger.LedgerReceipt, error)
}

// PlaceOrderResult tells the shopper where their order was recorded.
type PlaceOrderResult struct {
	OrderID        string `json:"orderId"`
	Source         string `json:"source"`
	Timestamp      string `json:"timestamp"`
	SpreadsheetURL string `json:"spreadsheetUrl,omitempty"`
}

// CaptureOutcome is the result of a captured pay-now checkout.
type CaptureOutcome struct {
	Capture *payment.CaptureResult `json:"capture"`
	OrderID string                 `json:"orderId,omitempty"`
}

// CheckoutService turns carts into orders.
type CheckoutService struct {
	carts    *CartService
	orders   repository.OrderRepository
	ledger   Ledger
	payments payment.Provider
	events   event.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts *CartService,
	orders repository.OrderRepository,
	ledger Ledger,
	payments payment.Provider,
	events event.Publisher,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		ledger:   ledger,
		payments: payments,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// PlaceOrder records the session's cart as an order: in the ledger when it
// is reachable, else in the local order log. The cart is cleared only once
// one of them has accepted the order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID string, customer domain.CustomerInfo) (*PlaceOrderResult, error) {
	if err := validator.Validate(customer); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	order := domain.NewOrderFromCart(*cart, customer, s.now())

	var result *PlaceOrderResult
	receipt, ledgerErr := s.ledger.Record(ctx, ledger.FromOrder(order))
	if ledgerErr == nil {
		order.Source = domain.OrderSourceLedger
		result = &PlaceOrderResult{
			OrderID:        order.ID,
			Source:         domain.OrderSourceLedger,
			Timestamp:      receipt.Timestamp,
			SpreadsheetURL: receipt.SpreadsheetURL,
		}
	} else {
		s.logger.WarnContext(ctx, "ledger unavailable, falling back to order log",
			slog.String("error", ledgerErr.Error()),
		)

		order.Source = domain.OrderSourceOrderLog
		if err := s.createOrder(ctx, &order); err != nil {
			s.logger.ErrorContext(ctx, "order log rejected order",
				slog.String("error", err.Error()),
			)
			return nil, apperrors.ServiceUnavailable("order could not be recorded, please try again")
		}
		result = &PlaceOrderResult{
			OrderID:   order.ID,
			Source:    domain.OrderSourceOrderLog,
			Timestamp: order.CreatedAt.Format(time.RFC3339Nano),
		}
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("source", order.Source),
		slog.String("total", order.Total),
	)

	if err := s.events.PublishOrderPlaced(ctx, &order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event", slog.String("error", err.Error()))
	}
	s.clearAfterCheckout(ctx, sessionID)

	return result, nil
}

// CreatePaymentOrder opens a hosted payment order for the first cart line.
func (s *CheckoutService) CreatePaymentOrder(ctx context.Context, sessionID string) (*payment.Order, error) {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	order, err := s.payments.CreateOrder(ctx, payment.OrderInputFromLine(cart.Lines[0]))
	if err != nil {
		return nil, fmt.Errorf("create payment order: %w", err)
	}

	s.logger.InfoContext(ctx, "payment order created",
		slog.String("provider", s.payments.Name()),
		slog.String("payment_order_id", order.ID),
	)
	return order, nil
}

// CapturePayment captures an approved payment order. On success the paid
// order is logged and the cart cleared; on failure the cart is kept.
func (s *CheckoutService) CapturePayment(ctx context.Context, sessionID, paymentOrderID string, customer domain.CustomerInfo) (*CaptureOutcome, error) {
	if paymentOrderID == "" {
		return nil, apperrors.InvalidInput("payment order id is required")
	}

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	capture, err := s.payments.CaptureOrder(ctx, paymentOrderID)
	if err != nil {
		return nil, fmt.Errorf("capture payment: %w", err)
	}
	outcome := &CaptureOutcome{Capture: capture}

	if cart.IsEmpty() {
		s.logger.WarnContext(ctx, "captured payment for an empty cart",
			slog.String("payment_order_id", paymentOrderID),
		)
		return outcome, nil
	}

	order := domain.NewOrderFromCart(*cart, customer, s.now())
	order.Status = domain.OrderStatusPaid
	order.Source = domain.OrderSourcePayment
	order.PaymentID = paymentOrderID

	// The money has moved; a failure to log the order must not fail the capture.
	if err := s.createOrder(ctx, &order); err != nil {
		s.logger.ErrorContext(ctx, "failed to record paid order",
			slog.String("payment_order_id", paymentOrderID),
			slog.String("error", err.Error()),
		)
	} else {
		outcome.OrderID = order.ID
	}

	s.logger.InfoContext(ctx, "payment captured",
		slog.String("payment_order_id", paymentOrderID),
		slog.String("order_id", order.ID),
	)

	if err := s.events.PublishOrderPaid(ctx, &order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.paid event", slog.String("error", err.Error()))
	}
	s.clearAfterCheckout(ctx, sessionID)

	return outcome, nil
}

// ListOrders returns the latest orders, oldest first.
func (s *CheckoutService) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = DefaultOrderListLimit
	}
	limit = min(limit, MaxOrderListLimit)

	orders, err := s.orders.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one logged order.
func (s *CheckoutService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	return s.orders.GetByID(ctx, id)
}

// UpdateOrderStatus moves an order forward.
func (s *CheckoutService) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("status", string(status)),
	)
	return order, nil
}

// createOrder logs order, minting a fresh ID when the current one is taken.
func (s *CheckoutService) createOrder(ctx context.Context, order *domain.Order) error {
	var err error
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		if attempt > 0 {
			order.ID = domain.NewOrderID(order.CreatedAt.Add(time.Duration(attempt) * time.Millisecond))
		}
		err = s.orders.Create(ctx, order)
		if err == nil || !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		s.logger.WarnContext(ctx, "order id taken, retrying", slog.String("order_id", order.ID))
	}
	return err
}

func (s *CheckoutService) clearAfterCheckout(ctx context.Context, sessionID string) {
	if err := s.carts.clear(ctx, sessionID, ClearReasonCheckout); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout", slog.String("error", err.Error()))
	}
}
