package domain

import (
	"fmt"
	"slices"
	"time"
)

// OrderStatus is the lifecycle state of a logged order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

var statusOrder = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return slices.Contains(statusOrder, s)
}

// CanTransitionTo reports whether s may move to next. Statuses only move
// forward; skipping ahead (pending straight to shipped) is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, to := slices.Index(statusOrder, s), slices.Index(statusOrder, next)
	return from >= 0 && to > from
}

// Order sources.
const (
	OrderSourceLedger   = "ledger"
	OrderSourceOrderLog = "order_log"
	OrderSourcePayment  = "payment"
)

// CustomerInfo identifies the buyer of an order.
type CustomerInfo struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// OrderItem is one line of an order. Price is the line total.
type OrderItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Order is a record in the order log.
type Order struct {
	ID           string       `json:"id"`
	CustomerInfo CustomerInfo `json:"customerInfo"`
	Items        []OrderItem  `json:"items"`
	Total        string       `json:"total"`
	Currency     string       `json:"currency"`
	Status       OrderStatus  `json:"status"`
	Source       string       `json:"source"`
	PaymentID    string       `json:"paymentId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// NewOrderID returns an order ID of the form ORD-<unix millis>.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d", now.UnixMilli())
}

// NewOrderFromCart builds a pending order from the cart's lines and total.
func NewOrderFromCart(c Cart, customer CustomerInfo, now time.Time) Order {
	items := make([]OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		title := l.Merchandise.Product.Title
		if title == "" {
			title = l.Merchandise.Title
		}
		items = append(items, OrderItem{
			Title:    title,
			Quantity: l.Quantity,
			Price:    l.Cost.TotalAmount.Decimal().String(),
		})
	}

	return Order{
		ID:           NewOrderID(now),
		CustomerInfo: customer,
		Items:        items,
		Total:        c.Cost.TotalAmount.Decimal().String(),
		Currency:     c.Currency(),
		Status:       OrderStatusPending,
		CreatedAt:    now.UTC(),
	}
}
