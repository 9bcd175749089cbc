package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	pkgkafka "github.com/Vuongsinguyen/VyBrows-Store/pkg/kafka"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/logger"
)

// Kafka topics for storefront domain events.
var (
	TopicCartUpdated = pkgkafka.Topic("cart", "updated")
	TopicCartCleared = pkgkafka.Topic("cart", "cleared")
	TopicOrderPlaced = pkgkafka.Topic("order", "placed")
	TopicOrderPaid   = pkgkafka.Topic("order", "paid")
)

// Event subjects.
const (
	SubjectCart  = "cart"
	SubjectOrder = "order"
)

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID     string `json:"session_id"`
	CartID        string `json:"cart_id"`
	Action        string `json:"action"`
	TotalQuantity int    `json:"total_quantity"`
	LineCount     int    `json:"line_count"`
	TotalAmount   string `json:"total_amount"`
	Currency      string `json:"currency"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// OrderData is the payload for order.placed and order.paid events.
type OrderData struct {
	OrderID       string             `json:"order_id"`
	Source        string             `json:"source"`
	Status        string             `json:"status"`
	CustomerEmail string             `json:"customer_email"`
	Items         []domain.OrderItem `json:"items"`
	Total         string             `json:"total"`
	Currency      string             `json:"currency"`
	PaymentID     string             `json:"payment_id,omitempty"`
}

// Publisher emits storefront domain events.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, sessionID, action string, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, sessionID, reason string) error
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
	PublishOrderPaid(ctx context.Context, order *domain.Order) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event keyed by session.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID, action string, cart *domain.Cart) error {
	data := CartUpdatedData{
		SessionID:     sessionID,
		CartID:        cart.ID,
		Action:        action,
		TotalQuantity: cart.TotalQuantity,
		LineCount:     len(cart.Lines),
		TotalAmount:   cart.Cost.TotalAmount.Amount,
		Currency:      cart.Cost.TotalAmount.CurrencyCode,
	}
	return p.publish(ctx, TopicCartUpdated, "cart.updated", sessionID, SubjectCart, data,
		pkgkafka.WithAttribute("action", action))
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID, reason string) error {
	data := CartClearedData{SessionID: sessionID, Reason: reason}
	return p.publish(ctx, TopicCartCleared, "cart.cleared", sessionID, SubjectCart, data,
		pkgkafka.WithAttribute("reason", reason))
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderPlaced, "order.placed", order.ID, SubjectOrder, orderData(order),
		pkgkafka.WithAttribute("order_source", order.Source))
}

// PublishOrderPaid publishes an order.paid event.
func (p *Producer) PublishOrderPaid(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderPaid, "order.paid", order.ID, SubjectOrder, orderData(order),
		pkgkafka.WithAttribute("order_source", order.Source),
		pkgkafka.WithAttribute("payment_id", order.PaymentID))
}

func (p *Producer) publish(ctx context.Context, topic, eventType, key, subject string, data any, opts ...pkgkafka.Option) error {
	opts = append(opts, pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)))
	evt, err := pkgkafka.NewEvent(eventType, key, subject, data, opts...)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("event_type", eventType),
		slog.String("key", key),
	)
	return nil
}

func orderData(o *domain.Order) OrderData {
	return OrderData{
		OrderID:       o.ID,
		Source:        o.Source,
		Status:        string(o.Status),
		CustomerEmail: o.CustomerInfo.Email,
		Items:         o.Items,
		Total:         o.Total,
		Currency:      o.Currency,
		PaymentID:     o.PaymentID,
	}
}

// Noop discards every event. It stands in for Producer when Kafka is
// disabled.
type Noop struct{}

func (Noop) PublishCartUpdated(context.Context, string, string, *domain.Cart) error { return nil }
func (Noop) PublishCartCleared(context.Context, string, string) error               { return nil }
func (Noop) PublishOrderPlaced(context.Context, *domain.Order) error                { return nil }
func (Noop) PublishOrderPaid(context.Context, *domain.Order) error                  { return nil }

var (
	_ Publisher = (*Producer)(nil)
	_ Publisher = Noop{}
)
