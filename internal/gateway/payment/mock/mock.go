// Package mock is a payment provider that approves and captures every order
// without contacting anyone. It backs local development and demos.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

// Provider is an in-memory payment.Provider.
type Provider struct {
	mu       sync.Mutex
	orders   map[string]payment.OrderInput
	captured map[string]bool
	now      func() time.Time
}

// New creates a mock provider.
func New() *Provider {
	return &Provider{
		orders:   make(map[string]payment.OrderInput),
		captured: make(map[string]bool),
		now:      time.Now,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "mock" }

// CreateOrder records the order and returns it as already approved.
func (p *Provider) CreateOrder(_ context.Context, in payment.OrderInput) (*payment.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id := "MOCK-" + strings.ToUpper(uuid.NewString()[:8])

	p.mu.Lock()
	p.orders[id] = in
	p.mu.Unlock()

	return &payment.Order{ID: id, Status: "APPROVED"}, nil
}

// CaptureOrder captures a previously created order. Capturing twice yields
// payment.ErrOrderAlreadyCaptured, as a real provider would.
func (p *Provider) CaptureOrder(_ context.Context, orderID string) (*payment.CaptureResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, apperrors.InvalidInput("payment order id is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.captured[orderID] {
		return nil, payment.ErrOrderAlreadyCaptured
	}
	p.captured[orderID] = true

	in := p.orders[orderID]
	return &payment.CaptureResult{
		OrderID:   orderID,
		CaptureID: "CAP-" + uuid.NewString(),
		Status:    "COMPLETED",
		Amount:    in.Total,
		Currency:  in.Currency,
		CreatedAt: p.now().UTC().Format(time.RFC3339),
	}, nil
}

var _ payment.Provider = (*Provider)(nil)
