package repository

import (
	"context"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
)

// CartRepository persists one cart blob per shopper session. Load returns
// carts passed through domain.Normalize, and an error wrapping
// apperrors.ErrNotFound when no usable cart is stored, including when the
// stored blob is malformed or corrupt. Save is last-write-wins.
type CartRepository interface {
	// Load retrieves the cart for a session.
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save stores the cart for a session, replacing any previous one.
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error

	// Delete removes the cart for a session.
	Delete(ctx context.Context, sessionID string) error
}

// OrderRepository is the local order log.
type OrderRepository interface {
	// Create appends an order. A duplicate ID yields a conflict error.
	Create(ctx context.Context, order *domain.Order) error

	// List returns the most recent limit orders, oldest first.
	List(ctx context.Context, limit int) ([]domain.Order, error)

	// GetByID retrieves a single order.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// UpdateStatus moves an order to status. Backward moves are rejected.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}
