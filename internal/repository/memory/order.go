package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

// OrderRepository is an in-process order log used when no database is
// configured. Orders are kept in insertion order and lost on restart.
type OrderRepository struct {
	mu     sync.RWMutex
	orders []domain.Order
	byID   map[string]int
}

// NewOrderRepository creates an empty in-memory order log.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byID: make(map[string]int)}
}

// Create appends an order.
func (r *OrderRepository) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[o.ID]; ok {
		return apperrors.Conflict(fmt.Sprintf("order %q already exists", o.ID))
	}

	r.byID[o.ID] = len(r.orders)
	r.orders = append(r.orders, cloneOrder(*o))
	return nil
}

// List returns the most recent limit orders, oldest first.
func (r *OrderRepository) List(_ context.Context, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		return []domain.Order{}, nil
	}
	start := max(len(r.orders)-limit, 0)

	out := make([]domain.Order, 0, len(r.orders)-start)
	for _, o := range r.orders[start:] {
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

// GetByID retrieves a single order.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	o := cloneOrder(r.orders[idx])
	return &o, nil
}

// UpdateStatus moves an order forward to status.
func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}

	current := r.orders[idx].Status
	if !current.CanTransitionTo(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot move order from %s to %s", current, status))
	}

	r.orders[idx].Status = status
	o := cloneOrder(r.orders[idx])
	return &o, nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return o
}
