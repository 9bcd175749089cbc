package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/event"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

// MaxQuantityPerLine caps absolute quantity updates.
const MaxQuantityPerLine = 99

// Cart mutation actions, used as event and metric labels.
const (
	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionSet    = "set"
	ActionRemove = "remove"
	ActionClear  = "clear"
)

// Reasons a cart is cleared.
const (
	ClearReasonUser     = "user"
	ClearReasonCheckout = "checkout"
)

// ErrItemNotFound is returned together with the unchanged cart when an update
// or removal names a line the cart does not hold. Callers treat it as a
// message, not a failure.
var ErrItemNotFound = errors.New("item not found in cart")

var cartMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Total number of cart mutations by action and result.",
	},
	[]string{"action", "result"},
)

// CatalogReader resolves variants for cart lines.
type CatalogReader interface {
	FindVariant(ctx context.Context, variantID string) (domain.Variant, domain.Product, error)
}

// CartService runs the pure cart operations against the persisted cart of a
// shopper session.
type CartService struct {
	repo    repository.CartRepository
	catalog CatalogReader
	events  event.Publisher
	logger  *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, catalog CatalogReader, events event.Publisher, logger *slog.Logger) *CartService {
	return &CartService{
		repo:    repo,
		catalog: catalog,
		events:  events,
		logger:  logger,
	}
}

// GetCart returns the session's cart priced at current catalog prices, or an
// empty one when none is stored. Lines whose merchandise the catalog no
// longer carries are dropped.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			empty := domain.NewEmptyCart()
			return &empty, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return cart, nil
	}

	var lookupErr error
	priced, dropped := domain.Reprice(*cart, func(key string) (domain.Variant, domain.ProductSnapshot, bool) {
		if lookupErr != nil {
			return domain.Variant{}, domain.ProductSnapshot{}, false
		}
		v, p, err := s.lookup(ctx, key)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				lookupErr = err
			}
			return domain.Variant{}, domain.ProductSnapshot{}, false
		}
		return v, p.Snapshot(), true
	})
	if lookupErr != nil {
		return nil, fmt.Errorf("price cart: %w", lookupErr)
	}
	if len(dropped) > 0 {
		s.logger.WarnContext(ctx, "dropped cart lines the catalog cannot price",
			slog.String("cart_id", cart.ID),
			slog.Any("merchandise_ids", dropped),
		)
	}
	return &priced, nil
}

// lookup resolves a line key. Keys synthesized for products without explicit
// variants resolve through the product ID.
func (s *CartService) lookup(ctx context.Context, key string) (domain.Variant, domain.Product, error) {
	v, p, err := s.catalog.FindVariant(ctx, key)
	if err == nil || !errors.Is(err, apperrors.ErrNotFound) {
		return v, p, err
	}
	if productID, ok := strings.CutSuffix(key, domain.DefaultVariantSuffix); ok && productID != "" {
		return s.catalog.FindVariant(ctx, productID)
	}
	return v, p, err
}

// AddItem adds one unit of the variant to the cart.
func (s *CartService) AddItem(ctx context.Context, sessionID, variantID string) (*domain.Cart, error) {
	if variantID == "" {
		return nil, apperrors.InvalidInput("selected variant id is required")
	}

	variant, product, err := s.catalog.FindVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !product.AvailableForSale {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s is not available for sale", product.Title))
	}
	if variant.PriceMissing {
		s.logger.WarnContext(ctx, "adding variant without a price",
			slog.String("variant_id", variant.ID),
			slog.String("product_id", product.ID),
		)
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, ActionAdd, *cart, domain.AddMutation(variant, product.Snapshot()))
}

// UpdateItem applies a plus, minus or delete to a line.
func (s *CartService) UpdateItem(ctx context.Context, sessionID, merchandiseID string, updateType domain.UpdateType) (*domain.Cart, error) {
	if merchandiseID == "" {
		return nil, apperrors.InvalidInput("merchandise id is required")
	}
	if !updateType.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown update type %q", updateType))
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := cart.FindLine(merchandiseID); !ok {
		return cart, ErrItemNotFound
	}

	action := ActionUpdate
	if updateType == domain.UpdateDelete {
		action = ActionRemove
	}
	return s.mutate(ctx, sessionID, action, *cart, domain.UpdateMutation(merchandiseID, updateType))
}

// RemoveItem deletes a line.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, merchandiseID string) (*domain.Cart, error) {
	return s.UpdateItem(ctx, sessionID, merchandiseID, domain.UpdateDelete)
}

// SetItemQuantity sets a line's quantity; zero removes it. A merchandise ID
// the cart does not hold yet is resolved through the catalog and added.
func (s *CartService) SetItemQuantity(ctx context.Context, sessionID, merchandiseID string, qty int) (*domain.Cart, error) {
	if merchandiseID == "" {
		return nil, apperrors.InvalidInput("merchandise id is required")
	}
	if qty < 0 || qty > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between 0 and %d", MaxQuantityPerLine))
	}

	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var (
		variant *domain.Variant
		product domain.ProductSnapshot
	)
	if _, ok := cart.FindLine(merchandiseID); !ok {
		if qty == 0 {
			return cart, ErrItemNotFound
		}
		v, p, err := s.catalog.FindVariant(ctx, merchandiseID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return cart, ErrItemNotFound
			}
			return nil, err
		}
		variant, product = &v, p.Snapshot()
	}

	return s.mutate(ctx, sessionID, ActionSet, *cart, domain.SetQuantityMutation(merchandiseID, qty, variant, product))
}

// ClearCart removes the session's cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if err := s.clear(ctx, sessionID, ClearReasonUser); err != nil {
		return nil, err
	}
	empty := domain.Clear()
	return &empty, nil
}

func (s *CartService) clear(ctx context.Context, sessionID, reason string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		cartMutations.WithLabelValues(ActionClear, "error").Inc()
		return fmt.Errorf("delete cart: %w", err)
	}
	cartMutations.WithLabelValues(ActionClear, "ok").Inc()

	s.logger.InfoContext(ctx, "cart cleared", slog.String("reason", reason))
	if err := s.events.PublishCartCleared(ctx, sessionID, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event", slog.String("error", err.Error()))
	}
	return nil
}

// mutate applies m speculatively over confirmed and persists the result.
// The speculative cart is dropped when the save fails.
func (s *CartService) mutate(ctx context.Context, sessionID, action string, confirmed domain.Cart, m domain.Mutation) (*domain.Cart, error) {
	opt := domain.NewOptimistic(confirmed)

	next, err := opt.Apply(m)
	if err != nil {
		cartMutations.WithLabelValues(action, "rejected").Inc()
		if errors.Is(err, domain.ErrCurrencyMismatch) {
			return nil, apperrors.Conflict(fmt.Sprintf("cart is priced in %s and cannot hold items in another currency", confirmed.Currency()))
		}
		return nil, err
	}

	if err := s.repo.Save(ctx, sessionID, &next); err != nil {
		kept := opt.Rollback()
		cartMutations.WithLabelValues(action, "error").Inc()
		s.logger.WarnContext(ctx, "cart save failed, keeping confirmed cart",
			slog.String("action", action),
			slog.String("cart_id", kept.ID),
			slog.Int("total_quantity", kept.TotalQuantity),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("save cart: %w", err)
	}
	opt.Settle(next)
	cartMutations.WithLabelValues(action, "ok").Inc()

	saved := opt.Confirmed()
	s.logger.InfoContext(ctx, "cart updated",
		slog.String("action", action),
		slog.String("cart_id", saved.ID),
		slog.Int("total_quantity", saved.TotalQuantity),
	)

	if err := s.events.PublishCartUpdated(ctx, sessionID, action, &saved); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event", slog.String("error", err.Error()))
	}
	return &saved, nil
}
