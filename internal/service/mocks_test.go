package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/ledger"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment"
)

// --- Mock Repositories ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, sessionID string, cart *domain.Cart) error {
	args := m.Called(ctx, sessionID, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) List(ctx context.Context, limit int) ([]domain.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// --- Mock Gateways ---

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) FindVariant(ctx context.Context, variantID string) (domain.Variant, domain.Product, error) {
	args := m.Called(ctx, variantID)
	return args.Get(0).(domain.Variant), args.Get(1).(domain.Product), args.Error(2)
}

// stock makes the catalog resolve each variant by its ID in any context.
func (m *mockCatalog) stock(variants ...domain.Variant) {
	for _, v := range variants {
		m.On("FindVariant", mock.Anything, v.ID).Return(v, testProduct(v), nil)
	}
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Record(ctx context.Context, order ledger.LedgerOrder) (*ledger.LedgerReceipt, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerReceipt), args.Error(1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "test" }

func (m *mockProvider) CreateOrder(ctx context.Context, in payment.OrderInput) (*payment.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Order), args.Error(1)
}

func (m *mockProvider) CaptureOrder(ctx context.Context, orderID string) (*payment.CaptureResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CaptureResult), args.Error(1)
}

// --- Recording Publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
	return p.err
}

func (p *recordingPublisher) PublishCartUpdated(_ context.Context, _, action string, _ *domain.Cart) error {
	return p.record("cart.updated:" + action)
}

func (p *recordingPublisher) PublishCartCleared(_ context.Context, _, reason string) error {
	return p.record("cart.cleared:" + reason)
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, o *domain.Order) error {
	return p.record("order.placed:" + o.Source)
}

func (p *recordingPublisher) PublishOrderPaid(_ context.Context, o *domain.Order) error {
	return p.record("order.paid:" + o.Source)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func usd(amount string) domain.Money {
	return domain.NewMoney(decimal.RequireFromString(amount), "USD")
}

func testVariant(id, amount string) domain.Variant {
	return domain.Variant{
		ID:               id,
		Title:            "Taupe",
		AvailableForSale: true,
		SelectedOptions:  []domain.SelectedOption{{Name: "Shade", Value: "Taupe"}},
		Price:            usd(amount),
	}
}

func testProduct(v ...domain.Variant) domain.Product {
	return domain.Product{
		ID:               "1",
		Handle:           "brow-pencil",
		Title:            "Brow Pencil",
		AvailableForSale: true,
		Variants:         v,
	}
}

// cartWith builds a cart holding qty units of a variant priced at amount.
func cartWith(variantID, amount string, qty int) *domain.Cart {
	v := testVariant(variantID, amount)
	p := testProduct(v).Snapshot()
	c := domain.NewEmptyCart()
	var err error
	for range qty {
		c, err = domain.Add(c, v, p)
		if err != nil {
			panic(err)
		}
	}
	return &c
}
