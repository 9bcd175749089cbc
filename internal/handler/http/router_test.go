package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/catalog"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/event"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/ledger"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment/mock"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository/cookie"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/repository/memory"
	"github.com/Vuongsinguyen/VyBrows-Store/internal/service"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/health"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httputil"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/middleware"
)

// ============================================================================
// Test helpers
// ============================================================================

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

type cartBody struct {
	domain.Cart
	Message string `json:"message"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func usd(amount string) domain.Money {
	return domain.Money{Amount: amount, CurrencyCode: "USD"}
}

func testProducts() []domain.Product {
	return []domain.Product{
		{
			ID:               "1",
			Handle:           "brow-pencil",
			Title:            "Brow Pencil",
			Description:      "Fine tip pencil",
			Tags:             []string{"brows"},
			AvailableForSale: true,
			PriceRange:       domain.PriceRange{MinVariantPrice: usd("20"), MaxVariantPrice: usd("20")},
			Variants: []domain.Variant{
				{ID: "variant-1", Title: "Taupe", Price: usd("20")},
			},
		},
		{
			ID:               "2",
			Handle:           "lash-serum",
			Title:            "Lash Serum",
			Tags:             []string{"lashes"},
			AvailableForSale: true,
			PriceRange:       domain.PriceRange{MinVariantPrice: usd("35"), MaxVariantPrice: usd("35")},
			Variants: []domain.Variant{
				{ID: "variant-2", Title: "Default", Price: usd("35")},
			},
		},
		{
			ID:               "3",
			Handle:           "brow-gel",
			Title:            "Brow Gel",
			Tags:             []string{"brows"},
			AvailableForSale: false,
			Variants: []domain.Variant{
				{ID: "variant-3", Title: "Clear", Price: usd("12.5")},
			},
		},
	}
}

type testServer struct {
	*httptest.Server
	client *http.Client
	orders *memory.OrderRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithOptions(t, DefaultOptions())
}

func newTestServerWithOptions(t *testing.T, opts Options) *testServer {
	t.Helper()
	logger := testLogger()

	store := catalog.NewStoreFromProducts(testProducts(), logger)
	carts := cookie.NewCartRepository(cookie.Config{}, logger)
	orders := memory.NewOrderRepository()

	cartService := service.NewCartService(carts, store, event.Noop{}, logger)
	checkoutService := service.NewCheckoutService(
		cartService,
		orders,
		ledger.New("", nil, logger),
		mock.New(),
		event.Noop{},
		logger,
	)

	router := NewRouter(store, cartService, checkoutService, health.NewHandler(), logger, opts)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		Server: srv,
		client: &http.Client{Jar: jar},
		orders: orders,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (s *testServer) addItem(t *testing.T, variantID string) cartBody {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/api/v1/cart/items", map[string]string{"selectedVariantId": variantID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeData[cartBody](t, env)
}

// ============================================================================
// Catalog
// ============================================================================

func TestListProducts_Paginates(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/v1/products?per_page=2&page=1", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "public")

	type page struct {
		Items      []domain.Product `json:"items"`
		TotalCount int              `json:"total_count"`
		HasNext    bool             `json:"has_next"`
	}
	result := decodeData[page](t, env)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 3, result.TotalCount)
	assert.True(t, result.HasNext)
}

func TestListProducts_FiltersByQueryAndTag(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodGet, "/api/v1/products?q=serum", nil)
	result := decodeData[struct {
		Items []domain.Product `json:"items"`
	}](t, env)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "lash-serum", result.Items[0].Handle)

	_, env = s.do(t, http.MethodGet, "/api/v1/products?tag=brows", nil)
	result = decodeData[struct {
		Items []domain.Product `json:"items"`
	}](t, env)
	assert.Len(t, result.Items, 2)
}

func TestListProducts_InvalidSort(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/v1/products?sort=cheapest", nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_PARAMETER", env.Error.Code)
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/v1/products/lash-serum", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", decodeData[domain.Product](t, env).ID)

	resp, env = s.do(t, http.MethodGet, "/api/v1/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestRecommendations_ExcludeProduct(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/v1/products/brow-pencil/recommendations", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := decodeData[[]domain.Product](t, env)
	require.Len(t, products, 2)
	assert.Equal(t, "2", products[0].ID)
	assert.Equal(t, "3", products[1].ID)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/products/brow-pencil/recommendations?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCollections(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodGet, "/api/v1/collections", nil)
	assert.Equal(t, []string{"brows", "lashes"}, decodeData[[]string](t, env))

	resp, env := s.do(t, http.MethodGet, "/api/v1/collections/lashes/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeData[struct {
		Items []domain.Product `json:"items"`
	}](t, env)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "2", result.Items[0].ID)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/collections/lips/products", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRevalidate_WithoutSourceFile(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPost, "/api/v1/revalidate", nil)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

// ============================================================================
// Cart
// ============================================================================

func TestGetCart_EmptyIssuesSession(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/v1/cart", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var sessionCookie bool
	for _, c := range resp.Cookies() {
		if c.Name == "cart_session" {
			sessionCookie = true
		}
	}
	assert.True(t, sessionCookie)

	cart := decodeData[cartBody](t, env)
	assert.Equal(t, CheckoutPath, cart.CheckoutURL)
	assert.Equal(t, 0, cart.TotalQuantity)
	assert.NotNil(t, cart.Lines)
}

func TestCart_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	cart := s.addItem(t, "variant-1")
	assert.Equal(t, 1, cart.TotalQuantity)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "variant-1", cart.Lines[0].Merchandise.ID)
	assert.NotEmpty(t, cart.ID)

	cart = s.addItem(t, "variant-1")
	assert.Equal(t, 2, cart.TotalQuantity)
	require.Len(t, cart.Lines, 1)

	cart = s.addItem(t, "variant-2")
	assert.Equal(t, 3, cart.TotalQuantity)
	assert.Len(t, cart.Lines, 2)

	resp, env := s.do(t, http.MethodPatch, "/api/v1/cart/items/variant-1", map[string]string{"updateType": "plus"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, decodeData[cartBody](t, env).TotalQuantity)

	resp, env = s.do(t, http.MethodPut, "/api/v1/cart/items/variant-1", map[string]int{"quantity": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 6, decodeData[cartBody](t, env).TotalQuantity)

	resp, env = s.do(t, http.MethodDelete, "/api/v1/cart/items/variant-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart = decodeData[cartBody](t, env)
	assert.Equal(t, 5, cart.TotalQuantity)
	assert.Len(t, cart.Lines, 1)

	// The cart survives across requests through the cookie.
	_, env = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 5, decodeData[cartBody](t, env).TotalQuantity)

	resp, env = s.do(t, http.MethodDelete, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decodeData[cartBody](t, env).TotalQuantity)

	_, env = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeData[cartBody](t, env).Lines)
}

func TestRemoveItem_MissingLineIsNotAnError(t *testing.T) {
	s := newTestServer(t)
	s.addItem(t, "variant-1")

	resp, env := s.do(t, http.MethodDelete, "/api/v1/cart/items/variant-9", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart := decodeData[cartBody](t, env)
	assert.Equal(t, "Item not found in cart", cart.Message)
	assert.Equal(t, 1, cart.TotalQuantity)
}

func TestAddItem_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"missing variant", map[string]string{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown variant", map[string]string{"selectedVariantId": "variant-9"}, http.StatusNotFound, "NOT_FOUND"},
		{"unavailable product", map[string]string{"selectedVariantId": "variant-3"}, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			resp, env := s.do(t, http.MethodPost, "/api/v1/cart/items", tt.body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestAddItem_ValidationFields(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodPost, "/api/v1/cart/items", map[string]string{})

	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Fields, "selectedVariantId")
}

func TestUpdateItem_InvalidUpdateType(t *testing.T) {
	s := newTestServer(t)
	s.addItem(t, "variant-1")

	resp, env := s.do(t, http.MethodPatch, "/api/v1/cart/items/variant-1", map[string]string{"updateType": "double"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestSetItemQuantity_OutOfRange(t *testing.T) {
	s := newTestServer(t)
	s.addItem(t, "variant-1")

	resp, _ := s.do(t, http.MethodPut, "/api/v1/cart/items/variant-1", map[string]int{"quantity": 100})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPut, "/api/v1/cart/items/variant-1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContentTypeJSON_RejectsForms(t *testing.T) {
	s := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/v1/cart/items", strings.NewReader("selectedVariantId=variant-1"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

// ============================================================================
// Checkout and orders
// ============================================================================

func TestPlaceOrder_FallsBackToOrderLog(t *testing.T) {
	s := newTestServer(t)
	s.addItem(t, "variant-1")

	resp, env := s.do(t, http.MethodPost, "/api/v1/checkout/orders", map[string]any{
		"customerInfo": map[string]string{"name": "Vy", "email": "vy@example.com"},
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	result := decodeData[service.PlaceOrderResult](t, env)
	assert.True(t, strings.HasPrefix(result.OrderID, "ORD-"))
	assert.Equal(t, domain.OrderSourceOrderLog, result.Source)

	_, env = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeData[cartBody](t, env).Lines)

	resp, env = s.do(t, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orders := decodeData[[]domain.Order](t, env)
	require.Len(t, orders, 1)
	assert.Equal(t, result.OrderID, orders[0].ID)
	assert.Equal(t, "vy@example.com", orders[0].CustomerInfo.Email)
	assert.Equal(t, domain.OrderStatusPending, orders[0].Status)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPost, "/api/v1/checkout/orders", map[string]any{
		"customerInfo": map[string]string{"name": "Vy", "email": "vy@example.com"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)

	s.addItem(t, "variant-1")
	resp, env = s.do(t, http.MethodPost, "/api/v1/checkout/orders", map[string]any{
		"customerInfo": map[string]string{"name": "Vy", "email": "not-an-email"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	// The cart is kept when the order is refused.
	_, env = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 1, decodeData[cartBody](t, env).TotalQuantity)
}

func TestPaymentFlow(t *testing.T) {
	s := newTestServer(t)
	s.addItem(t, "variant-2")

	resp, env := s.do(t, http.MethodPost, "/api/v1/checkout/paypal/orders", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decodeData[payment.Order](t, env)
	require.True(t, strings.HasPrefix(order.ID, "MOCK-"))

	resp, env = s.do(t, http.MethodPost, "/api/v1/checkout/paypal/orders/"+order.ID+"/capture", map[string]any{
		"customerInfo": map[string]string{"name": "Vy", "email": "vy@example.com"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	outcome := decodeData[service.CaptureOutcome](t, env)
	require.NotNil(t, outcome.Capture)
	assert.Equal(t, "COMPLETED", outcome.Capture.Status)
	assert.Equal(t, "35.00", outcome.Capture.Amount)
	assert.NotEmpty(t, outcome.OrderID)

	paid, err := s.orders.GetByID(t.Context(), outcome.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)
	assert.Equal(t, order.ID, paid.PaymentID)

	_, env = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeData[cartBody](t, env).Lines)

	resp, env = s.do(t, http.MethodPost, "/api/v1/checkout/paypal/orders/"+order.ID+"/capture", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
}

func TestCreatePaymentOrder_EmptyCart(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPost, "/api/v1/checkout/paypal/orders", nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
}

func TestCheckout_RateLimited(t *testing.T) {
	opts := DefaultOptions()
	opts.CheckoutRateLimit = middleware.RateLimitConfig{RPS: 0.01, Burst: 2}
	s := newTestServerWithOptions(t, opts)

	for range 2 {
		resp, _ := s.do(t, http.MethodPost, "/api/v1/checkout/paypal/orders", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	resp, env := s.do(t, http.MethodPost, "/api/v1/checkout/paypal/orders", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	// Cart routes are not throttled.
	resp, _ = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateOrderStatus(t *testing.T) {
	s := newTestServer(t)
	s.addItem(t, "variant-1")
	_, env := s.do(t, http.MethodPost, "/api/v1/checkout/orders", map[string]any{
		"customerInfo": map[string]string{"name": "Vy", "email": "vy@example.com"},
	})
	orderID := decodeData[service.PlaceOrderResult](t, env).OrderID

	resp, env := s.do(t, http.MethodPatch, "/api/v1/orders/"+orderID, map[string]string{"status": "shipped"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.OrderStatusShipped, decodeData[domain.Order](t, env).Status)

	resp, _ = s.do(t, http.MethodPatch, "/api/v1/orders/"+orderID, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPatch, "/api/v1/orders/"+orderID, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPatch, "/api/v1/orders/ORD-1", map[string]string{"status": "paid"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetOrder(t *testing.T) {
	s := newTestServer(t)
	s.addItem(t, "variant-1")
	_, env := s.do(t, http.MethodPost, "/api/v1/checkout/orders", map[string]any{
		"customerInfo": map[string]string{"name": "Vy", "email": "vy@example.com"},
	})
	orderID := decodeData[service.PlaceOrderResult](t, env).OrderID

	resp, env := s.do(t, http.MethodGet, "/api/v1/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order := decodeData[domain.Order](t, env)
	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, "vy@example.com", order.CustomerInfo.Email)

	resp, env = s.do(t, http.MethodGet, "/api/v1/orders/ORD-404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
}

func TestListOrders_InvalidLimit(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/v1/orders?limit=abc", nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)

	resp, env = s.do(t, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(env.Data))
}

func TestHealthLive(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.client.Get(s.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
