package paypal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httpclient"
)

type fakePayPal struct {
	tokenCalls   atomic.Int32
	captureCalls atomic.Int32
	lastCreate   atomic.Value
	captureIssue string
	requestIDs   chan string
}

func (f *fakePayPal) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		_ = r.ParseForm()
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})
	mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("PayPal-Request-Id"))
		raw, _ := io.ReadAll(r.Body)
		f.lastCreate.Store(string(raw))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"PP-123","status":"CREATED","links":[{"href":"https://paypal.example/self","rel":"self","method":"GET"},{"href":"https://paypal.example/approve","rel":"approve","method":"GET"}]}`))
	})
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		f.captureCalls.Add(1)
		if f.requestIDs != nil {
			f.requestIDs <- r.Header.Get("PayPal-Request-Id")
		}
		if f.captureIssue != "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"` + f.captureIssue + `","description":"nope"}]}`))
			return
		}
		id := r.PathValue("id")
		_, _ = w.Write([]byte(`{"id":"` + id + `","status":"COMPLETED","purchase_units":[{"payments":{"captures":[{"id":"CAP-1","status":"COMPLETED","amount":{"currency_code":"USD","value":"36.00"},"create_time":"2026-01-02T03:04:05Z"}]}}]}`))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakePayPal) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	cfg := httpclient.DefaultConfig()
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = time.Millisecond
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	doer := httpclient.NewCircuitBreakerClient(httpclient.New(cfg), httpclient.DefaultCircuitBreakerConfig("paypal-test-"+t.Name()), logger)

	return New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		SiteURL:      "https://vybrows.example",
		BaseURL:      server.URL,
	}, doer, logger)
}

func sampleInput() payment.OrderInput {
	return payment.OrderInput{
		Title:     "Brow Pencil",
		Quantity:  2,
		UnitPrice: "18.00",
		Total:     "36.00",
		Currency:  "USD",
	}
}

func TestNew_BaseURLByEnvironment(t *testing.T) {
	assert.Equal(t, SandboxBaseURL, New(Config{Environment: "sandbox"}, nil, nil).baseURL)
	assert.Equal(t, ProductionBaseURL, New(Config{Environment: "production"}, nil, nil).baseURL)
	assert.Equal(t, "http://local", New(Config{BaseURL: "http://local/"}, nil, nil).baseURL)
	assert.Equal(t, "paypal", New(Config{}, nil, nil).Name())
}

func TestClient_CreateOrder(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	order, err := c.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "PP-123", order.ID)
	assert.Equal(t, "CREATED", order.Status)
	assert.Equal(t, "https://paypal.example/approve", order.ApproveURL)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.lastCreate.Load().(string)), &sent))
	assert.Equal(t, "CAPTURE", sent["intent"])

	units := sent["purchase_units"].([]any)
	require.Len(t, units, 1)
	unit := units[0].(map[string]any)
	amount := unit["amount"].(map[string]any)
	assert.Equal(t, "36.00", amount["value"])
	assert.Equal(t, "USD", amount["currency_code"])
	items := unit["items"].([]any)
	require.Len(t, items, 1)
	it := items[0].(map[string]any)
	assert.Equal(t, "Brow Pencil", it["name"])
	assert.Equal(t, "2", it["quantity"])

	appCtx := sent["application_context"].(map[string]any)
	assert.Equal(t, "https://vybrows.example/checkout/success", appCtx["return_url"])
	assert.Equal(t, "https://vybrows.example/checkout/cancel", appCtx["cancel_url"])
	assert.Equal(t, "VyBrows Store", appCtx["brand_name"])
}

func TestClient_CreateOrder_TruncatesTitle(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	in := sampleInput()
	in.Title = strings.Repeat("x", 200)
	_, err := c.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	var sent createOrderRequest
	require.NoError(t, json.Unmarshal([]byte(f.lastCreate.Load().(string)), &sent))
	assert.Len(t, sent.PurchaseUnits[0].Items[0].Name, payment.MaxItemNameLength)
}

func TestClient_CreateOrder_InvalidInput(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	in := sampleInput()
	in.Quantity = 0
	_, err := c.CreateOrder(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, int32(0), f.tokenCalls.Load())
}

func TestClient_TokenIsCached(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	_, err := c.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)
	_, err = c.CaptureOrder(context.Background(), "PP-123")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenCalls.Load())

	// Past expiry a new token is fetched.
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = c.CreateOrder(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestClient_CaptureOrder(t *testing.T) {
	f := &fakePayPal{requestIDs: make(chan string, 1)}
	c := newTestClient(t, f)

	res, err := c.CaptureOrder(context.Background(), "PP-123")
	require.NoError(t, err)
	assert.Equal(t, &payment.CaptureResult{
		OrderID:   "PP-123",
		CaptureID: "CAP-1",
		Status:    "COMPLETED",
		Amount:    "36.00",
		Currency:  "USD",
		CreatedAt: "2026-01-02T03:04:05Z",
	}, res)
	assert.Equal(t, "capture-PP-123", <-f.requestIDs)
}

func TestClient_CaptureOrder_KnownIssues(t *testing.T) {
	tests := []struct {
		issue string
		want  error
	}{
		{"ORDER_ALREADY_CAPTURED", payment.ErrOrderAlreadyCaptured},
		{"ORDER_NOT_APPROVED", payment.ErrOrderNotApproved},
	}

	for _, tc := range tests {
		t.Run(tc.issue, func(t *testing.T) {
			f := &fakePayPal{captureIssue: tc.issue}
			c := newTestClient(t, f)

			_, err := c.CaptureOrder(context.Background(), "PP-123")
			require.Error(t, err)
			assert.Equal(t, tc.want, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
		})
	}
}

func TestClient_CaptureOrder_OtherIssue(t *testing.T) {
	f := &fakePayPal{captureIssue: "INSTRUMENT_DECLINED"}
	c := newTestClient(t, f)

	_, err := c.CaptureOrder(context.Background(), "PP-123")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestClient_CaptureOrder_EmptyID(t *testing.T) {
	f := &fakePayPal{}
	c := newTestClient(t, f)

	_, err := c.CaptureOrder(context.Background(), " ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, int32(0), f.captureCalls.Load())
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(Config{ClientID: "a", ClientSecret: "b", BaseURL: base},
		httpclient.NewCircuitBreakerClient(httpclient.New(cfg), httpclient.DefaultCircuitBreakerConfig("paypal-down"), logger), logger)

	_, err := c.CreateOrder(context.Background(), sampleInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}
