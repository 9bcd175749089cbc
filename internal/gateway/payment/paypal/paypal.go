// Package paypal is a minimal PayPal Orders v2 REST client.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httpclient"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/tracing"
)

// Base URLs per environment.
const (
	SandboxBaseURL    = "https://api.sandbox.paypal.com"
	ProductionBaseURL = "https://api.paypal.com"
)

const (
	providerName = "paypal"

	// tokenSkew renews the access token this long before PayPal expires it.
	tokenSkew = time.Minute
)

// Config holds PayPal client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Environment  string
	SiteURL      string
	BrandName    string

	// BaseURL overrides the environment's API host.
	BaseURL string
}

// Client talks to the PayPal REST API.
type Client struct {
	cfg     Config
	baseURL string
	http    httpclient.Doer
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a PayPal client.
func New(cfg Config, doer httpclient.Doer, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = SandboxBaseURL
		if cfg.Environment == "production" {
			base = ProductionBaseURL
		}
	}
	if cfg.BrandName == "" {
		cfg.BrandName = "VyBrows Store"
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = "http://localhost:3000"
	}
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(base, "/"),
		http:    doer,
		logger:  logger,
		now:     time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return providerName }

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type purchaseUnit struct {
	Amount struct {
		money
		Breakdown struct {
			ItemTotal money `json:"item_total"`
		} `json:"breakdown"`
	} `json:"amount"`
	Items []item `json:"items"`
}

type item struct {
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	UnitAmount money  `json:"unit_amount"`
}

type applicationContext struct {
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	UserAction string `json:"user_action"`
	BrandName  string `json:"brand_name"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href   string `json:"href"`
		Rel    string `json:"rel"`
		Method string `json:"method"`
	} `json:"links"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID         string `json:"id"`
				Status     string `json:"status"`
				Amount     money  `json:"amount"`
				CreateTime string `json:"create_time"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateOrder creates a CAPTURE-intent order with one item.
func (c *Client) CreateOrder(ctx context.Context, in payment.OrderInput) (order *payment.Order, err error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "paypal.CreateOrder")
	defer func() { tracing.End(span, err) }()

	var unit purchaseUnit
	unit.Amount.money = money{CurrencyCode: in.Currency, Value: in.Total}
	unit.Amount.Breakdown.ItemTotal = money{CurrencyCode: in.Currency, Value: in.Total}
	unit.Items = []item{{
		Name:       payment.TruncateName(in.Title),
		Quantity:   fmt.Sprintf("%d", in.Quantity),
		UnitAmount: money{CurrencyCode: in.Currency, Value: in.UnitPrice},
	}}

	body := createOrderRequest{
		Intent:        "CAPTURE",
		PurchaseUnits: []purchaseUnit{unit},
		ApplicationContext: applicationContext{
			ReturnURL:  c.cfg.SiteURL + "/checkout/success",
			CancelURL:  c.cfg.SiteURL + "/checkout/cancel",
			UserAction: "PAY_NOW",
			BrandName:  c.cfg.BrandName,
		},
	}

	var out orderResponse
	if err := c.call(ctx, "/v2/checkout/orders", body, uuid.NewString(), &out); err != nil {
		return nil, err
	}

	order = &payment.Order{ID: out.ID, Status: out.Status}
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			order.ApproveURL = l.Href
			break
		}
	}

	c.logger.InfoContext(ctx, "paypal order created",
		slog.String("paypal_order_id", order.ID),
		slog.String("status", order.Status),
	)
	return order, nil
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (result *payment.CaptureResult, err error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, apperrors.InvalidInput("payment order id is required")
	}

	ctx, span := tracing.Start(ctx, "paypal.CaptureOrder")
	defer func() { tracing.End(span, err) }()

	var out captureResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.call(ctx, path, nil, "capture-"+orderID, &out); err != nil {
		switch {
		case hasCode(err, payment.ErrOrderAlreadyCaptured.Code):
			return nil, payment.ErrOrderAlreadyCaptured
		case hasCode(err, payment.ErrOrderNotApproved.Code):
			return nil, payment.ErrOrderNotApproved
		}
		return nil, err
	}

	if len(out.PurchaseUnits) == 0 || len(out.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, apperrors.PaymentFailed("invalid capture response from paypal")
	}
	capture := out.PurchaseUnits[0].Payments.Captures[0]

	c.logger.InfoContext(ctx, "paypal payment captured",
		slog.String("paypal_order_id", out.ID),
		slog.String("capture_id", capture.ID),
	)

	return &payment.CaptureResult{
		OrderID:   out.ID,
		CaptureID: capture.ID,
		Status:    capture.Status,
		Amount:    capture.Amount.Value,
		Currency:  capture.Amount.CurrencyCode,
		CreatedAt: capture.CreateTime,
	}, nil
}

// call POSTs body as JSON to path with a bearer token and decodes the answer
// into dst. requestID makes the call safe to retry.
func (c *Client) call(ctx context.Context, path string, body any, requestID string, dst any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal paypal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PayPal-Request-Id", requestID)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return payment.Unavailable(providerName, err)
	}
	return httpclient.DecodeJSON(resp, providerName, dst)
}

// accessToken returns a cached OAuth2 client-credentials token, fetching a
// new one when it is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create paypal token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", payment.Unavailable(providerName, err)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := httpclient.DecodeJSON(resp, providerName, &out); err != nil {
		c.logger.ErrorContext(ctx, "failed to authenticate with paypal", slog.String("error", err.Error()))
		return "", fmt.Errorf("paypal authentication: %w", err)
	}
	if out.AccessToken == "" {
		return "", apperrors.PaymentFailed("paypal returned an empty access token")
	}

	c.token = out.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenSkew)
	return c.token, nil
}

func hasCode(err error, code string) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

var _ payment.Provider = (*Client)(nil)
