// Package ledger records placed orders in the external order ledger, a
// spreadsheet web-app endpoint that appends one row per order.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httpclient"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/tracing"
)

var (
	// ErrLedgerUnavailable means the ledger could not be reached: it is not
	// configured, the transport failed, or its circuit is open.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrLedgerRejected means the ledger answered but refused the order.
	ErrLedgerRejected = errors.New("ledger rejected order")
)

const maxResponseBody = 64 << 10

// Customer is the buyer block of a ledger row.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Item is one order line of a ledger row.
type Item struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// LedgerOrder is the payload appended to the ledger.
type LedgerOrder struct {
	CustomerInfo Customer `json:"customerInfo"`
	Items        []Item   `json:"items"`
	Total        string   `json:"total"`
	Timestamp    string   `json:"timestamp,omitempty"`
}

// LedgerReceipt confirms a recorded order.
type LedgerReceipt struct {
	Timestamp      string `json:"timestamp"`
	SpreadsheetURL string `json:"spreadsheetUrl,omitempty"`
}

type ledgerResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
	SpreadsheetURL string `json:"spreadsheetUrl"`
}

// FromOrder converts an order record into a ledger row.
func FromOrder(o domain.Order) LedgerOrder {
	items := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, Item{Title: it.Title, Quantity: it.Quantity, Price: it.Price})
	}
	return LedgerOrder{
		CustomerInfo: Customer{Name: o.CustomerInfo.Name, Email: o.CustomerInfo.Email},
		Items:        items,
		Total:        o.Total,
		Timestamp:    o.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Ledger posts orders to the ledger endpoint.
type Ledger struct {
	url    string
	client httpclient.Doer
	logger *slog.Logger
}

// New creates a ledger gateway. An empty url disables the ledger.
func New(url string, client httpclient.Doer, logger *slog.Logger) *Ledger {
	return &Ledger{url: url, client: client, logger: logger}
}

// Enabled reports whether a ledger endpoint is configured.
func (l *Ledger) Enabled() bool {
	return l.url != ""
}

// Record appends order to the ledger.
func (l *Ledger) Record(ctx context.Context, order LedgerOrder) (receipt *LedgerReceipt, err error) {
	if !l.Enabled() {
		return nil, fmt.Errorf("%w: no ledger endpoint configured", ErrLedgerUnavailable)
	}

	ctx, span := tracing.Start(ctx, "ledger.Record")
	defer func() { tracing.End(span, err) }()

	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrLedgerUnavailable, err)
	}

	var out ledgerResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, fmt.Errorf("%w: malformed response: %w", ErrLedgerRejected, err)
		}
		out.Message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Success {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		l.logger.WarnContext(ctx, "ledger rejected order",
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg),
		)
		return nil, fmt.Errorf("%w: %s", ErrLedgerRejected, msg)
	}

	receipt = &LedgerReceipt{Timestamp: out.Timestamp, SpreadsheetURL: out.SpreadsheetURL}
	if receipt.Timestamp == "" {
		receipt.Timestamp = order.Timestamp
	}
	return receipt, nil
}
