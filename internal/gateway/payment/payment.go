// Package payment defines the hosted payment provider used for pay-now
// checkout and the errors providers share.
package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

// MaxItemNameLength is the longest item name providers accept.
const MaxItemNameLength = 127

// Provider errors.
var (
	ErrOrderAlreadyCaptured = &apperrors.AppError{
		Code:    "ORDER_ALREADY_CAPTURED",
		Message: "order has already been captured",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
	ErrOrderNotApproved = &apperrors.AppError{
		Code:    "ORDER_NOT_APPROVED",
		Message: "order was not approved by the customer",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrInvalidInput,
	}
)

// OrderInput describes the single item a payment order is created for.
type OrderInput struct {
	Title     string
	Quantity  int
	UnitPrice string
	Total     string
	Currency  string
}

// Validate checks the input is complete.
func (in OrderInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return apperrors.InvalidInput("payment item title is required")
	case in.Quantity <= 0:
		return apperrors.InvalidInput("payment item quantity must be positive")
	case in.Total == "" || in.UnitPrice == "":
		return apperrors.InvalidInput("payment amount is required")
	case in.Currency == "":
		return apperrors.InvalidInput("payment currency is required")
	}
	return nil
}

// OrderInputFromLine builds a payment order for one cart line. The unit
// price is the line total divided by its quantity, rounded to cents, and the
// total is that unit price times the quantity so the two always agree.
func OrderInputFromLine(l domain.LineItem) OrderInput {
	title := l.Merchandise.Product.Title
	if title == "" {
		title = l.Merchandise.Title
	}
	unit := l.Cost.TotalAmount.Decimal().Round(2)
	total := unit
	if l.Quantity > 0 {
		qty := decimal.NewFromInt(int64(l.Quantity))
		unit = l.Cost.TotalAmount.Decimal().DivRound(qty, 2)
		total = unit.Mul(qty)
	}
	return OrderInput{
		Title:     TruncateName(title),
		Quantity:  l.Quantity,
		UnitPrice: unit.StringFixed(2),
		Total:     total.StringFixed(2),
		Currency:  l.Cost.TotalAmount.Currency(),
	}
}

// TruncateName cuts name to MaxItemNameLength runes.
func TruncateName(name string) string {
	r := []rune(name)
	if len(r) <= MaxItemNameLength {
		return name
	}
	return string(r[:MaxItemNameLength])
}

// Order is a created payment order awaiting buyer approval.
type Order struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ApproveURL string `json:"approveUrl,omitempty"`
}

// CaptureResult describes a captured payment.
type CaptureResult struct {
	OrderID   string `json:"orderId"`
	CaptureID string `json:"captureId"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Provider creates and captures payment orders.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, in OrderInput) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
}

// Unavailable wraps a transport failure talking to provider.
func Unavailable(provider string, err error) error {
	return &apperrors.AppError{
		Code:    "PAYMENT_PROVIDER_UNAVAILABLE",
		Message: fmt.Sprintf("%s is temporarily unavailable", provider),
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", apperrors.ErrServiceUnavail, err),
	}
}
