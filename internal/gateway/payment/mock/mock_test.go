package mock

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/gateway/payment"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

func TestProvider_CreateAndCapture(t *testing.T) {
	p := New()
	ctx := context.Background()
	assert.Equal(t, "mock", p.Name())

	order, err := p.CreateOrder(ctx, payment.OrderInput{
		Title: "Lash Serum", Quantity: 1, UnitPrice: "35.00", Total: "35.00", Currency: "USD",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.ID, "MOCK-"))

	res, err := p.CaptureOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, res.OrderID)
	assert.Equal(t, "COMPLETED", res.Status)
	assert.Equal(t, "35.00", res.Amount)
	assert.Equal(t, "USD", res.Currency)

	_, err = p.CaptureOrder(ctx, order.ID)
	assert.Equal(t, payment.ErrOrderAlreadyCaptured, err)
}

func TestProvider_Validation(t *testing.T) {
	p := New()

	_, err := p.CreateOrder(context.Background(), payment.OrderInput{Quantity: 1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = p.CaptureOrder(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
