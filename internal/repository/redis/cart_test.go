package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

func setupTestRedis(t *testing.T) (*CartRepository, *miniredis.Miniredis, *bytes.Buffer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	var logs bytes.Buffer
	repo := NewCartRepository(client, 24*time.Hour, slog.New(slog.NewJSONHandler(&logs, nil)))
	return repo, mr, &logs
}

func sampleCart(t *testing.T) *domain.Cart {
	t.Helper()
	c, err := domain.Add(domain.NewEmptyCart(), domain.Variant{
		ID:    "v-1",
		Title: "Taupe",
		Price: domain.Money{Amount: "18.00", CurrencyCode: "USD"},
	}, domain.ProductSnapshot{ID: "1", Handle: "brow-pencil", Title: "Brow Pencil"})
	require.NoError(t, err)
	return &c
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestCartRepository_Load_Success(t *testing.T) {
	repo, mr, _ := setupTestRedis(t)

	cart := sampleCart(t)
	data, err := json.Marshal(cart)
	require.NoError(t, err)
	require.NoError(t, mr.Set("cart:sess-1", string(data)))

	got, err := repo.Load(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, cart, got)
}

func TestCartRepository_Load_NotFound(t *testing.T) {
	repo, _, _ := setupTestRedis(t)

	got, err := repo.Load(context.Background(), "nobody")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_Load_MalformedIsNotFound(t *testing.T) {
	repo, mr, logs := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:sess-1", "{not json"))

	got, err := repo.Load(context.Background(), "sess-1")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, logs.String(), "discarding malformed cart")
}

func TestCartRepository_Load_RebuildsTotals(t *testing.T) {
	repo, mr, _ := setupTestRedis(t)
	cart := sampleCart(t)
	forged := *cart
	forged.TotalQuantity = 7
	forged.Cost.TotalAmount = domain.Money{Amount: "999", CurrencyCode: "USD"}
	data, err := json.Marshal(forged)
	require.NoError(t, err)
	require.NoError(t, mr.Set("cart:sess-1", string(data)))

	got, err := repo.Load(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, cart, got)
}

func TestCartRepository_Load_InconsistentIsNotFound(t *testing.T) {
	repo, mr, logs := setupTestRedis(t)
	cart := sampleCart(t)
	cart.Lines[0].Cost.TotalAmount.Amount = "-18"
	data, err := json.Marshal(cart)
	require.NoError(t, err)
	require.NoError(t, mr.Set("cart:sess-1", string(data)))

	got, err := repo.Load(context.Background(), "sess-1")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, logs.String(), "corrupt cart")
}

func TestCartRepository_Load_ConnectionError(t *testing.T) {
	repo, mr, _ := setupTestRedis(t)
	mr.Close()

	_, err := repo.Load(context.Background(), "sess-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "redis get cart")
}

// ---------------------------------------------------------------------------
// Save / Delete
// ---------------------------------------------------------------------------

func TestCartRepository_Save_SetsTTL(t *testing.T) {
	repo, mr, _ := setupTestRedis(t)

	require.NoError(t, repo.Save(context.Background(), "sess-1", sampleCart(t)))

	assert.True(t, mr.Exists("cart:sess-1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("cart:sess-1"))
}

func TestCartRepository_SaveLoadRoundTrip(t *testing.T) {
	repo, _, _ := setupTestRedis(t)
	ctx := context.Background()
	cart := sampleCart(t)

	require.NoError(t, repo.Save(ctx, "sess-1", cart))
	first, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "sess-1", first))
	second, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, cart, first)
	assert.Equal(t, first, second)
}

func TestCartRepository_Save_LastWriteWins(t *testing.T) {
	repo, _, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "sess-1", sampleCart(t)))
	empty := domain.NewEmptyCart()
	require.NoError(t, repo.Save(ctx, "sess-1", &empty))

	got, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestCartRepository_Delete(t *testing.T) {
	repo, mr, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "sess-1", sampleCart(t)))

	require.NoError(t, repo.Delete(ctx, "sess-1"))

	assert.False(t, mr.Exists("cart:sess-1"))
	require.NoError(t, repo.Delete(ctx, "sess-1"), "deleting a missing cart is fine")
}
