package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/database"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

// Migrations holds the schema for the order log.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files.
const MigrationsDir = "migrations"

const orderColumns = `id, customer, items, total, currency, status, source, COALESCE(payment_id, ''), created_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	customerJSON, err := json.Marshal(o.CustomerInfo)
	if err != nil {
		return fmt.Errorf("marshal customer: %w", err)
	}

	items := o.Items
	if items == nil {
		items = []domain.OrderItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	query := `
		INSERT INTO orders (id, customer, items, total, currency, status, source, payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $9)`

	_, err = r.pool.Exec(ctx, query,
		o.ID, customerJSON, itemsJSON, o.Total, o.Currency,
		string(o.Status), o.Source, o.PaymentID, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("order %q already exists", o.ID))
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// List returns the most recent limit orders, oldest first.
func (r *OrderRepository) List(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		return []domain.Order{}, nil
	}

	query := `
		SELECT ` + orderColumns + ` FROM (
			SELECT * FROM orders ORDER BY created_at DESC, id DESC LIMIT $1
		) recent
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// GetByID retrieves a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// UpdateStatus moves an order forward to status inside a transaction that
// locks the row for the duration of the check.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	o, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if !o.Status.CanTransitionTo(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot move order from %s to %s", o.Status, status))
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	o.Status = status
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		customerJSON []byte
		itemsJSON    []byte
		status       string
	)

	if err := row.Scan(
		&o.ID,
		&customerJSON,
		&itemsJSON,
		&o.Total,
		&o.Currency,
		&status,
		&o.Source,
		&o.PaymentID,
		&o.CreatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)

	if err := json.Unmarshal(customerJSON, &o.CustomerInfo); err != nil {
		return nil, fmt.Errorf("unmarshal customer: %w", err)
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}

	return &o, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
