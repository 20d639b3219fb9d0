package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Anuu03/Sweet-Bites/internal/domain"
	"github.com/Anuu03/Sweet-Bites/pkg/database"
	apperrors "github.com/Anuu03/Sweet-Bites/pkg/errors"
	"github.com/Anuu03/Sweet-Bites/pkg/pagination"
)

const orderColumns = `id, checkout_id, user_id, items, shipping_address,
		payment_method, total_price, is_paid, paid_at,
		payment_status, payment_details,
		is_delivered, delivered_at, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRow(ctx, query, id))
}

// ListByUser returns a page of the user's orders, newest first, with the
// total count.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, params pagination.Params) ([]domain.Order, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, total, nil
}

// insertOrder writes an order inside the finalization transaction. The
// UNIQUE constraint on checkout_id surfaces here as a pg unique violation
// when a second order is attempted for the same session.
func insertOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal order shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, checkout_id, user_id, items, shipping_address,
			payment_method, total_price, is_paid, paid_at,
			payment_status, payment_details,
			is_delivered, delivered_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14, $15
		)`

	_, err = tx.Exec(ctx, query,
		order.ID,
		order.CheckoutID,
		order.UserID,
		itemsJSON,
		addressJSON,
		order.PaymentMethod,
		order.TotalPrice,
		order.IsPaid,
		order.PaidAt,
		order.PaymentStatus,
		nullableJSON(order.PaymentDetails),
		order.IsDelivered,
		order.DeliveredAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// scanOrder reads one order row, including its JSONB columns.
func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order       domain.Order
		itemsJSON   []byte
		addressJSON []byte
		detailsJSON []byte
	)

	err := row.Scan(
		&order.ID,
		&order.CheckoutID,
		&order.UserID,
		&itemsJSON,
		&addressJSON,
		&order.PaymentMethod,
		&order.TotalPrice,
		&order.IsPaid,
		&order.PaidAt,
		&order.PaymentStatus,
		&detailsJSON,
		&order.IsDelivered,
		&order.DeliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal order shipping address: %w", err)
	}
	if detailsJSON != nil {
		order.PaymentDetails = json.RawMessage(detailsJSON)
	}

	return &order, nil
}
