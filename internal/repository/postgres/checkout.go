package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Anuu03/Sweet-Bites/internal/domain"
	"github.com/Anuu03/Sweet-Bites/internal/repository"
	"github.com/Anuu03/Sweet-Bites/pkg/database"
	apperrors "github.com/Anuu03/Sweet-Bites/pkg/errors"
)

const pgUniqueViolation = "23505"

const sessionColumns = `id, user_id, items, shipping_address,
		payment_method, total_price, payment_status,
		is_paid, paid_at, payment_details,
		is_finalized, finalized_at, created_at, updated_at`

// CheckoutRepository implements repository.CheckoutRepository using PostgreSQL.
type CheckoutRepository struct {
	db database.DBTX
}

// NewCheckoutRepository creates a new PostgreSQL-backed checkout repository.
func NewCheckoutRepository(db database.DBTX) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

// Create inserts a new checkout session.
func (r *CheckoutRepository) Create(ctx context.Context, session *domain.CheckoutSession) error {
	itemsJSON, err := json.Marshal(session.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	addressJSON, err := json.Marshal(session.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	query := `
		INSERT INTO checkout_sessions (
			id, user_id, items, shipping_address,
			payment_method, total_price, payment_status,
			is_paid, paid_at, payment_details,
			is_finalized, finalized_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14
		)`

	_, err = r.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		itemsJSON,
		addressJSON,
		session.PaymentMethod,
		session.TotalPrice,
		session.PaymentStatus,
		session.IsPaid,
		session.PaidAt,
		nullableJSON(session.PaymentDetails),
		session.IsFinalized,
		session.FinalizedAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}

	return nil
}

// GetByID retrieves a checkout session by its ID.
func (r *CheckoutRepository) GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, id))
}

// UpdatePayment persists the payment fields of an existing session.
func (r *CheckoutRepository) UpdatePayment(ctx context.Context, session *domain.CheckoutSession) error {
	session.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE checkout_sessions
		SET payment_method = $1, payment_status = $2,
			is_paid = $3, paid_at = $4, payment_details = $5,
			updated_at = $6
		WHERE id = $7 AND is_finalized = FALSE`

	ct, err := r.db.Exec(ctx, query,
		session.PaymentMethod,
		session.PaymentStatus,
		session.IsPaid,
		session.PaidAt,
		nullableJSON(session.PaymentDetails),
		session.UpdatedAt,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update checkout session payment: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("checkout_session", session.ID)
	}

	return nil
}

// Finalize converts a session into an order inside a single transaction.
// The session row is locked with FOR UPDATE before the eligibility check and
// the order insert, so two concurrent calls serialize: the first commits, the
// second sees is_finalized and gets a Conflict. The UNIQUE constraint on
// orders.checkout_id backstops the lock.
func (r *CheckoutRepository) Finalize(ctx context.Context, sessionID string, build repository.FinalizeFunc) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1 FOR UPDATE`
	session, err := scanSession(tx.QueryRow(ctx, query, sessionID))
	if err != nil {
		return nil, err
	}

	if session.IsFinalized {
		return nil, apperrors.Conflict(fmt.Sprintf("checkout session %s is already finalized", sessionID))
	}

	order, err := build(session)
	if err != nil {
		return nil, err
	}

	if err := insertOrder(ctx, tx, order); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, apperrors.Conflict(fmt.Sprintf("checkout session %s is already finalized", sessionID))
		}
		return nil, err
	}

	now := time.Now().UTC()
	ct, err := tx.Exec(ctx,
		`UPDATE checkout_sessions SET is_finalized = TRUE, finalized_at = $1, updated_at = $2 WHERE id = $3`,
		now, now, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark session finalized: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, apperrors.NotFound("checkout_session", sessionID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit finalize tx: %w", err)
	}

	return order, nil
}

// scanSession reads one session row, including its JSONB columns.
func scanSession(row pgx.Row) (*domain.CheckoutSession, error) {
	var (
		session     domain.CheckoutSession
		itemsJSON   []byte
		addressJSON []byte
		detailsJSON []byte
	)

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&itemsJSON,
		&addressJSON,
		&session.PaymentMethod,
		&session.TotalPrice,
		&session.PaymentStatus,
		&session.IsPaid,
		&session.PaidAt,
		&detailsJSON,
		&session.IsFinalized,
		&session.FinalizedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan checkout session: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &session.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &session.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if detailsJSON != nil {
		session.PaymentDetails = json.RawMessage(detailsJSON)
	}

	return &session, nil
}

// nullableJSON returns nil for an empty payload so the column stays NULL.
func nullableJSON(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	return []byte(data)
}
