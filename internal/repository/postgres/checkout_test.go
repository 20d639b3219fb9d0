package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anuu03/Sweet-Bites/internal/domain"
	"github.com/Anuu03/Sweet-Bites/pkg/database"
	apperrors "github.com/Anuu03/Sweet-Bites/pkg/errors"
)

func newTestRepo(t *testing.T) (*CheckoutRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewCheckoutRepository(mock)
	return repo, mock
}

func sampleSession() *domain.CheckoutSession {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.CheckoutSession{
		ID:     "9c7a3f14-6f4e-4a38-9a50-111111111111",
		UserID: "user-001",
		Items: []domain.LineItem{
			{ProductID: "prod-001", Name: "Rasgulla Tin", UnitPrice: 32000, Quantity: 1, Variant: "1kg"},
			{ProductID: "prod-002", Name: "Besan Barfi", ImageURL: "https://cdn.example.com/barfi.jpg", UnitPrice: 21000, Quantity: 2},
		},
		ShippingAddress: domain.ShippingAddress{
			FirstName: "Meera", LastName: "Shah", AddressLine: "7 Lake View",
			City: "Mumbai", PostalCode: "400001", Country: "IN", Phone: "+912266660000",
		},
		PaymentMethod: domain.MethodRazorpay,
		TotalPrice:    74000,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func sessionColumnNames() []string {
	return []string{
		"id", "user_id", "items", "shipping_address",
		"payment_method", "total_price", "payment_status",
		"is_paid", "paid_at", "payment_details",
		"is_finalized", "finalized_at", "created_at", "updated_at",
	}
}

func sessionRow(t *testing.T, s *domain.CheckoutSession) []any {
	t.Helper()

	itemsJSON, err := json.Marshal(s.Items)
	require.NoError(t, err)
	addressJSON, err := json.Marshal(s.ShippingAddress)
	require.NoError(t, err)

	var detailsJSON []byte
	if len(s.PaymentDetails) > 0 {
		detailsJSON = []byte(s.PaymentDetails)
	}

	return []any{
		s.ID, s.UserID, itemsJSON, addressJSON,
		s.PaymentMethod, s.TotalPrice, s.PaymentStatus,
		s.IsPaid, s.PaidAt, detailsJSON,
		s.IsFinalized, s.FinalizedAt, s.CreatedAt, s.UpdatedAt,
	}
}

// --- Create ---

func TestCheckoutRepository_Create_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()

	itemsJSON, err := json.Marshal(s.Items)
	require.NoError(t, err)
	addressJSON, err := json.Marshal(s.ShippingAddress)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO checkout_sessions").
		WithArgs(
			s.ID, s.UserID, itemsJSON, addressJSON,
			s.PaymentMethod, s.TotalPrice, s.PaymentStatus,
			s.IsPaid, s.PaidAt, nil,
			s.IsFinalized, s.FinalizedAt, s.CreatedAt, s.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), s)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_Create_ExecError(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO checkout_sessions").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), sampleSession())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert checkout session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByID ---

func TestCheckoutRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()
	rows := pgxmock.NewRows(sessionColumnNames()).AddRow(sessionRow(t, s)...)

	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id").
		WithArgs(s.ID).
		WillReturnRows(rows)

	result, err := repo.GetByID(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, s.ID, result.ID)
	assert.Equal(t, s.UserID, result.UserID)
	assert.Equal(t, s.PaymentMethod, result.PaymentMethod)
	assert.Equal(t, s.TotalPrice, result.TotalPrice)
	assert.Equal(t, s.PaymentStatus, result.PaymentStatus)
	assert.False(t, result.IsPaid)
	assert.Nil(t, result.PaidAt)
	assert.False(t, result.IsFinalized)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "Rasgulla Tin", result.Items[0].Name)
	assert.Equal(t, "1kg", result.Items[0].Variant)
	assert.Equal(t, int64(21000), result.Items[1].UnitPrice)

	assert.Equal(t, "Meera", result.ShippingAddress.FirstName)
	assert.Equal(t, "Mumbai", result.ShippingAddress.City)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- UpdatePayment ---

func TestCheckoutRepository_UpdatePayment_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()
	paidAt := time.Now().UTC()
	s.PaymentStatus = domain.PaymentPaid
	s.IsPaid = true
	s.PaidAt = &paidAt
	s.PaymentDetails = json.RawMessage(`{"razorpay_payment_id":"pay_1"}`)

	mock.ExpectExec("UPDATE checkout_sessions").
		WithArgs(
			s.PaymentMethod, s.PaymentStatus,
			s.IsPaid, s.PaidAt, []byte(s.PaymentDetails),
			pgxmock.AnyArg(), // updated_at is set inside
			s.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdatePayment(context.Background(), s)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_UpdatePayment_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()

	mock.ExpectExec("UPDATE checkout_sessions").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdatePayment(context.Background(), s)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Finalize ---

func TestCheckoutRepository_Finalize_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()
	s.PaymentStatus = domain.PaymentPaid
	s.IsPaid = true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id .+ FOR UPDATE").
		WithArgs(s.ID).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()).AddRow(sessionRow(t, s)...))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			pgxmock.AnyArg(), s.ID, s.UserID, pgxmock.AnyArg(), pgxmock.AnyArg(),
			s.PaymentMethod, s.TotalPrice, s.IsPaid, pgxmock.AnyArg(),
			s.PaymentStatus, pgxmock.AnyArg(),
			false, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE checkout_sessions SET is_finalized").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), s.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	order, err := repo.Finalize(context.Background(), s.ID, func(locked *domain.CheckoutSession) (*domain.Order, error) {
		return domain.NewOrderFromSession("order-001", locked, time.Now().UTC()), nil
	})

	require.NoError(t, err)
	assert.Equal(t, "order-001", order.ID)
	assert.Equal(t, s.ID, order.CheckoutID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_Finalize_AlreadyFinalized(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()
	now := time.Now().UTC()
	s.IsFinalized = true
	s.FinalizedAt = &now

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id .+ FOR UPDATE").
		WithArgs(s.ID).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()).AddRow(sessionRow(t, s)...))
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), s.ID, func(*domain.CheckoutSession) (*domain.Order, error) {
		t.Fatal("build must not run for a finalized session")
		return nil, nil
	})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_Finalize_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id .+ FOR UPDATE").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()))
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), "missing", func(*domain.CheckoutSession) (*domain.Order, error) {
		t.Fatal("build must not run for a missing session")
		return nil, nil
	})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_Finalize_UniqueViolationIsConflict(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()
	s.IsPaid = true
	s.PaymentStatus = domain.PaymentPaid

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id .+ FOR UPDATE").
		WithArgs(s.ID).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()).AddRow(sessionRow(t, s)...))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "orders_checkout_id_key"})
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), s.ID, func(locked *domain.CheckoutSession) (*domain.Order, error) {
		return domain.NewOrderFromSession("order-001", locked, time.Now().UTC()), nil
	})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_Finalize_BuildErrorRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id .+ FOR UPDATE").
		WithArgs(s.ID).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()).AddRow(sessionRow(t, s)...))
	mock.ExpectRollback()

	buildErr := apperrors.InvalidInput("payment is not complete for this checkout session")
	_, err := repo.Finalize(context.Background(), s.ID, func(*domain.CheckoutSession) (*domain.Order, error) {
		return nil, buildErr
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}
