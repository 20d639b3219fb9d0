package repository

import (
	"context"

	"github.com/Anuu03/Sweet-Bites/internal/domain"
	"github.com/Anuu03/Sweet-Bites/pkg/pagination"
)

// FinalizeFunc builds the order for a checkout session. It runs inside the
// finalization transaction while the session row is locked, so the session it
// receives cannot change underneath it. Returning an error aborts the
// transaction without side effects.
type FinalizeFunc func(session *domain.CheckoutSession) (*domain.Order, error)

// CheckoutRepository defines persistence operations for checkout sessions.
type CheckoutRepository interface {
	// Create inserts a new checkout session.
	Create(ctx context.Context, session *domain.CheckoutSession) error

	// GetByID retrieves a checkout session by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error)

	// UpdatePayment persists the payment fields of an existing session.
	UpdatePayment(ctx context.Context, session *domain.CheckoutSession) error

	// Finalize atomically converts a session into an order. It locks the
	// session row, invokes build with the locked state, inserts the returned
	// order and marks the session finalized, all in one transaction. A session
	// that is already finalized, or a concurrent call that loses the race,
	// yields a Conflict error and no second order.
	Finalize(ctx context.Context, sessionID string, build FinalizeFunc) (*domain.Order, error)
}

// OrderRepository defines read operations over finalized orders.
type OrderRepository interface {
	// GetByID retrieves an order by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUser returns a page of the user's orders, newest first, together
	// with the total count.
	ListByUser(ctx context.Context, userID string, params pagination.Params) ([]domain.Order, int, error)
}

// CartStore is the cart collaborator. The checkout service only ever clears
// a cart, after the order has been durably created.
type CartStore interface {
	// Clear removes the user's cart. Clearing an absent cart is not an error.
	Clear(ctx context.Context, userID string) error
}
