package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Anuu03/Sweet-Bites/internal/domain"
	"github.com/Anuu03/Sweet-Bites/internal/event"
	"github.com/Anuu03/Sweet-Bites/internal/repository"
	apperrors "github.com/Anuu03/Sweet-Bites/pkg/errors"
	"github.com/Anuu03/Sweet-Bites/pkg/pagination"
)

// PaymentVerifier checks payment confirmations against the gateway for a
// given method. gateway.Registry satisfies this.
type PaymentVerifier interface {
	Verify(ctx context.Context, method string, details json.RawMessage) error
}

// CheckoutService implements the business logic for checkout and order
// operations.
type CheckoutService struct {
	checkouts repository.CheckoutRepository
	orders    repository.OrderRepository
	carts     repository.CartStore
	verifier  PaymentVerifier
	producer  *event.Producer
	logger    *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	checkouts repository.CheckoutRepository,
	orders repository.OrderRepository,
	carts repository.CartStore,
	verifier PaymentVerifier,
	producer *event.Producer,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		checkouts: checkouts,
		orders:    orders,
		carts:     carts,
		verifier:  verifier,
		producer:  producer,
		logger:    logger,
	}
}

// CreateCheckoutInput holds the parameters for creating a checkout session.
type CreateCheckoutInput struct {
	Items           []LineItemInput `json:"items" validate:"required,min=1,dive"`
	ShippingAddress AddressInput    `json:"shipping_address" validate:"required"`
	PaymentMethod   string          `json:"payment_method" validate:"required,oneof=cod razorpay stripe paypal"`
	TotalPrice      int64           `json:"total_price" validate:"gte=0"`
}

// LineItemInput represents a single item in the create checkout request.
type LineItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	ImageURL  string `json:"image_url"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Variant   string `json:"variant"`
}

// AddressInput represents the shipping address in the create checkout request.
type AddressInput struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
	Country     string `json:"country" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
}

// CreateCheckout creates a new pending checkout session for the user. The
// total is recomputed from the line items server-side; a client total that
// does not match is rejected.
func (s *CheckoutService) CreateCheckout(ctx context.Context, userID string, input *CreateCheckoutInput) (*domain.CheckoutSession, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user identity is required")
	}
	if input == nil || len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("at least one item is required")
	}

	now := time.Now().UTC()

	items := make([]domain.LineItem, len(input.Items))
	for i, item := range input.Items {
		items[i] = domain.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Variant:   item.Variant,
		}
	}

	session := &domain.CheckoutSession{
		ID:     uuid.New().String(),
		UserID: userID,
		Items:  items,
		ShippingAddress: domain.ShippingAddress{
			FirstName:   input.ShippingAddress.FirstName,
			LastName:    input.ShippingAddress.LastName,
			AddressLine: input.ShippingAddress.AddressLine,
			City:        input.ShippingAddress.City,
			PostalCode:  input.ShippingAddress.PostalCode,
			Country:     input.ShippingAddress.Country,
			Phone:       input.ShippingAddress.Phone,
		},
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	session.TotalPrice = session.Subtotal()
	if input.TotalPrice != session.TotalPrice {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"total price %d does not match line items total %d", input.TotalPrice, session.TotalPrice))
	}

	if err := session.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	if err := s.checkouts.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	// Publish event; log but do not fail on error.
	if err := s.producer.PublishCheckoutCreated(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.created event",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout session created",
		slog.String("checkout_id", session.ID),
		slog.String("user_id", userID),
		slog.String("payment_method", session.PaymentMethod),
		slog.Int64("total_price", session.TotalPrice),
	)

	return session, nil
}

// RecordPaymentInput holds the parameters for recording a payment outcome.
type RecordPaymentInput struct {
	PaymentStatus  string          `json:"payment_status" validate:"required"`
	PaymentMethod  string          `json:"payment_method" validate:"omitempty,oneof=cod razorpay stripe paypal"`
	PaymentDetails json.RawMessage `json:"payment_details"`
}

// RecordPayment records a payment outcome on a session. Only pending and
// paid are accepted from clients. A paid outcome for an online method must
// pass gateway verification before it is persisted.
func (s *CheckoutService) RecordPayment(ctx context.Context, userID, sessionID string, input *RecordPaymentInput) (*domain.CheckoutSession, error) {
	if input == nil {
		return nil, apperrors.InvalidInput("payment input is required")
	}
	if !domain.IsSettableStatus(input.PaymentStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("payment status %q is not accepted", input.PaymentStatus))
	}

	session, err := s.checkouts.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	if session.UserID != userID {
		return nil, apperrors.Forbidden("checkout session belongs to another user")
	}
	if session.IsFinalized {
		return nil, apperrors.Conflict(fmt.Sprintf("checkout session %s is already finalized", sessionID))
	}

	if input.PaymentMethod != "" {
		session.PaymentMethod = input.PaymentMethod
	}

	switch input.PaymentStatus {
	case domain.PaymentPaid:
		if domain.IsOnlineMethod(session.PaymentMethod) {
			if err := s.verifier.Verify(ctx, session.PaymentMethod, input.PaymentDetails); err != nil {
				s.logger.WarnContext(ctx, "payment verification rejected",
					slog.String("checkout_id", sessionID),
					slog.String("payment_method", session.PaymentMethod),
					slog.String("error", err.Error()),
				)
				return nil, err
			}
		}
		now := time.Now().UTC()
		session.PaymentStatus = domain.PaymentPaid
		session.IsPaid = true
		session.PaidAt = &now
	case domain.PaymentPending:
		session.PaymentStatus = domain.PaymentPending
		session.IsPaid = false
		session.PaidAt = nil
	}

	if len(input.PaymentDetails) > 0 {
		session.PaymentDetails = input.PaymentDetails
	}

	if err := s.checkouts.UpdatePayment(ctx, session); err != nil {
		return nil, fmt.Errorf("update checkout payment: %w", err)
	}

	if err := s.producer.PublishPaymentRecorded(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.payment_recorded event",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment recorded",
		slog.String("checkout_id", session.ID),
		slog.String("payment_status", session.PaymentStatus),
		slog.Bool("is_paid", session.IsPaid),
	)

	return session, nil
}

// FinalizeCheckout converts an eligible session into an order exactly once.
// The eligibility check and the order insert run inside the repository's
// finalization transaction; a losing concurrent call gets a Conflict. The
// user's cart is cleared only after the order is durable, and a failed clear
// is logged but does not fail the finalization.
func (s *CheckoutService) FinalizeCheckout(ctx context.Context, userID, sessionID string) (*domain.Order, error) {
	order, err := s.checkouts.Finalize(ctx, sessionID, func(session *domain.CheckoutSession) (*domain.Order, error) {
		if session.UserID != userID {
			return nil, apperrors.Forbidden("checkout session belongs to another user")
		}
		if !session.CanFinalize() {
			return nil, apperrors.InvalidInput("payment is not complete for this checkout session")
		}
		return domain.NewOrderFromSession(uuid.New().String(), session, time.Now().UTC()), nil
	})
	if err != nil {
		return nil, err
	}

	// The order exists; everything past this point is best-effort.
	if err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after finalization",
			slog.String("order_id", order.ID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderFinalized(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.finalized event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout finalized",
		slog.String("checkout_id", sessionID),
		slog.String("order_id", order.ID),
		slog.Int64("total_price", order.TotalPrice),
	)

	return order, nil
}

// GetCheckout retrieves a checkout session owned by the user.
func (s *CheckoutService) GetCheckout(ctx context.Context, userID, sessionID string) (*domain.CheckoutSession, error) {
	session, err := s.checkouts.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	if session.UserID != userID {
		return nil, apperrors.Forbidden("checkout session belongs to another user")
	}
	return session, nil
}

// GetOrder retrieves an order owned by the user.
func (s *CheckoutService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	return order, nil
}

// ListOrders returns a page of the user's order history, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, userID string, params pagination.Params) (pagination.Result[domain.Order], error) {
	orders, total, err := s.orders.ListByUser(ctx, userID, params)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, params), nil
}
