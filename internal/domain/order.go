package domain

import (
	"encoding/json"
	"time"
)

// Order is the durable result of finalizing a checkout session. CheckoutID
// links back to the originating session; at most one order exists per session.
type Order struct {
	ID              string          `json:"id"`
	CheckoutID      string          `json:"checkout_id"`
	UserID          string          `json:"user_id"`
	Items           []LineItem      `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	TotalPrice      int64           `json:"total_price"`
	IsPaid          bool            `json:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	PaymentStatus   string          `json:"payment_status"`
	PaymentDetails  json.RawMessage `json:"payment_details,omitempty"`
	IsDelivered     bool            `json:"is_delivered"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewOrderFromSession builds the order snapshot for a finalized session.
// All payment state is carried over as-is so the order reflects the session
// at the moment of finalization.
func NewOrderFromSession(id string, s *CheckoutSession, now time.Time) *Order {
	return &Order{
		ID:              id,
		CheckoutID:      s.ID,
		UserID:          s.UserID,
		Items:           s.Items,
		ShippingAddress: s.ShippingAddress,
		PaymentMethod:   s.PaymentMethod,
		TotalPrice:      s.TotalPrice,
		IsPaid:          s.IsPaid,
		PaidAt:          s.PaidAt,
		PaymentStatus:   s.PaymentStatus,
		PaymentDetails:  s.PaymentDetails,
		IsDelivered:     false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
