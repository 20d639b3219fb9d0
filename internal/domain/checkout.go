package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payment method constants.
const (
	MethodCOD      = "cod"
	MethodRazorpay = "razorpay"
	MethodStripe   = "stripe"
	MethodPaypal   = "paypal"
)

// Payment status constants. A session starts pending; RecordPayment moves it
// to paid or back to pending. Failed is written only by reconciliation jobs,
// never through the API.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// CheckoutSession represents a checkout awaiting payment and finalization.
// Once IsFinalized is set the session is immutable.
type CheckoutSession struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []LineItem      `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	TotalPrice      int64           `json:"total_price"`
	PaymentStatus   string          `json:"payment_status"`
	IsPaid          bool            `json:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	PaymentDetails  json.RawMessage `json:"payment_details,omitempty"`
	IsFinalized     bool            `json:"is_finalized"`
	FinalizedAt     *time.Time      `json:"finalized_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LineItem is a single product line captured at checkout time. Prices are
// minor units (paise/cents).
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant,omitempty"`
}

// ShippingAddress is the delivery address captured at checkout time.
type ShippingAddress struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`
}

// Subtotal computes the session total from its line items.
func (s *CheckoutSession) Subtotal() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// CanFinalize reports whether the session is eligible to become an order:
// either the payment has settled, or it is cash-on-delivery still awaiting
// collection.
func (s *CheckoutSession) CanFinalize() bool {
	if s.IsPaid {
		return true
	}
	return s.PaymentMethod == MethodCOD && s.PaymentStatus == PaymentPending
}

// Validate checks the structural invariants of a new session. The caller is
// expected to have already recomputed TotalPrice from the items.
func (s *CheckoutSession) Validate() error {
	if len(s.Items) == 0 {
		return fmt.Errorf("checkout requires at least one line item")
	}
	if !IsValidMethod(s.PaymentMethod) {
		return fmt.Errorf("unknown payment method %q", s.PaymentMethod)
	}
	for i, item := range s.Items {
		if item.ProductID == "" {
			return fmt.Errorf("item %d: product id is required", i)
		}
		if item.Name == "" {
			return fmt.Errorf("item %d: name is required", i)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("item %d: unit price must not be negative", i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive", i)
		}
	}
	if err := s.ShippingAddress.Validate(); err != nil {
		return err
	}
	if s.TotalPrice != s.Subtotal() {
		return fmt.Errorf("total price %d does not match line items total %d", s.TotalPrice, s.Subtotal())
	}
	return nil
}

// Validate checks that all required address fields are present.
func (a *ShippingAddress) Validate() error {
	switch {
	case a.FirstName == "":
		return fmt.Errorf("shipping address: first name is required")
	case a.LastName == "":
		return fmt.Errorf("shipping address: last name is required")
	case a.AddressLine == "":
		return fmt.Errorf("shipping address: address line is required")
	case a.City == "":
		return fmt.Errorf("shipping address: city is required")
	case a.PostalCode == "":
		return fmt.Errorf("shipping address: postal code is required")
	case a.Country == "":
		return fmt.Errorf("shipping address: country is required")
	case a.Phone == "":
		return fmt.Errorf("shipping address: phone is required")
	}
	return nil
}

// ValidMethods returns the accepted payment methods.
func ValidMethods() []string {
	return []string{MethodCOD, MethodRazorpay, MethodStripe, MethodPaypal}
}

// IsValidMethod checks whether the given payment method is accepted.
func IsValidMethod(method string) bool {
	for _, m := range ValidMethods() {
		if m == method {
			return true
		}
	}
	return false
}

// IsOnlineMethod reports whether the method settles through a payment
// gateway rather than on delivery.
func IsOnlineMethod(method string) bool {
	return method == MethodRazorpay || method == MethodStripe || method == MethodPaypal
}

// IsSettableStatus reports whether a client may record the given payment
// status. Only pending and paid are accepted.
func IsSettableStatus(status string) bool {
	return status == PaymentPending || status == PaymentPaid
}
