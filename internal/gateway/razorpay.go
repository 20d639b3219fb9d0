package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	apperrors "github.com/Anuu03/Sweet-Bites/pkg/errors"
)

// razorpayConfirmation is the confirmation payload Razorpay hands to the
// storefront after a successful payment.
type razorpayConfirmation struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// RazorpayVerifier validates Razorpay payment confirmations locally using
// the documented signature scheme: HMAC-SHA256 over "order_id|payment_id"
// keyed with the account's key secret.
type RazorpayVerifier struct {
	secret []byte
}

// NewRazorpayVerifier creates a verifier for the given Razorpay key secret.
func NewRazorpayVerifier(secret string) *RazorpayVerifier {
	return &RazorpayVerifier{secret: []byte(secret)}
}

// Verify checks the confirmation signature.
func (v *RazorpayVerifier) Verify(_ context.Context, details json.RawMessage) error {
	var conf razorpayConfirmation
	if err := json.Unmarshal(details, &conf); err != nil {
		return apperrors.PaymentFailed("razorpay confirmation payload is not valid JSON")
	}
	if conf.OrderID == "" || conf.PaymentID == "" || conf.Signature == "" {
		return apperrors.PaymentFailed("razorpay confirmation is missing order id, payment id or signature")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(conf.OrderID + "|" + conf.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(conf.Signature)) {
		return apperrors.PaymentFailed("razorpay signature mismatch")
	}
	return nil
}
