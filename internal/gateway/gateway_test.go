package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Anuu03/Sweet-Bites/pkg/errors"
	"github.com/Anuu03/Sweet-Bites/pkg/httpclient"
)

func newTestClient() *httpclient.CircuitBreakerClient {
	client := httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 10,
	})
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig("gateway-test"), logger)
}

func razorpaySignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayVerifier_ValidSignature(t *testing.T) {
	secret := "test_key_secret"
	v := NewRazorpayVerifier(secret)

	details, err := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_ABC123",
		"razorpay_payment_id": "pay_XYZ789",
		"razorpay_signature":  razorpaySignature(secret, "order_ABC123", "pay_XYZ789"),
	})
	require.NoError(t, err)

	assert.NoError(t, v.Verify(context.Background(), details))
}

func TestRazorpayVerifier_SignatureMismatch(t *testing.T) {
	v := NewRazorpayVerifier("test_key_secret")

	details, err := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_ABC123",
		"razorpay_payment_id": "pay_XYZ789",
		"razorpay_signature":  razorpaySignature("wrong_secret", "order_ABC123", "pay_XYZ789"),
	})
	require.NoError(t, err)

	err = v.Verify(context.Background(), details)
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestRazorpayVerifier_MissingFields(t *testing.T) {
	v := NewRazorpayVerifier("test_key_secret")

	err := v.Verify(context.Background(), json.RawMessage(`{"razorpay_order_id":"order_ABC123"}`))
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestRazorpayVerifier_MalformedPayload(t *testing.T) {
	v := NewRazorpayVerifier("test_key_secret")

	err := v.Verify(context.Background(), json.RawMessage(`not json`))
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestStripeVerifier_Succeeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"pi_123","status":"succeeded"}`)
	}))
	defer srv.Close()

	v := NewStripeVerifier(newTestClient(), srv.URL, "sk_test_abc")
	err := v.Verify(context.Background(), json.RawMessage(`{"payment_intent_id":"pi_123"}`))
	assert.NoError(t, err)
}

func TestStripeVerifier_NotSettled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"pi_123","status":"requires_payment_method"}`)
	}))
	defer srv.Close()

	v := NewStripeVerifier(newTestClient(), srv.URL, "sk_test_abc")
	err := v.Verify(context.Background(), json.RawMessage(`{"payment_intent_id":"pi_123"}`))
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestStripeVerifier_UnknownIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	v := NewStripeVerifier(newTestClient(), srv.URL, "sk_test_abc")
	err := v.Verify(context.Background(), json.RawMessage(`{"payment_intent_id":"pi_missing"}`))
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestStripeVerifier_MissingIntentID(t *testing.T) {
	v := NewStripeVerifier(newTestClient(), "http://unused.invalid", "sk_test_abc")
	err := v.Verify(context.Background(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestPaypalVerifier_Completed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders/5O190127TN364715T", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"5O190127TN364715T","status":"COMPLETED"}`)
	}))
	defer srv.Close()

	v := NewPaypalVerifier(newTestClient(), srv.URL, "access-token")
	err := v.Verify(context.Background(), json.RawMessage(`{"paypal_order_id":"5O190127TN364715T"}`))
	assert.NoError(t, err)
}

func TestPaypalVerifier_NotCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"5O190127TN364715T","status":"CREATED"}`)
	}))
	defer srv.Close()

	v := NewPaypalVerifier(newTestClient(), srv.URL, "access-token")
	err := v.Verify(context.Background(), json.RawMessage(`{"paypal_order_id":"5O190127TN364715T"}`))
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}

func TestRegistry_DispatchesByMethod(t *testing.T) {
	secret := "test_key_secret"
	reg := NewRegistry()
	reg.Register("razorpay", NewRazorpayVerifier(secret))

	details, err := json.Marshal(map[string]string{
		"razorpay_order_id":   "order_ABC123",
		"razorpay_payment_id": "pay_XYZ789",
		"razorpay_signature":  razorpaySignature(secret, "order_ABC123", "pay_XYZ789"),
	})
	require.NoError(t, err)

	assert.NoError(t, reg.Verify(context.Background(), "razorpay", details))
}

func TestRegistry_UnknownMethod(t *testing.T) {
	reg := NewRegistry()

	err := reg.Verify(context.Background(), "upi", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)
}
