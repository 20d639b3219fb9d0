package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Anuu03/Sweet-Bites/pkg/errors"
	"github.com/Anuu03/Sweet-Bites/pkg/httpclient"
)

// stripeConfirmation carries the payment intent id the storefront received
// from Stripe.
type stripeConfirmation struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

// StripeVerifier confirms a payment by looking the payment intent up against
// the Stripe API through the circuit-breaker client.
type StripeVerifier struct {
	client *httpclient.CircuitBreakerClient
	base   string
	apiKey string
}

// NewStripeVerifier creates a Stripe verifier. base is the API base URL,
// e.g. "https://api.stripe.com".
func NewStripeVerifier(client *httpclient.CircuitBreakerClient, base, apiKey string) *StripeVerifier {
	return &StripeVerifier{client: client, base: base, apiKey: apiKey}
}

// Verify looks up the payment intent and requires it to be settled.
func (v *StripeVerifier) Verify(ctx context.Context, details json.RawMessage) error {
	var conf stripeConfirmation
	if err := json.Unmarshal(details, &conf); err != nil || conf.PaymentIntentID == "" {
		return apperrors.PaymentFailed("stripe confirmation is missing payment intent id")
	}

	url := fmt.Sprintf("%s/v1/payment_intents/%s", v.base, conf.PaymentIntentID)
	status, err := fetchStatus(ctx, v.client, url, "Bearer "+v.apiKey, "stripe")
	if err != nil {
		return err
	}
	if status != "succeeded" {
		return apperrors.PaymentFailed(fmt.Sprintf("stripe payment intent is %q, not settled", status))
	}
	return nil
}

// paypalConfirmation carries the capture order id the storefront received
// from PayPal.
type paypalConfirmation struct {
	OrderID string `json:"paypal_order_id"`
}

// PaypalVerifier confirms a payment by looking the order up against the
// PayPal API through the circuit-breaker client.
type PaypalVerifier struct {
	client *httpclient.CircuitBreakerClient
	base   string
	token  string
}

// NewPaypalVerifier creates a PayPal verifier. base is the API base URL,
// e.g. "https://api-m.paypal.com".
func NewPaypalVerifier(client *httpclient.CircuitBreakerClient, base, token string) *PaypalVerifier {
	return &PaypalVerifier{client: client, base: base, token: token}
}

// Verify looks up the order and requires it to be completed.
func (v *PaypalVerifier) Verify(ctx context.Context, details json.RawMessage) error {
	var conf paypalConfirmation
	if err := json.Unmarshal(details, &conf); err != nil || conf.OrderID == "" {
		return apperrors.PaymentFailed("paypal confirmation is missing order id")
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s", v.base, conf.OrderID)
	status, err := fetchStatus(ctx, v.client, url, "Bearer "+v.token, "paypal")
	if err != nil {
		return err
	}
	if status != "COMPLETED" {
		return apperrors.PaymentFailed(fmt.Sprintf("paypal order is %q, not completed", status))
	}
	return nil
}

// fetchStatus performs the provider lookup and extracts the status field from
// the JSON body. An open circuit maps to ServiceUnavailable so callers return
// 503 instead of failing the payment outright.
func fetchStatus(ctx context.Context, client *httpclient.CircuitBreakerClient, url, authorization, provider string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create %s lookup request: %w", provider, err)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := client.Do(ctx, req)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return "", apperrors.ServiceUnavailable(fmt.Sprintf("%s verification temporarily unavailable", provider))
		}
		return "", fmt.Errorf("%s lookup: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", apperrors.PaymentFailed(fmt.Sprintf("%s reports no such payment", provider))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return "", fmt.Errorf("%s lookup returned status %d: %s", provider, resp.StatusCode, string(body))
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode %s lookup response: %w", provider, err)
	}
	return payload.Status, nil
}
