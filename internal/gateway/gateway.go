// Package gateway verifies payment confirmations against the payment
// providers before a checkout session may be marked paid. Each online
// payment method has its own verifier; cash on delivery never reaches this
// package.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/Anuu03/Sweet-Bites/pkg/errors"
)

// Verifier checks that a payment confirmation submitted by the client is
// genuine. Implementations return a PaymentFailed error when the provider
// rejects the confirmation and a plain error for transport problems.
type Verifier interface {
	Verify(ctx context.Context, details json.RawMessage) error
}

// Registry dispatches verification to the verifier registered for a payment
// method.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry creates an empty verifier registry.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

// Register binds a verifier to a payment method.
func (r *Registry) Register(method string, v Verifier) {
	r.verifiers[method] = v
}

// Verify runs the verifier for the given method. A method without a
// registered verifier cannot be confirmed as paid.
func (r *Registry) Verify(ctx context.Context, method string, details json.RawMessage) error {
	v, ok := r.verifiers[method]
	if !ok {
		return apperrors.PaymentFailed(fmt.Sprintf("no payment verification configured for method %q", method))
	}
	return v.Verify(ctx, details)
}
