package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// ErrNotVerified means the gateway answered but the intent does not back the payment.
var ErrNotVerified = errors.New("payment intent does not match the payment")

// Verifier confirms that an online payment really happened.
type Verifier interface {
	Verify(ctx context.Context, intentID string, amount decimal.Decimal, currency string) error
}

// IntentFetcher loads a PaymentIntent by id.
type IntentFetcher func(id string) (*stripe.PaymentIntent, error)

// StripeVerifier checks PaymentIntents through the Stripe API. stripe.Key must be set.
type StripeVerifier struct {
	Fetch IntentFetcher
}

func NewStripeVerifier() *StripeVerifier {
	return &StripeVerifier{Fetch: func(id string) (*stripe.PaymentIntent, error) {
		return paymentintent.Get(id, nil)
	}}
}

// Verify requires a succeeded intent for exactly amount. Amounts are compared
// in minor units; currency is checked only when both sides carry one.
func (v *StripeVerifier) Verify(_ context.Context, intentID string, amount decimal.Decimal, currency string) error {
	pi, err := v.Fetch(intentID)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == 404 {
			return fmt.Errorf("%w: intent %s not found", ErrNotVerified, intentID)
		}
		return fmt.Errorf("stripe lookup of %s failed: %w", intentID, err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: intent %s is %s", ErrNotVerified, intentID, pi.Status)
	}
	if minor := amount.Shift(2).IntPart(); pi.Amount != minor {
		return fmt.Errorf("%w: intent amount %d, payment amount %d", ErrNotVerified, pi.Amount, minor)
	}
	if currency != "" && pi.Currency != "" && !strings.EqualFold(string(pi.Currency), currency) {
		return fmt.Errorf("%w: intent currency %s, payment currency %s", ErrNotVerified, pi.Currency, currency)
	}
	return nil
}
