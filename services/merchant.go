package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"paycontrol/utils"
)

// Charge is a settled payment.
type Charge struct {
	ID     string
	Status string
}

// DeclineError is a charge the processor refused. Its reason is safe to show
// to the payer.
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string { return e.Reason }

// Charger settles a nonce for an amount on behalf of the merchant.
type Charger interface {
	Charge(ctx context.Context, nonce string, amount float64) (*Charge, error)
}

// SandboxCharger settles every nonce except those containing "fail", which
// are declined. It lets the control run end to end without processor keys.
type SandboxCharger struct{}

func (SandboxCharger) Charge(ctx context.Context, nonce string, amount float64) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if nonce == "" {
		return nil, errors.New("payment_method_nonce is required")
	}
	if strings.Contains(nonce, "fail") {
		utils.Info("merchant", "Sandbox charge declined", "amount", amount)
		return nil, &DeclineError{Reason: "Processor declined"}
	}
	id := "txn_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	utils.Info("merchant", "Sandbox charge settled", "transaction", id, "amount", amount)
	return &Charge{ID: id, Status: "settled"}, nil
}

// StripeCharger confirms a PaymentIntent for the nonce, which must be a
// Stripe payment method id.
type StripeCharger struct {
	intents  paymentintent.Client
	currency string
}

// NewStripeCharger returns a charger using secretKey.
func NewStripeCharger(secretKey, currency string) *StripeCharger {
	return newStripeCharger(stripe.GetBackend(stripe.APIBackend), secretKey, currency)
}

func newStripeCharger(backend stripe.Backend, secretKey, currency string) *StripeCharger {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeCharger{
		intents:  paymentintent.Client{B: backend, Key: secretKey},
		currency: strings.ToLower(currency),
	}
}

func (c *StripeCharger) Charge(ctx context.Context, nonce string, amount float64) (*Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(int64(math.Round(amount * 100))), // Convert to cents
		Currency:           stripe.String(c.currency),
		PaymentMethod:      stripe.String(nonce),
		PaymentMethodTypes: []*string{stripe.String("card")},
		CaptureMethod:      stripe.String("automatic"),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx

	intent, err := c.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			switch stripeErr.Code {
			case stripe.ErrorCodeCardDeclined:
				return nil, &DeclineError{Reason: "Your card was declined"}
			case stripe.ErrorCodeInsufficientFunds:
				return nil, &DeclineError{Reason: "Insufficient funds"}
			case stripe.ErrorCodeIncorrectCVC:
				return nil, &DeclineError{Reason: "Incorrect CVC"}
			case stripe.ErrorCodeExpiredCard:
				return nil, &DeclineError{Reason: "Your card has expired"}
			}
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	utils.Info("merchant", "Stripe payment intent confirmed", "intent_id", intent.ID, "status", string(intent.Status))
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return &Charge{ID: intent.ID, Status: string(intent.Status)}, nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return nil, &DeclineError{Reason: "Payment method was not accepted"}
	default:
		return nil, fmt.Errorf("payment intent %s ended in status %s", intent.ID, intent.Status)
	}
}
