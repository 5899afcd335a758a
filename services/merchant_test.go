package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
)

func TestSandboxCharger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		nonce    string
		declined bool
		wantErr  bool
	}{
		{name: "settles", nonce: "fake-valid-nonce"},
		{name: "declines", nonce: "fake-fail-nonce", declined: true},
		{name: "empty_nonce", nonce: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			charge, err := SandboxCharger{}.Charge(context.Background(), tt.nonce, 10)
			switch {
			case tt.declined:
				var decline *DeclineError
				require.ErrorAs(t, err, &decline)
				require.Equal(t, "Processor declined", decline.Reason)
			case tt.wantErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
				require.Equal(t, "settled", charge.Status)
				require.Contains(t, charge.ID, "txn_")
			}
		})
	}
}

func stripeTestCharger(t *testing.T, status int, body string) *StripeCharger {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "1050", r.PostForm.Get("amount"))
		assert.Equal(t, "eur", r.PostForm.Get("currency"))
		assert.Equal(t, "pm_card_visa", r.PostForm.Get("payment_method"))
		assert.Equal(t, "true", r.PostForm.Get("confirm"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return newStripeCharger(backend, "sk_test_123", "EUR")
}

func TestStripeCharger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantID      string
		wantDecline string
		wantErr     bool
	}{
		{
			name:   "succeeded",
			status: http.StatusOK,
			body:   `{"id":"pi_123","object":"payment_intent","status":"succeeded"}`,
			wantID: "pi_123",
		},
		{
			name:        "card_declined",
			status:      http.StatusPaymentRequired,
			body:        `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`,
			wantDecline: "Your card was declined",
		},
		{
			name:        "requires_payment_method",
			status:      http.StatusOK,
			body:        `{"id":"pi_456","object":"payment_intent","status":"requires_payment_method"}`,
			wantDecline: "Payment method was not accepted",
		},
		{
			name:    "api_error",
			status:  http.StatusBadRequest,
			body:    `{"error":{"type":"invalid_request_error","message":"No such PaymentMethod"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			charge, err := stripeTestCharger(t, tt.status, tt.body).Charge(context.Background(), "pm_card_visa", 10.5)
			switch {
			case tt.wantDecline != "":
				var decline *DeclineError
				require.ErrorAs(t, err, &decline)
				require.Equal(t, tt.wantDecline, decline.Reason)
			case tt.wantErr:
				require.Error(t, err)
				var decline *DeclineError
				require.False(t, errors.As(err, &decline))
			default:
				require.NoError(t, err)
				require.Equal(t, tt.wantID, charge.ID)
			}
		})
	}
}
