package control

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "configuration", err: &ConfigurationError{Err: ErrNoCheckoutURL}, want: "configuration"},
		{name: "widget_init", err: &WidgetInitError{Err: errors.New("bad key")}, want: "widget_init"},
		{name: "payment_method", err: &PaymentMethodError{Err: errors.New("cancelled")}, want: "payment_method"},
		{name: "transport", err: &CheckoutTransportError{StatusCode: 404, Status: "404 Not Found"}, want: "checkout_transport"},
		{name: "declined_wrapped", err: fmt.Errorf("submit: %w", &CheckoutBusinessError{Message: "declined"}), want: "checkout_declined"},
		{name: "unavailable", err: ErrSubmitUnavailable, want: "submit_unavailable"},
		{name: "superseded", err: ErrSuperseded, want: "superseded"},
		{name: "destroyed", err: ErrDestroyed, want: "destroyed"},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "unknown", err: errors.New("unknown"), want: "internal"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Kind(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCheckoutTransportError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *CheckoutTransportError
		want string
	}{
		{name: "status_only", err: &CheckoutTransportError{StatusCode: 404, Status: "404 Not Found"}, want: "404 Not Found"},
		{name: "cause_only", err: &CheckoutTransportError{Err: errors.New("dial tcp: refused")}, want: "dial tcp: refused"},
		{name: "both", err: &CheckoutTransportError{Status: "200 OK", Err: errors.New("invalid character")}, want: "200 OK: invalid character"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
