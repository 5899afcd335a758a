package control

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSubmitUnavailable is returned when submit is triggered while the
	// submit affordance is hidden or disabled.
	ErrSubmitUnavailable = errors.New("submit unavailable")
	// ErrSuperseded is returned when the widget was torn down while an
	// asynchronous step was in flight; its result was discarded.
	ErrSuperseded = errors.New("superseded by widget teardown")
	// ErrDestroyed is returned by operations on a destroyed control.
	ErrDestroyed = errors.New("control destroyed")
	// ErrNoCheckoutURL is wrapped by ConfigurationError.
	ErrNoCheckoutURL = errors.New("no checkout URL has been specified")
)

// ConfigurationError is an operator misconfiguration detected at submit time.
// It is never turned into a status.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// WidgetInitError wraps a failed vendor create.
type WidgetInitError struct {
	Err error
}

func (e *WidgetInitError) Error() string { return "widget init: " + e.Err.Error() }
func (e *WidgetInitError) Unwrap() error { return e.Err }

// PaymentMethodError wraps a failed or empty payment-method request.
type PaymentMethodError struct {
	Err error
}

func (e *PaymentMethodError) Error() string { return "payment method: " + e.Err.Error() }
func (e *PaymentMethodError) Unwrap() error { return e.Err }

// CheckoutTransportError covers unexpected HTTP statuses, unreadable bodies
// and network failures talking to the checkout endpoint.
type CheckoutTransportError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *CheckoutTransportError) Error() string {
	if e.Err == nil {
		return e.Status
	}
	if e.Status != "" {
		return fmt.Sprintf("%s: %v", e.Status, e.Err)
	}
	return e.Err.Error()
}

func (e *CheckoutTransportError) Unwrap() error { return e.Err }

// CheckoutBusinessError is a well-formed checkout response with success=false.
type CheckoutBusinessError struct {
	Message string
}

func (e *CheckoutBusinessError) Error() string { return e.Message }

// Kind classifies err into a stable string for logs and API responses.
func Kind(err error) string {
	var (
		cfgErr       *ConfigurationError
		initErr      *WidgetInitError
		methodErr    *PaymentMethodError
		transportErr *CheckoutTransportError
		businessErr  *CheckoutBusinessError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &initErr):
		return "widget_init"
	case errors.As(err, &methodErr):
		return "payment_method"
	case errors.As(err, &businessErr):
		return "checkout_declined"
	case errors.As(err, &transportErr):
		return "checkout_transport"
	case errors.Is(err, ErrSubmitUnavailable):
		return "submit_unavailable"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.Is(err, ErrDestroyed):
		return "destroyed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
