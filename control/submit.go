package control

import (
	"context"
	"errors"
	"fmt"

	"paycontrol/utils"
)

// SubmitEnabled reports whether the submit affordance is currently usable.
func (c *Control) SubmitEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitEnabledLocked() && !c.submitting
}

// Submit requests a payment method from the widget and posts its nonce to the
// checkout endpoint. It blocks until the attempt finishes and returns the
// error that ended it, if any.
//
// A missing checkout URL returns a *ConfigurationError without touching the
// status. A failed payment-method request returns a *PaymentMethodError and
// leaves the widget live. Checkout failures move the status to error.
func (c *Control) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	if !c.submitEnabledLocked() || c.submitting {
		c.mu.Unlock()
		return ErrSubmitUnavailable
	}
	if c.settings.CheckoutURL == "" {
		c.mu.Unlock()
		err := &ConfigurationError{Err: ErrNoCheckoutURL}
		utils.Error("checkout", "Submit without checkout URL", "error", err)
		return err
	}
	c.setSubmittingLocked(true)
	inst := c.instance
	epoch := c.epoch
	url := c.settings.CheckoutURL
	amount := c.settings.PaymentAmount
	c.unlockAndFlush()

	payload, err := inst.RequestPaymentMethod(ctx)
	if err == nil && (payload == nil || payload.Nonce == "") {
		err = errors.New("no payment method returned")
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.unlockAndFlush()
		utils.Warn("checkout", "Payment method arrived after widget teardown", "epoch", epoch)
		return ErrSuperseded
	}
	if err != nil {
		c.setSubmittingLocked(false)
		c.setMessageLocked(fmt.Sprintf(msgMethodFailed, err))
		// Re-enables submit in the surface even when the message repeats.
		c.viewDirty = true
		if c.opts.ForceErrorOnPaymentMethodFailure {
			c.setStatusLocked(StatusError)
		}
		c.unlockAndFlush()
		methodErr := &PaymentMethodError{Err: err}
		utils.Warn("checkout", "Payment method request failed", "error", methodErr)
		return methodErr
	}
	c.setStatusLocked(StatusProcessing)
	c.unlockAndFlush()

	utils.Info("checkout", "Posting nonce to checkout endpoint", "url", url, "amount", amount)
	resp, err := c.opts.Checkout.Post(ctx, url, CheckoutRequest{
		PaymentMethodNonce: payload.Nonce,
		Amount:             amount,
	})
	if err == nil && resp == nil {
		err = &CheckoutTransportError{Err: errors.New("empty checkout response")}
	}

	c.mu.Lock()
	defer c.unlockAndFlush()

	if epoch != c.epoch {
		utils.Warn("checkout", "Checkout response arrived after widget teardown",
			"epoch", epoch, "current_epoch", c.epoch, "error", err)
		return ErrSuperseded
	}
	c.setSubmittingLocked(false)

	if err != nil {
		var transportErr *CheckoutTransportError
		if !errors.As(err, &transportErr) {
			err = &CheckoutTransportError{Err: err}
		}
		c.setStatusLocked(StatusError)
		c.setMessageLocked(fmt.Sprintf(msgCheckout, err))
		utils.Error("checkout", "Checkout request failed", "error", err)
		return err
	}

	if !resp.Success {
		c.setStatusLocked(StatusError)
		c.setMessageLocked(fmt.Sprintf(msgCheckout, resp.Message))
		utils.Warn("checkout", "Checkout declined", "message", resp.Message)
		return &CheckoutBusinessError{Message: resp.Message}
	}

	c.setStatusLocked(StatusCompleted)
	c.teardownLocked(false)
	utils.Info("checkout", "Payment completed", "amount", amount)
	return nil
}
