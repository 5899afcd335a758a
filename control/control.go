// Package control implements the drop-in payment control: it watches host
// configuration, owns the vendor widget lifecycle and drives the payment
// submission state machine.
//
// All state lives on one Control and is mutated under its mutex. Calls out to
// the widget, the checkout endpoint, the surface and the host notification
// happen with the mutex released; their effects are queued while locked and
// delivered in order afterwards.
package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"paycontrol/utils"
)

// CheckoutRequest is the body posted to the merchant checkout endpoint.
type CheckoutRequest struct {
	PaymentMethodNonce string  `json:"payment_method_nonce"`
	Amount             float64 `json:"amount"`
}

// CheckoutResponse is the merchant checkout endpoint reply.
type CheckoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CheckoutPoster posts a nonce to the merchant checkout endpoint. A non-nil
// response means the endpoint answered with a parseable body.
type CheckoutPoster interface {
	Post(ctx context.Context, url string, req CheckoutRequest) (*CheckoutResponse, error)
}

// Surface presents views. Apply is called with every changed view, in order.
type Surface interface {
	Apply(v View)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(View)

func (f SurfaceFunc) Apply(v View) { f(v) }

// Options configure a Control.
type Options struct {
	Dropin   Dropin
	Checkout CheckoutPoster
	Surface  Surface
	// Notify is the host notification callback, called once per status change.
	Notify func()

	Scheduler Scheduler
	InitDelay time.Duration
	Container string

	// ForceErrorOnPaymentMethodFailure moves the status to error when the
	// widget fails to return a payment method. Off by default: the failure is
	// shown in the error label and the widget stays usable.
	ForceErrorOnPaymentMethodFailure bool
}

type outbound struct {
	view     *View
	notify   bool
	teardown Instance
}

// Control is one embedded payment control.
type Control struct {
	opts     Options
	debounce *debouncer
	ctx      context.Context
	cancel   context.CancelFunc

	mu             sync.Mutex
	settings       Settings
	status         Status
	message        string
	instance       Instance
	submitAttached bool
	requestable    bool
	submitting     bool
	epoch          uint64
	destroyed      bool

	pendingNotify int
	viewDirty     bool
	outbox        []outbound
	flushing      bool
}

// New creates a control in the uninitialised state.
func New(opts Options) (*Control, error) {
	if opts.Dropin == nil {
		return nil, errors.New("control: dropin is required")
	}
	if opts.Checkout == nil {
		return nil, errors.New("control: checkout poster is required")
	}
	if opts.Container == "" {
		opts.Container = DefaultContainer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Control{
		opts:     opts,
		debounce: newDebouncer(opts.Scheduler, opts.InitDelay),
		ctx:      ctx,
		cancel:   cancel,
		settings: DefaultSettings(),
		status:   StatusUninitialised,
		message:  msgUninitialised,
	}, nil
}

// Init is the host's first call. It renders the initial view and applies the
// initial configuration.
func (c *Control) Init(s Snapshot) Change {
	c.mu.Lock()
	c.viewDirty = true
	c.unlockAndFlush()

	return c.UpdateView(s)
}

// UpdateView applies a configuration snapshot and returns how it was
// classified. A reset tears the widget down once and requests one init, no
// matter how many resetting fields changed.
func (c *Control) UpdateView(s Snapshot) Change {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if c.destroyed {
		utils.Warn("control", "Update ignored on destroyed control")
		return NoChange
	}

	change, next := Classify(c.settings, s)
	prev := c.settings
	c.settings = next

	if next.DefaultFontSize != prev.DefaultFontSize || next.ButtonFontSize != prev.ButtonFontSize {
		c.viewDirty = true
	}

	if change.Resets() {
		utils.Info("control", "Configuration requires widget reset",
			"change", change.String(),
			"has_key", next.TokenizationKey != "",
			"paypal", next.PayPalEnabled,
			"card_font_size", next.CardFontSize,
		)
		c.teardownLocked(change == ResetAsUninitialised)
		c.requestInitLocked()
	} else if change == Cosmetic {
		utils.Debug("control", "Applied style change",
			"default_font_size", next.DefaultFontSize,
			"button_font_size", next.ButtonFontSize,
		)
	}

	return change
}

// Remount recreates the widget with the current configuration, as if the
// host had asserted the reset flag.
func (c *Control) Remount() {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if c.destroyed {
		return
	}
	c.teardownLocked(false)
	c.requestInitLocked()
}

// Reattach recreates the widget for a newly loaded page. It only acts while
// the control is new or uninitialised: a processing, completed or failed
// control is left as it is, and a failed creation is never retried here.
// It reports whether a remount was requested.
func (c *Control) Reattach() bool {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if c.destroyed {
		return false
	}
	switch c.status {
	case StatusNew, StatusUninitialised:
	default:
		utils.Debug("control", "Reattach skipped", "status", string(c.status))
		return false
	}
	c.teardownLocked(false)
	c.requestInitLocked()
	return true
}

// GetOutputs returns the host-visible outputs.
func (c *Control) GetOutputs() Outputs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Outputs{PaymentStatus: string(c.status)}
}

// Status returns the current payment status.
func (c *Control) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Settings returns the stored configuration.
func (c *Control) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// View renders the current state.
func (c *Control) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Destroy tears the widget down and stops all pending work. Completions that
// arrive afterwards are discarded.
func (c *Control) Destroy() {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if c.destroyed {
		return
	}
	c.destroyed = true
	c.debounce.Cancel()
	c.teardownLocked(false)
	c.cancel()
	utils.Info("control", "Control destroyed")
}

func (c *Control) viewLocked() View {
	return Render(RenderInput{
		Status:          c.status,
		ErrorMessage:    c.message,
		SubmitAttached:  c.submitAttached,
		Requestable:     c.requestable,
		Submitting:      c.submitting,
		DefaultFontSize: c.settings.DefaultFontSize,
		ButtonFontSize:  c.settings.ButtonFontSize,
	})
}

func (c *Control) setMessageLocked(msg string) {
	if msg != c.message {
		c.message = msg
		c.viewDirty = true
	}
}

// setSubmittingLocked marks a submission in flight. The submit region is
// disabled for its duration, so every change is pushed to the surface.
func (c *Control) setSubmittingLocked(on bool) {
	if on != c.submitting {
		c.submitting = on
		c.viewDirty = true
	}
}

func (c *Control) submitEnabledLocked() bool {
	return c.instance != nil && c.status == StatusNew && c.submitAttached && c.requestable
}

// commitLocked moves pending view and notification effects to the outbox.
func (c *Control) commitLocked() {
	if c.viewDirty {
		v := c.viewLocked()
		c.outbox = append(c.outbox, outbound{view: &v})
		c.viewDirty = false
	}
	for ; c.pendingNotify > 0; c.pendingNotify-- {
		c.outbox = append(c.outbox, outbound{notify: true})
	}
}

// unlockAndFlush commits, releases c.mu and delivers queued effects. Only one
// goroutine delivers at a time; a reentrant or concurrent caller leaves its
// effects to the active flusher, which keeps delivery in commit order.
func (c *Control) unlockAndFlush() {
	c.commitLocked()
	if c.flushing {
		c.mu.Unlock()
		return
	}
	c.flushing = true
	for {
		out := c.outbox
		c.outbox = nil
		if len(out) == 0 {
			c.flushing = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		c.deliver(out)
		c.mu.Lock()
		c.commitLocked()
	}
}

func (c *Control) deliver(out []outbound) {
	for _, o := range out {
		switch {
		case o.teardown != nil:
			if err := o.teardown.Teardown(); err != nil {
				utils.Warn("widget", "Widget teardown failed", "error", err)
			}
		case o.view != nil:
			if c.opts.Surface != nil {
				c.opts.Surface.Apply(*o.view)
			}
		case o.notify:
			if c.opts.Notify != nil {
				c.opts.Notify()
			}
		}
	}
}
