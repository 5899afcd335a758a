package control

import (
	"errors"
	"fmt"

	"paycontrol/utils"
)

// teardownLocked discards the live widget and detaches the submit affordance.
// It is safe to call with no live widget. Every call starts a new epoch, so
// results of work started before it are ignored.
func (c *Control) teardownLocked(forceUninitialised bool) {
	c.epoch++

	if c.instance != nil {
		c.outbox = append(c.outbox, outbound{teardown: c.instance})
		c.instance = nil
		utils.Debug("widget", "Widget torn down", "epoch", c.epoch, "forced", forceUninitialised)
	}
	if c.submitAttached || c.requestable {
		c.submitAttached = false
		c.requestable = false
		c.viewDirty = true
	}
	c.setSubmittingLocked(false)

	if forceUninitialised {
		c.setStatusLocked(StatusUninitialised)
	}
}

// requestInitLocked schedules widget creation after the debounce delay,
// replacing any creation already scheduled.
func (c *Control) requestInitLocked() {
	if c.destroyed || c.settings.TokenizationKey == "" {
		return
	}
	c.debounce.Schedule(c.createWidget)
}

// createWidget runs when the debounce task fires.
func (c *Control) createWidget() {
	c.mu.Lock()
	if c.destroyed || c.settings.TokenizationKey == "" {
		c.unlockAndFlush()
		return
	}
	epoch := c.epoch
	opts := BuildWidgetOptions(c.settings, c.opts.Container)
	c.unlockAndFlush()

	utils.Info("widget", "Creating drop-in",
		"card_font_size", opts.Card.Overrides.Styles[".number"]["font-size"],
		"paypal", opts.PayPal != nil,
		"epoch", epoch,
	)

	inst, err := c.safeCreate(opts)
	if err == nil && inst == nil {
		err = errors.New("vendor returned no instance")
	}

	var requestable bool
	if err == nil {
		requestable = inst.IsPaymentMethodRequestable()
		for _, ev := range []Event{EventPaymentOptionSelected, EventPaymentMethodRequestable, EventNoPaymentMethodRequestable} {
			ev := ev
			inst.On(ev, func() { c.onWidgetEvent(epoch, ev) })
		}
	}

	c.mu.Lock()
	defer c.unlockAndFlush()

	if epoch != c.epoch || c.destroyed || c.instance != nil {
		if inst != nil {
			c.outbox = append(c.outbox, outbound{teardown: inst})
		}
		utils.Debug("widget", "Discarded stale widget creation", "epoch", epoch, "current_epoch", c.epoch)
		return
	}

	if err != nil {
		initErr := &WidgetInitError{Err: err}
		utils.Error("widget", "Widget creation failed", "error", initErr)
		c.setStatusLocked(StatusError)
		c.setMessageLocked(fmt.Sprintf(msgInitFailed, err))
		return
	}

	c.instance = inst
	c.setStatusLocked(StatusNew)
	c.submitAttached = true
	c.requestable = requestable
	c.viewDirty = true
	utils.Info("widget", "Widget ready", "epoch", epoch, "requestable", requestable)
}

// safeCreate calls the vendor SDK and turns a panic into an error.
func (c *Control) safeCreate(opts WidgetOptions) (inst Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = fmt.Errorf("create panicked: %v", r)
		}
	}()
	return c.opts.Dropin.Create(c.ctx, opts)
}

// onWidgetEvent updates the submit affordance from widget selection events.
func (c *Control) onWidgetEvent(epoch uint64, ev Event) {
	c.mu.Lock()
	defer c.unlockAndFlush()

	if epoch != c.epoch || c.instance == nil {
		return
	}

	switch ev {
	case EventPaymentOptionSelected:
		c.submitAttached = true
	case EventPaymentMethodRequestable:
		c.requestable = true
	case EventNoPaymentMethodRequestable:
		c.requestable = false
	default:
		return
	}
	c.viewDirty = true
	utils.Debug("widget", "Widget event", "event", string(ev), "requestable", c.requestable)
}
