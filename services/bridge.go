package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"paycontrol/control"
	"paycontrol/utils"
)

// DefaultWidgetTimeout bounds how long the bridge waits for the browser to
// answer a create or payment-method request.
const DefaultWidgetTimeout = 30 * time.Second

var (
	// ErrWidgetTimeout is returned when the browser does not answer in time.
	ErrWidgetTimeout = errors.New("browser did not answer in time")
	// ErrWidgetGone is returned for requests against a torn-down widget.
	ErrWidgetGone = errors.New("widget has been torn down")
	// ErrUnknownWidget is returned for callbacks naming no pending request.
	ErrUnknownWidget = errors.New("unknown widget or request id")
)

// Publisher pushes events to connected browsers.
type Publisher interface {
	Broadcast(event string, v any) error
}

// CreateCommand asks the browser to mount a drop-in.
type CreateCommand struct {
	ID      string                `json:"id"`
	Options control.WidgetOptions `json:"options"`
}

// RequestCommand asks the browser for a payment method from a live drop-in.
type RequestCommand struct {
	ID        string `json:"id"`
	RequestID string `json:"requestId"`
}

// TeardownCommand asks the browser to unmount a drop-in.
type TeardownCommand struct {
	ID string `json:"id"`
}

// CreatedReport is the browser's answer to a CreateCommand.
type CreatedReport struct {
	ID          string `json:"id"`
	Error       string `json:"error,omitempty"`
	Requestable bool   `json:"requestable"`
}

// EventReport forwards a drop-in event.
type EventReport struct {
	ID    string        `json:"id"`
	Event control.Event `json:"event"`
}

// PaymentMethodReport is the browser's answer to a RequestCommand.
type PaymentMethodReport struct {
	RequestID string `json:"requestId"`
	Nonce     string `json:"nonce,omitempty"`
	Type      string `json:"type,omitempty"`
	Error     string `json:"error,omitempty"`
}

type createResult struct {
	report CreatedReport
}

type methodResult struct {
	method *control.PaymentMethod
	err    error
}

// BrowserDropin runs the vendor drop-in SDK in the browser. Commands go out
// over the publisher; the browser posts results back through the Report*
// methods.
type BrowserDropin struct {
	pub     Publisher
	timeout time.Duration

	mu        sync.Mutex
	creates   map[string]chan createResult
	instances map[string]*browserInstance
	requests  map[string]*pendingRequest
}

type pendingRequest struct {
	widgetID string
	ch       chan methodResult
}

// NewBrowserDropin returns a bridge publishing on pub. Zero timeout uses
// DefaultWidgetTimeout.
func NewBrowserDropin(pub Publisher, timeout time.Duration) *BrowserDropin {
	if timeout <= 0 {
		timeout = DefaultWidgetTimeout
	}
	return &BrowserDropin{
		pub:       pub,
		timeout:   timeout,
		creates:   make(map[string]chan createResult),
		instances: make(map[string]*browserInstance),
		requests:  make(map[string]*pendingRequest),
	}
}

// Create asks the browser to mount a widget and waits for its report.
func (d *BrowserDropin) Create(ctx context.Context, opts control.WidgetOptions) (control.Instance, error) {
	id := uuid.NewString()
	ch := make(chan createResult, 1)

	d.mu.Lock()
	d.creates[id] = ch
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.creates, id)
		d.mu.Unlock()
	}()

	if err := d.pub.Broadcast(EventWidgetCreate, CreateCommand{ID: id, Options: opts}); err != nil {
		return nil, fmt.Errorf("publish create: %w", err)
	}
	utils.Debug("bridge", "Sent widget create", "widget", id)

	res, err := wait(ctx, ch, d.timeout)
	if err != nil {
		d.sendTeardown(id)
		return nil, err
	}
	if res.report.Error != "" {
		return nil, errors.New(res.report.Error)
	}

	inst := &browserInstance{
		id:          id,
		bridge:      d,
		requestable: res.report.Requestable,
		handlers:    make(map[control.Event][]func()),
	}
	d.mu.Lock()
	d.instances[id] = inst
	d.mu.Unlock()

	utils.Info("bridge", "Widget mounted in browser", "widget", id, "requestable", res.report.Requestable)
	return inst, nil
}

// ReportCreated resolves a pending Create.
func (d *BrowserDropin) ReportCreated(r CreatedReport) error {
	d.mu.Lock()
	ch, ok := d.creates[r.ID]
	if ok {
		delete(d.creates, r.ID)
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, r.ID)
	}
	ch <- createResult{report: r}
	return nil
}

// ReportEvent dispatches a drop-in event to the handlers of its instance.
func (d *BrowserDropin) ReportEvent(r EventReport) error {
	d.mu.Lock()
	inst, ok := d.instances[r.ID]
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, r.ID)
	}
	inst.dispatch(r.Event)
	return nil
}

// ReportPaymentMethod resolves a pending payment-method request.
func (d *BrowserDropin) ReportPaymentMethod(r PaymentMethodReport) error {
	d.mu.Lock()
	req, ok := d.requests[r.RequestID]
	if ok {
		delete(d.requests, r.RequestID)
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, r.RequestID)
	}

	var res methodResult
	if r.Error != "" {
		res.err = errors.New(r.Error)
	} else {
		res.method = &control.PaymentMethod{Nonce: r.Nonce, Type: r.Type}
	}
	req.ch <- res
	return nil
}

// Live returns the number of mounted widgets.
func (d *BrowserDropin) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.instances)
}

func (d *BrowserDropin) sendTeardown(id string) {
	if err := d.pub.Broadcast(EventWidgetTeardown, TeardownCommand{ID: id}); err != nil {
		utils.Warn("bridge", "Failed to publish teardown", "widget", id, "error", err)
	}
}

func wait[T any](ctx context.Context, ch <-chan T, timeout time.Duration) (T, error) {
	var zero T
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, ErrWidgetTimeout
	}
}

type browserInstance struct {
	id     string
	bridge *BrowserDropin

	mu          sync.Mutex
	requestable bool
	handlers    map[control.Event][]func()
	gone        bool
}

func (i *browserInstance) RequestPaymentMethod(ctx context.Context) (*control.PaymentMethod, error) {
	i.mu.Lock()
	gone := i.gone
	i.mu.Unlock()
	if gone {
		return nil, ErrWidgetGone
	}

	d := i.bridge
	reqID := uuid.NewString()
	req := &pendingRequest{widgetID: i.id, ch: make(chan methodResult, 1)}

	d.mu.Lock()
	d.requests[reqID] = req
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.requests, reqID)
		d.mu.Unlock()
	}()

	if err := d.pub.Broadcast(EventWidgetRequest, RequestCommand{ID: i.id, RequestID: reqID}); err != nil {
		return nil, fmt.Errorf("publish payment method request: %w", err)
	}

	res, err := wait(ctx, req.ch, d.timeout)
	if err != nil {
		return nil, err
	}
	return res.method, res.err
}

func (i *browserInstance) Teardown() error {
	i.mu.Lock()
	if i.gone {
		i.mu.Unlock()
		return nil
	}
	i.gone = true
	i.handlers = nil
	i.mu.Unlock()

	d := i.bridge
	d.mu.Lock()
	delete(d.instances, i.id)
	for id, req := range d.requests {
		if req.widgetID == i.id {
			delete(d.requests, id)
			req.ch <- methodResult{err: ErrWidgetGone}
		}
	}
	d.mu.Unlock()

	utils.Debug("bridge", "Tearing down widget", "widget", i.id)
	return d.pub.Broadcast(EventWidgetTeardown, TeardownCommand{ID: i.id})
}

func (i *browserInstance) On(event control.Event, handler func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.gone {
		return
	}
	i.handlers[event] = append(i.handlers[event], handler)
}

func (i *browserInstance) IsPaymentMethodRequestable() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.requestable
}

func (i *browserInstance) dispatch(event control.Event) {
	i.mu.Lock()
	if i.gone {
		i.mu.Unlock()
		return
	}
	switch event {
	case control.EventPaymentMethodRequestable:
		i.requestable = true
	case control.EventNoPaymentMethodRequestable:
		i.requestable = false
	}
	handlers := append([]func(){}, i.handlers[event]...)
	i.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}
