package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paycontrol/control"
)

type published struct {
	event string
	data  json.RawMessage
}

// recordingPublisher captures broadcasts on a channel for the fake browser.
type recordingPublisher struct {
	mu  sync.Mutex
	all []published
	ch  chan published
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{ch: make(chan published, 64)}
}

func (p *recordingPublisher) Broadcast(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := published{event: event, data: data}
	p.mu.Lock()
	p.all = append(p.all, msg)
	p.mu.Unlock()
	p.ch <- msg
	return nil
}

func (p *recordingPublisher) await(event string) (published, bool) {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-p.ch:
			if msg.event == event {
				return msg, true
			}
		case <-timeout:
			return published{}, false
		}
	}
}

func (p *recordingPublisher) next(t *testing.T, event string) published {
	t.Helper()
	msg, ok := p.await(event)
	if !ok {
		t.Fatalf("no %s event published", event)
	}
	return msg
}

// answerRequest plays the browser side of one payment-method request.
func (p *recordingPublisher) answerRequest(d *BrowserDropin, report PaymentMethodReport) {
	msg, ok := p.await(EventWidgetRequest)
	if !ok {
		return
	}
	var cmd RequestCommand
	if err := json.Unmarshal(msg.data, &cmd); err != nil {
		return
	}
	report.RequestID = cmd.RequestID
	_ = d.ReportPaymentMethod(report)
}

func (p *recordingPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.all {
		if m.event == event {
			n++
		}
	}
	return n
}

func mountWidget(t *testing.T, d *BrowserDropin, pub *recordingPublisher, opts control.WidgetOptions) control.Instance {
	t.Helper()

	type result struct {
		inst control.Instance
		err  error
	}
	done := make(chan result, 1)
	go func() {
		inst, err := d.Create(context.Background(), opts)
		done <- result{inst, err}
	}()

	var cmd CreateCommand
	require.NoError(t, json.Unmarshal(pub.next(t, EventWidgetCreate).data, &cmd))
	require.Equal(t, opts.Authorization, cmd.Options.Authorization)
	require.NoError(t, d.ReportCreated(CreatedReport{ID: cmd.ID, Requestable: true}))

	res := <-done
	require.NoError(t, res.err)
	return res.inst
}

func TestBrowserDropin_CreateAndRequest(t *testing.T) {
	t.Parallel()

	pub := newRecordingPublisher()
	d := NewBrowserDropin(pub, time.Second)

	inst := mountWidget(t, d, pub, control.WidgetOptions{Authorization: "sandbox_key"})
	require.True(t, inst.IsPaymentMethodRequestable())
	require.Equal(t, 1, d.Live())

	go pub.answerRequest(d, PaymentMethodReport{Nonce: "nonce-abc", Type: "CreditCard"})

	method, err := inst.RequestPaymentMethod(context.Background())
	require.NoError(t, err)
	require.Equal(t, &control.PaymentMethod{Nonce: "nonce-abc", Type: "CreditCard"}, method)
}

func TestBrowserDropin_CreateReportsError(t *testing.T) {
	t.Parallel()

	pub := newRecordingPublisher()
	d := NewBrowserDropin(pub, time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := d.Create(context.Background(), control.WidgetOptions{Authorization: "bad"})
		done <- err
	}()

	var cmd CreateCommand
	require.NoError(t, json.Unmarshal(pub.next(t, EventWidgetCreate).data, &cmd))
	require.NoError(t, d.ReportCreated(CreatedReport{ID: cmd.ID, Error: "Authorization is invalid"}))

	require.EqualError(t, <-done, "Authorization is invalid")
	require.Zero(t, d.Live())
}

func TestBrowserDropin_CreateTimesOut(t *testing.T) {
	t.Parallel()

	pub := newRecordingPublisher()
	d := NewBrowserDropin(pub, 20*time.Millisecond)

	_, err := d.Create(context.Background(), control.WidgetOptions{Authorization: "k"})
	require.ErrorIs(t, err, ErrWidgetTimeout)
	require.Equal(t, 1, pub.count(EventWidgetTeardown))

	var cmd CreateCommand
	require.NoError(t, json.Unmarshal(pub.next(t, EventWidgetCreate).data, &cmd))
	require.ErrorIs(t, d.ReportCreated(CreatedReport{ID: cmd.ID}), ErrUnknownWidget)
}

func TestBrowserDropin_CreateCancelled(t *testing.T) {
	t.Parallel()

	d := NewBrowserDropin(newRecordingPublisher(), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Create(ctx, control.WidgetOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBrowserDropin_RequestError(t *testing.T) {
	t.Parallel()

	pub := newRecordingPublisher()
	d := NewBrowserDropin(pub, time.Second)
	inst := mountWidget(t, d, pub, control.WidgetOptions{Authorization: "k"})

	go pub.answerRequest(d, PaymentMethodReport{Error: "No payment method is available."})

	_, err := inst.RequestPaymentMethod(context.Background())
	require.EqualError(t, err, "No payment method is available.")
}

func TestBrowserDropin_TeardownFailsPendingRequest(t *testing.T) {
	t.Parallel()

	pub := newRecordingPublisher()
	d := NewBrowserDropin(pub, time.Minute)
	inst := mountWidget(t, d, pub, control.WidgetOptions{Authorization: "k"})

	errc := make(chan error, 1)
	go func() {
		_, err := inst.RequestPaymentMethod(context.Background())
		errc <- err
	}()
	pub.next(t, EventWidgetRequest)

	require.NoError(t, inst.Teardown())
	require.ErrorIs(t, <-errc, ErrWidgetGone)
	require.Zero(t, d.Live())

	require.NoError(t, inst.Teardown())
	require.Equal(t, 1, pub.count(EventWidgetTeardown))

	_, err := inst.RequestPaymentMethod(context.Background())
	require.ErrorIs(t, err, ErrWidgetGone)
}

func TestBrowserDropin_Events(t *testing.T) {
	t.Parallel()

	pub := newRecordingPublisher()
	d := NewBrowserDropin(pub, time.Second)
	inst := mountWidget(t, d, pub, control.WidgetOptions{Authorization: "k"})

	var got []control.Event
	for _, ev := range []control.Event{control.EventPaymentMethodRequestable, control.EventNoPaymentMethodRequestable} {
		ev := ev
		inst.On(ev, func() { got = append(got, ev) })
	}

	id := inst.(*browserInstance).id

	require.NoError(t, d.ReportEvent(EventReport{ID: id, Event: control.EventNoPaymentMethodRequestable}))
	require.False(t, inst.IsPaymentMethodRequestable())
	require.NoError(t, d.ReportEvent(EventReport{ID: id, Event: control.EventPaymentMethodRequestable}))
	require.True(t, inst.IsPaymentMethodRequestable())
	require.Equal(t, []control.Event{control.EventNoPaymentMethodRequestable, control.EventPaymentMethodRequestable}, got)

	require.ErrorIs(t, d.ReportEvent(EventReport{ID: "nope", Event: control.EventPaymentOptionSelected}), ErrUnknownWidget)
}

type stubPoster struct {
	resp *control.CheckoutResponse
	err  error
}

func (p stubPoster) Post(ctx context.Context, url string, req control.CheckoutRequest) (*control.CheckoutResponse, error) {
	return p.resp, p.err
}

func TestBrowserDropin_DrivesControl(t *testing.T) {
	t.Parallel()

	pub := newRecordingPublisher()
	d := NewBrowserDropin(pub, time.Second)
	ctrl, err := control.New(control.Options{
		Dropin:    d,
		Checkout:  stubPoster{resp: &control.CheckoutResponse{Success: true}},
		InitDelay: time.Millisecond,
	})
	require.NoError(t, err)
	defer ctrl.Destroy()

	ctrl.Init(control.Snapshot{
		TokenizationKey: control.String("sandbox_key"),
		CheckoutURL:     control.String("https://merchant.example/checkout"),
		PaymentAmount:   control.Float(5),
	})

	var cmd CreateCommand
	require.NoError(t, json.Unmarshal(pub.next(t, EventWidgetCreate).data, &cmd))
	require.NoError(t, d.ReportCreated(CreatedReport{ID: cmd.ID, Requestable: true}))
	require.Eventually(t, func() bool { return ctrl.SubmitEnabled() }, time.Second, 5*time.Millisecond)

	go pub.answerRequest(d, PaymentMethodReport{Nonce: "fake-valid-nonce"})

	require.NoError(t, ctrl.Submit(context.Background()))
	require.Equal(t, control.StatusCompleted, ctrl.Status())
	require.Eventually(t, func() bool { return d.Live() == 0 }, time.Second, 5*time.Millisecond)
}
