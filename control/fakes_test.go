package control

import (
	"context"
	"sync"
	"testing"
	"time"
)

type manualTask struct {
	f       func()
	delay   time.Duration
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// manualScheduler runs tasks only when the test fires them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{f: f, delay: d}
	s.tasks = append(s.tasks, t)
	return t
}

// Fire runs every task that is still pending and returns how many ran.
func (s *manualScheduler) Fire() int {
	s.mu.Lock()
	var due []*manualTask
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (s *manualScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *manualScheduler) LastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return 0
	}
	return s.tasks[len(s.tasks)-1].delay
}

type fakeInstance struct {
	mu          sync.Mutex
	requestable bool
	handlers    map[Event][]func()
	method      *PaymentMethod
	methodErr   error
	teardowns   int
	// methodBlock, when set, holds RequestPaymentMethod until it is closed.
	methodBlock chan struct{}
	// methodEntered is signalled when RequestPaymentMethod starts.
	methodEntered chan struct{}
}

func newFakeInstance(requestable bool) *fakeInstance {
	return &fakeInstance{
		requestable: requestable,
		handlers:    make(map[Event][]func()),
		method:      &PaymentMethod{Nonce: "fake-valid-nonce", Type: "CreditCard"},
	}
}

func (i *fakeInstance) RequestPaymentMethod(ctx context.Context) (*PaymentMethod, error) {
	i.mu.Lock()
	block, entered := i.methodBlock, i.methodEntered
	i.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.method, i.methodErr
}

func (i *fakeInstance) Teardown() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.teardowns++
	return nil
}

func (i *fakeInstance) On(event Event, handler func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handlers[event] = append(i.handlers[event], handler)
}

func (i *fakeInstance) IsPaymentMethodRequestable() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.requestable
}

func (i *fakeInstance) Emit(event Event) {
	i.mu.Lock()
	hs := append([]func(){}, i.handlers[event]...)
	i.mu.Unlock()
	for _, h := range hs {
		h()
	}
}

func (i *fakeInstance) Teardowns() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.teardowns
}

type fakeDropin struct {
	mu        sync.Mutex
	calls     []WidgetOptions
	instances []*fakeInstance
	err       error
	panicWith any
	// notRequestable creates widgets with no payment method selected yet.
	notRequestable bool
	// block, when set, holds Create until it is closed.
	block chan struct{}
	// entered is signalled when Create starts.
	entered chan struct{}
}

func (d *fakeDropin) Create(ctx context.Context, opts WidgetOptions) (Instance, error) {
	d.mu.Lock()
	d.calls = append(d.calls, opts)
	block, entered := d.block, d.entered
	err, p := d.err, d.panicWith
	requestable := !d.notRequestable
	d.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if p != nil {
		panic(p)
	}
	if err != nil {
		return nil, err
	}

	inst := newFakeInstance(requestable)
	d.mu.Lock()
	d.instances = append(d.instances, inst)
	d.mu.Unlock()
	return inst, nil
}

func (d *fakeDropin) Calls() []WidgetOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]WidgetOptions(nil), d.calls...)
}

func (d *fakeDropin) Last() *fakeInstance {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.instances) == 0 {
		return nil
	}
	return d.instances[len(d.instances)-1]
}

type fakePoster struct {
	mu       sync.Mutex
	requests []CheckoutRequest
	urls     []string
	resp     *CheckoutResponse
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (p *fakePoster) Post(ctx context.Context, url string, req CheckoutRequest) (*CheckoutResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.urls = append(p.urls, url)
	block, entered := p.block, p.entered
	resp, err := p.resp, p.err
	p.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return resp, err
}

func (p *fakePoster) Requests() []CheckoutRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CheckoutRequest(nil), p.requests...)
}

// hostRecorder records notifications and applied views.
type hostRecorder struct {
	mu       sync.Mutex
	ctrl     *Control
	statuses []Status
	views    []View
}

func (h *hostRecorder) Notify() {
	out := h.ctrl.GetOutputs()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, Status(out.PaymentStatus))
}

func (h *hostRecorder) Apply(v View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.views = append(h.views, v)
}

func (h *hostRecorder) Statuses() []Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Status(nil), h.statuses...)
}

func (h *hostRecorder) ViewCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}

func (h *hostRecorder) LastView() View {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.views) == 0 {
		return View{}
	}
	return h.views[len(h.views)-1]
}

type harness struct {
	ctrl   *Control
	sched  *manualScheduler
	dropin *fakeDropin
	poster *fakePoster
	host   *hostRecorder
}

func newHarness(t testing.TB, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		sched:  &manualScheduler{},
		dropin: &fakeDropin{},
		poster: &fakePoster{resp: &CheckoutResponse{Success: true}},
		host:   &hostRecorder{},
	}
	opts := Options{
		Dropin:    h.dropin,
		Checkout:  h.poster,
		Surface:   h.host,
		Notify:    h.host.Notify,
		Scheduler: h.sched,
	}
	for _, m := range mutate {
		m(&opts)
	}
	ctrl, err := New(opts)
	if err != nil {
		t.Fatalf("new control: %v", err)
	}
	h.ctrl = ctrl
	h.host.ctrl = ctrl
	return h
}

// live brings the control to status new with a requestable widget.
func (h *harness) live(t testing.TB) *fakeInstance {
	t.Helper()
	h.ctrl.Init(Snapshot{
		TokenizationKey: String("sandbox_abc123"),
		CheckoutURL:     String("https://merchant.example/checkout"),
		PaymentAmount:   Float(10.5),
	})
	if n := h.sched.Fire(); n != 1 {
		t.Fatalf("expected one init task, fired %d", n)
	}
	inst := h.dropin.Last()
	if inst == nil {
		t.Fatalf("widget was not created")
	}
	return inst
}
