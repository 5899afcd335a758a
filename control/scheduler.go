package control

import (
	"sync"
	"time"
)

// DefaultInitDelay coalesces bursts of configuration changes into one widget
// creation.
const DefaultInitDelay = 250 * time.Millisecond

// Task is a scheduled function that can be cancelled before it runs.
type Task interface {
	// Stop cancels the task. It reports false if the task already ran or was
	// already stopped.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// TimerScheduler schedules with time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// debouncer owns at most one pending task; scheduling replaces it.
type debouncer struct {
	mu      sync.Mutex
	sched   Scheduler
	delay   time.Duration
	pending Task
	seq     uint64
}

func newDebouncer(s Scheduler, delay time.Duration) *debouncer {
	if s == nil {
		s = TimerScheduler{}
	}
	if delay <= 0 {
		delay = DefaultInitDelay
	}
	return &debouncer{sched: s, delay: delay}
}

// Schedule cancels any pending task and schedules f. Only the most recent
// scheduling runs, even if an older timer fires concurrently with Schedule.
func (d *debouncer) Schedule(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending task, if any.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
	d.seq++
}

// Pending reports whether a task is scheduled and has not yet fired.
func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
