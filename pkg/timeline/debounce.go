package timeline

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiescent period after the last scroll event before
// a synchronization is requested.
const DefaultDebounce = 50 * time.Millisecond

// AfterFunc schedules fn after d and returns a function that cancels it.
// time.AfterFunc satisfies it through [StdAfterFunc]; the viewer passes its
// event loop so the callback runs on the loop.
type AfterFunc func(d time.Duration, fn func()) (stop func() bool)

// StdAfterFunc adapts time.AfterFunc.
func StdAfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Debouncer runs fn once after calls to Trigger have stopped for the delay.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	after AfterFunc
	stop  func() bool
	gen   uint64
	fires int
}

// NewDebouncer creates a debouncer. A nil after uses time.AfterFunc and a
// non-positive delay selects DefaultDebounce.
func NewDebouncer(delay time.Duration, after AfterFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if after == nil {
		after = StdAfterFunc
	}
	return &Debouncer{delay: delay, after: after}
}

// Trigger (re)starts the quiet period; fn runs when it elapses.
// Only the fn from the most recent Trigger runs.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		d.stop()
	}
	d.gen++
	gen := d.gen
	d.stop = d.after(d.delay, func() {
		d.mu.Lock()
		// A callback that lost the race against a newer Trigger or Cancel.
		if gen != d.gen || d.stop == nil {
			d.mu.Unlock()
			return
		}
		d.stop = nil
		d.fires++
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops a pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.gen++
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop != nil
}

// Fires returns how many times a debounced call has run.
func (d *Debouncer) Fires() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fires
}
