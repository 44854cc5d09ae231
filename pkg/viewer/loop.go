package viewer

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Loop is the single thread that owns a Session.
//
// Every Session method runs on the loop. Blocking work is handed to Go and
// reports back with Post, so backend responses, timers and input events are
// serialized without locks.
type Loop interface {
	// Post schedules fn to run on the loop.
	Post(fn func())

	// AfterFunc schedules fn to run on the loop after d.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)

	// Go runs fn off the loop.
	Go(fn func())
}

// =============================================================================
// EventLoop
// =============================================================================

// EventLoop is a Loop for hosting a Session outside a UI framework: one
// goroutine draining a bounded queue of funcs. The terminal viewer drives
// its session from the bubbletea update goroutine instead.
type EventLoop struct {
	queue chan func()
	wg    sync.WaitGroup
}

// NewEventLoop creates a loop with the given queue depth, 256 when depth is
// not positive. Run must be called for posted funcs to execute.
func NewEventLoop(depth int) *EventLoop {
	if depth <= 0 {
		depth = 256
	}
	return &EventLoop{queue: make(chan func(), depth)}
}

// Run executes posted funcs until ctx is cancelled, then waits for
// outstanding Go calls. Funcs still queued when Run returns, or posted
// later, are never executed; once the queue holds depth funcs, further
// posts block forever.
func (l *EventLoop) Run(ctx context.Context) error {
	defer l.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post implements Loop. It blocks while the queue holds depth funcs.
func (l *EventLoop) Post(fn func()) { l.queue <- fn }

// AfterFunc implements Loop.
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, func() { l.Post(fn) }).Stop
}

// Go implements Loop.
func (l *EventLoop) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// =============================================================================
// ManualLoop
// =============================================================================

// ManualLoop is a deterministic Loop driven by its caller. Nothing runs until
// Drain, RunJob, Advance or Settle is called. It backs headless sessions and
// tests, where backend completion order must be chosen explicitly.
//
// ManualLoop is not safe for concurrent use.
type ManualLoop struct {
	now    time.Duration
	posted []func()
	jobs   []func()
	timers []*manualTimer
	nextID int
}

type manualTimer struct {
	id      int
	due     time.Duration
	fn      func()
	stopped bool
}

// NewManualLoop creates an idle loop at virtual time zero.
func NewManualLoop() *ManualLoop { return &ManualLoop{} }

// Post implements Loop.
func (l *ManualLoop) Post(fn func()) { l.posted = append(l.posted, fn) }

// Go implements Loop. The job is queued until RunJob or Settle.
func (l *ManualLoop) Go(fn func()) { l.jobs = append(l.jobs, fn) }

// AfterFunc implements Loop on the virtual clock.
func (l *ManualLoop) AfterFunc(d time.Duration, fn func()) func() bool {
	l.nextID++
	t := &manualTimer{id: l.nextID, due: l.now + d, fn: fn}
	l.timers = append(l.timers, t)
	return func() bool {
		if t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Now returns the virtual time.
func (l *ManualLoop) Now() time.Duration { return l.now }

// Jobs returns the number of queued Go jobs.
func (l *ManualLoop) Jobs() int { return len(l.jobs) }

// RunJob runs the i-th queued job, then drains whatever it posted.
func (l *ManualLoop) RunJob(i int) {
	fn := l.jobs[i]
	l.jobs = append(l.jobs[:i:i], l.jobs[i+1:]...)
	fn()
	l.Drain()
}

// DropJob discards the i-th queued job without running it.
func (l *ManualLoop) DropJob(i int) {
	l.jobs = append(l.jobs[:i:i], l.jobs[i+1:]...)
}

// Drain runs posted funcs, including ones they post, until the queue is empty.
func (l *ManualLoop) Drain() {
	for len(l.posted) > 0 {
		fn := l.posted[0]
		l.posted = l.posted[1:]
		fn()
	}
}

// Advance moves the virtual clock by d and fires every timer that came due,
// in due order.
func (l *ManualLoop) Advance(d time.Duration) {
	target := l.now + d
	for {
		l.Drain()
		t := l.nextDue(target)
		if t == nil {
			break
		}
		l.now = t.due
		t.stopped = true
		t.fn()
	}
	l.now = target
	l.Drain()
	l.compact()
}

// Settle runs queued jobs in FIFO order and drains posts until both queues
// are empty. Timers are not fired.
func (l *ManualLoop) Settle() {
	l.Drain()
	for len(l.jobs) > 0 {
		l.RunJob(0)
	}
}

func (l *ManualLoop) nextDue(limit time.Duration) *manualTimer {
	var live []*manualTimer
	for _, t := range l.timers {
		if !t.stopped && t.due <= limit {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].due != live[j].due {
			return live[i].due < live[j].due
		}
		return live[i].id < live[j].id
	})
	return live[0]
}

func (l *ManualLoop) compact() {
	kept := l.timers[:0]
	for _, t := range l.timers {
		if !t.stopped {
			kept = append(kept, t)
		}
	}
	l.timers = kept
}
