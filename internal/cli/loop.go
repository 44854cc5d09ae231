package cli

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// wakeMsg tells the TUI that session work is queued.
type wakeMsg struct{}

// teaLoop runs a viewer session on the bubbletea update goroutine. Posted
// funcs are queued in order and drained when the program delivers a wakeMsg,
// so the session and the view are never touched concurrently.
type teaLoop struct {
	mu    sync.Mutex
	queue []func()
	send  func(tea.Msg)
	wg    sync.WaitGroup
}

// attach starts delivering wake-ups to p. Funcs posted before attach run
// on the first wake-up.
func (l *teaLoop) attach(p *tea.Program) {
	l.mu.Lock()
	l.send = p.Send
	pending := len(l.queue) > 0
	l.mu.Unlock()
	if pending {
		go p.Send(wakeMsg{})
	}
}

// Post implements viewer.Loop. It never blocks, so it may be called from
// Update itself.
func (l *teaLoop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	send := l.send
	l.mu.Unlock()
	if send != nil {
		go send(wakeMsg{})
	}
}

// AfterFunc implements viewer.Loop.
func (l *teaLoop) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, func() { l.Post(fn) }).Stop
}

// Go implements viewer.Loop.
func (l *teaLoop) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// drain runs queued funcs, including ones they post, in order.
func (l *teaLoop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
	}
}

// wait blocks until every Go job has returned.
func (l *teaLoop) wait() { l.wg.Wait() }
