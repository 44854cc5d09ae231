package viewer

import (
	"context"
	"testing"
	"time"
)

func TestEventLoopKeepsPostsAfterRun(t *testing.T) {
	l := NewEventLoop(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != context.Canceled {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}

	ran := false
	l.Post(func() { ran = true })
	l.Post(func() { ran = true })
	if len(l.queue) != 2 || ran {
		t.Errorf("queue holds %d funcs, ran = %v, want 2 queued and none run", len(l.queue), ran)
	}

	blocked := make(chan struct{})
	go func() {
		l.Post(func() {})
		close(blocked)
	}()
	select {
	case <-blocked:
		t.Error("Post returned with a full queue")
	case <-time.After(20 * time.Millisecond):
	}
	<-l.queue
	<-blocked
}

func TestEventLoopDrivesSession(t *testing.T) {
	l := NewEventLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	s := New(newFakeBackend(9), l, testConfig(), WithSeed(7))
	opened := make(chan error, 1)
	l.Post(func() { opened <- s.Open(ctx) })
	if err := <-opened; err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	deadline := time.After(time.Second)
	for {
		n := make(chan int, 1)
		l.Post(func() { n <- s.Len() })
		if <-n == 8 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial window never loaded")
		case <-time.After(5 * time.Millisecond):
		}
	}
	l.Post(func() { s.Close() })
}

func TestEventLoopRunsPostedFuncsInOrder(t *testing.T) {
	l := NewEventLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	got := make(chan int, 3)
	for i := range 3 {
		l.Post(func() { got <- i })
	}
	for want := range 3 {
		select {
		case v := <-got:
			if v != want {
				t.Errorf("posted func %d ran in position %d", v, want)
			}
		case <-time.After(time.Second):
			t.Fatal("posted func did not run")
		}
	}

	fired := make(chan struct{})
	l.Go(func() {
		l.AfterFunc(5*time.Millisecond, func() { close(fired) })
	})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc did not fire on the loop")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestManualLoopTimers(t *testing.T) {
	l := NewManualLoop()
	var order []string
	l.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })
	l.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	stop := l.AfterFunc(15*time.Millisecond, func() { order = append(order, "stopped") })
	if !stop() {
		t.Error("stop() = false for a pending timer")
	}
	if stop() {
		t.Error("second stop() = true")
	}

	l.Advance(15 * time.Millisecond)
	if len(order) != 1 || order[0] != "a" {
		t.Fatalf("after 15ms order = %v, want [a]", order)
	}
	l.Advance(5 * time.Millisecond)
	if len(order) != 2 || order[1] != "b" {
		t.Errorf("after 20ms order = %v, want [a b]", order)
	}
	if l.Now() != 20*time.Millisecond {
		t.Errorf("Now() = %v, want 20ms", l.Now())
	}
}

func TestManualLoopJobs(t *testing.T) {
	l := NewManualLoop()
	var ran []int
	for i := range 3 {
		l.Go(func() { l.Post(func() { ran = append(ran, i) }) })
	}
	l.DropJob(1)
	l.RunJob(1)
	l.Settle()
	if len(ran) != 2 || ran[0] != 2 || ran[1] != 0 {
		t.Errorf("ran = %v, want [2 0]", ran)
	}
}
