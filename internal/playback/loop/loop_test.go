package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T, l *Loop) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(context.Background()) }()
	t.Cleanup(l.Stop)
	return errCh
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := New(8, nil)
	startLoop(t, l)

	var got []int
	for i := 0; i < 20; i++ {
		i := i
		if !l.Post(func() { got = append(got, i) }) {
			t.Fatalf("post %d rejected", i)
		}
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("do: %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran as %d", i, v)
		}
	}
	if len(got) != 20 {
		t.Fatalf("ran %d tasks, want 20", len(got))
	}
}

func TestLoopStopRejectsTasks(t *testing.T) {
	l := New(0, nil)
	errCh := startLoop(t, l)

	l.Stop()
	l.Stop()
	if err := <-errCh; err != nil {
		t.Fatalf("run error = %v, want nil", err)
	}
	if l.Post(func() {}) {
		t.Fatal("expected post after stop to fail")
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("do error = %v, want %v", err, ErrStopped)
	}
	select {
	case <-l.Done():
	default:
		t.Fatal("expected done to be closed")
	}
}

func TestLoopRunEndsWithContext(t *testing.T) {
	l := New(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run error = %v, want %v", err, context.Canceled)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}
	if l.Post(func() {}) {
		t.Fatal("expected post after cancel to fail")
	}
}

func TestLoopRecoversTaskPanics(t *testing.T) {
	var mu sync.Mutex
	var logs []string
	l := New(1, func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, fmt.Sprintf(format, args...))
	})
	startLoop(t, l)

	l.Post(func() { panic("boom") })
	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if !ran {
		t.Fatal("expected loop to keep running after panic")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(logs) != 1 {
		t.Fatalf("logs = %v, want one panic entry", logs)
	}
}

func TestLoopClockRunsCallbacksOnLoop(t *testing.T) {
	l := New(4, nil)
	startLoop(t, l)
	clk := l.Clock()

	fired := make(chan struct{})
	if err := l.Do(context.Background(), func() {
		clk.AfterFunc(time.Millisecond, func() { close(fired) })
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
	}
}

func TestLoopClockStopPreventsCallback(t *testing.T) {
	l := New(4, nil)
	startLoop(t, l)
	clk := l.Clock()

	called := false
	var stopped bool
	if err := l.Do(context.Background(), func() {
		tm := clk.AfterFunc(time.Millisecond, func() { called = true })
		stopped = tm.Stop()
		if tm.Stop() {
			t.Error("second stop reported true")
		}
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if !stopped {
		t.Fatal("expected first stop to report true")
	}
	if called {
		t.Fatal("stopped callback ran")
	}
}
