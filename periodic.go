package goAttend

import (
	"context"
	"sync"
	"time"
)

type taskContextKey struct{}

// Task is a cancellable periodic callback. Once Stop returns, the callback
// is not running and will not run again.
type Task struct {
	name     string
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartPeriodic runs fn immediately and then every interval until ctx ends
// or Stop is called. Runs never overlap. An interval below one millisecond
// is raised to one millisecond.
func StartPeriodic(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) *Task {
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	ctx = context.WithValue(ctx, taskContextKey{}, t)

	go t.run(ctx, interval, fn)
	return t
}

func (t *Task) run(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer close(t.done)

	if ctx.Err() != nil {
		return
	}
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			fn(ctx)
		}
	}
}

// Name returns the label given to StartPeriodic.
func (t *Task) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Stop cancels the task and waits for an in-flight callback to return.
// Calling Stop from inside the callback deadlocks; callbacks stop their own
// task through the context they were given (see Session.Logout).
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.stopOnce.Do(t.cancel)
	<-t.done
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// stopFrom stops t, skipping the wait when ctx belongs to t's own callback.
func (t *Task) stopFrom(ctx context.Context) {
	if t == nil {
		return
	}
	if ctx != nil {
		if self, _ := ctx.Value(taskContextKey{}).(*Task); self == t {
			t.stopOnce.Do(t.cancel)
			return
		}
	}
	t.Stop()
}
