package fabric

import (
	"context"
)

type taskKey struct{}

// current returns the task carried by ctx, if any.
func current(ctx context.Context) *task {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(taskKey{}).(*task)
	return t
}

// InTask reports whether ctx belongs to a running task.
func InTask(ctx context.Context) bool {
	return current(ctx) != nil
}

// WorkerIndex returns the index of the worker running the task carried by
// ctx. It is only meaningful inside a task body; a parked task may resume on
// a different worker.
func WorkerIndex(ctx context.Context) (int, bool) {
	t := current(ctx)
	if t == nil || t.worker == nil {
		return -1, false
	}
	return t.worker.id, true
}

// TaskID returns the identity of the task carried by ctx.
func TaskID(ctx context.Context) (uint64, bool) {
	t := current(ctx)
	if t == nil {
		return 0, false
	}
	return t.id, true
}

// Detach returns a context that keeps ctx's values and deadline but no
// longer identifies the task. Pass it to goroutines started from a task body.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, taskKey{}, (*task)(nil))
}

// Yield moves the current task to the back of the injection queue and lets
// the worker run something else. Outside a task it is a no-op.
func Yield(ctx context.Context) {
	t := current(ctx)
	if t == nil {
		return
	}
	f := t.fabric
	t.park(func() {
		f.unpark(nil, t)
	})
}

// Waiter suspends either the calling task or, outside a task, the calling
// goroutine. Blocking primitives create one per blocked operation, store it
// in a wait-list under their own lock and call Park; the partner operation
// calls Wake exactly once.
type Waiter struct {
	t    *task
	wake chan struct{}
}

// NewWaiter creates a waiter for the caller identified by ctx.
func NewWaiter(ctx context.Context) *Waiter {
	if t := current(ctx); t != nil {
		return &Waiter{t: t}
	}
	return &Waiter{wake: make(chan struct{}, 1)}
}

// Parks reports whether Park suspends a task rather than a goroutine.
func (w *Waiter) Parks() bool {
	return w.t != nil
}

// Park suspends the caller. unlock must release the lock guarding the
// wait-list holding w; for a task it runs only after the task is fully
// suspended, so Wake can never race with the suspension.
func (w *Waiter) Park(unlock func()) {
	if w.t == nil {
		unlock()
		<-w.wake
		return
	}
	w.t.park(unlock)
}

// Wake makes the waiter runnable again. ctx identifies the waker: a task
// woken by another task of the same fabric is queued on that task's worker.
func (w *Waiter) Wake(ctx context.Context) {
	if w.t == nil {
		w.wake <- struct{}{}
		return
	}
	w.t.fabric.unpark(ctx, w.t)
}
