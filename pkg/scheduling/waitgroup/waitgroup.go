// Package waitgroup provides a counting completion barrier that parks fabric
// tasks instead of blocking workers.
package waitgroup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/fabric"
)

// ErrNegativeCounter is the cause carried by the misuse panic raised when
// the counter drops below zero.
var ErrNegativeCounter = errors.New("waitgroup: negative counter")

// WaitGroup waits for a collection of operations to finish. The zero value
// is ready to use. A WaitGroup must not be copied after first use.
//
// Unlike sync.WaitGroup, Wait called from inside a fabric task parks the
// task, so the worker keeps running other tasks while it waits.
type WaitGroup struct {
	count atomic.Int64

	mu      sync.Mutex
	waiters *queue.Queue // *waiter
}

type waiter struct {
	*fabric.Waiter
	done     bool
	timedOut bool
}

// Add adds delta, which may be negative, to the counter. When the counter
// reaches zero every current waiter is released. A counter below zero
// panics with an errors.MisuseError.
func (wg *WaitGroup) Add(delta int) {
	wg.add(nil, delta)
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() {
	wg.add(nil, -1)
}

// DoneContext is like Done, but when ctx belongs to a fabric task the
// released waiters are queued on that task's worker.
func (wg *WaitGroup) DoneContext(ctx context.Context) {
	wg.add(ctx, -1)
}

func (wg *WaitGroup) add(ctx context.Context, delta int) {
	v := wg.count.Add(int64(delta))
	if v < 0 {
		gferrors.Misuse("waitgroup", "Add", fmt.Errorf("%w: %d", ErrNegativeCounter, v))
	}
	if v == 0 && delta != 0 {
		wg.release(ctx)
	}
}

// Count returns the current counter value.
func (wg *WaitGroup) Count() int {
	return int(wg.count.Load())
}

// Wait blocks until the counter is zero. ctx identifies the caller: pass
// the task's context when waiting from inside a task.
func (wg *WaitGroup) Wait(ctx context.Context) {
	wg.wait(ctx, 0)
}

// WaitTimeout is like Wait but gives up after d. It reports whether the
// counter reached zero.
func (wg *WaitGroup) WaitTimeout(ctx context.Context, d time.Duration) bool {
	return wg.wait(ctx, d)
}

func (wg *WaitGroup) wait(ctx context.Context, timeout time.Duration) bool {
	if wg.count.Load() == 0 {
		return true
	}

	wg.mu.Lock()
	// Add takes mu before releasing, so this check cannot miss a release.
	if wg.count.Load() == 0 {
		wg.mu.Unlock()
		return true
	}
	if wg.waiters == nil {
		wg.waiters = queue.New()
	}
	w := &waiter{Waiter: fabric.NewWaiter(ctx)}
	wg.waiters.Add(w)

	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() { wg.expire(w) })
	}
	w.Park(wg.mu.Unlock)
	if timer != nil {
		timer.Stop()
	}
	return !w.timedOut
}

// release wakes every waiter queued so far, near the task identified by
// ctx or through the injection queue when ctx is nil.
func (wg *WaitGroup) release(ctx context.Context) {
	wg.mu.Lock()
	var woken []*waiter
	for wg.waiters != nil && wg.waiters.Length() > 0 {
		w := wg.waiters.Remove().(*waiter)
		if w.done {
			continue
		}
		w.done = true
		woken = append(woken, w)
	}
	wg.mu.Unlock()

	for _, w := range woken {
		w.Wake(ctx)
	}
}

func (wg *WaitGroup) expire(w *waiter) {
	wg.mu.Lock()
	if w.done {
		wg.mu.Unlock()
		return
	}
	w.done = true
	w.timedOut = true
	for wg.waiters.Length() > 0 && wg.waiters.Peek().(*waiter).done {
		wg.waiters.Remove()
	}
	wg.mu.Unlock()

	w.Wake(nil)
}

// Go runs fn as a fabric task tracked by wg.
func (wg *WaitGroup) Go(ctx context.Context, f *fabric.Fabric, fn func(ctx context.Context)) error {
	wg.Add(1)
	err := f.Go(ctx, func(ctx context.Context) {
		defer wg.DoneContext(ctx)
		fn(ctx)
	})
	if err != nil {
		wg.Done()
	}
	return err
}
