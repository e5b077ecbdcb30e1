package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/vnykmshr/gofabric/pkg/fabric"
)

// Sleep suspends the caller for d or until ctx is done, returning ctx.Err()
// in the latter case. Inside a fabric task it parks the task rather than
// holding the worker.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}

	var (
		mu      sync.Mutex
		woken   bool
		expired bool
	)
	w := fabric.NewWaiter(ctx)
	wake := func(elapsed bool) {
		// mu is released only once the caller has parked.
		mu.Lock()
		if woken {
			mu.Unlock()
			return
		}
		woken = true
		expired = elapsed
		mu.Unlock()
		w.Wake(nil)
	}

	mu.Lock()
	t := time.AfterFunc(d, func() { wake(true) })
	stop := context.AfterFunc(ctx, func() { wake(false) })
	w.Park(mu.Unlock)
	t.Stop()
	stop()

	mu.Lock()
	defer mu.Unlock()
	if !expired {
		return ctx.Err()
	}
	return nil
}

// RetryTask wraps a task with exponential backoff. Errors wrapped with
// backoff.Permanent stop the retries immediately.
type RetryTask struct {
	Task         fabric.Task
	MaxRetries   uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Execute implements fabric.Task. Waits between attempts park the task.
func (rt RetryTask) Execute(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	if rt.InitialDelay > 0 {
		b.InitialInterval = rt.InitialDelay
	}
	if rt.MaxDelay > 0 {
		b.MaxInterval = rt.MaxDelay
	}
	b.Reset()

	for attempt := uint(0); ; attempt++ {
		err := rt.Task.Execute(ctx)
		if err == nil {
			return nil
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		if attempt >= rt.MaxRetries {
			return err
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return err
		}
		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}
}
