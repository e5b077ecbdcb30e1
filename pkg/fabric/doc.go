/*
Package fabric provides an M:N cooperative task runtime: a fixed pool of
workers multiplexing many lightweight tasks, with per-worker work-stealing
deques and a shared injection queue.

A Fabric is an explicit handle. Create it with New, submit work with Submit,
SubmitWithContext or Go, and release it with Shutdown:

	f, err := fabric.New(fabric.Config{WorkerCount: 4})
	if err != nil {
		return err
	}
	defer f.Shutdown()

	f.Go(context.Background(), func(ctx context.Context) {
		// runs as a task; ctx identifies it to channel and waitgroup
	})

Scheduling:

Each worker repeats:
  - pop the newest task from its own deque (LIFO)
  - otherwise pop the oldest task from the injection queue (FIFO)
  - otherwise steal the oldest task from a random peer's deque
  - otherwise sleep until any queue receives a task or the fabric stops

Tasks run until they return or reach a suspension point: Yield, a blocking
channel operation, or a waitgroup Wait. There is no preemption. A task
submitted from inside a running task lands on the submitting worker's deque;
a task submitted from anywhere else lands on the injection queue.

Suspension:

Every task runs on a carrier goroutine, pooled per worker and reused after
the task finishes. Blocking primitives suspend a task through a Waiter:

	w := fabric.NewWaiter(ctx)
	mu.Lock()
	waiters.push(w)
	w.Park(mu.Unlock) // task: worker runs mu.Unlock after the task stopped

	// elsewhere, under mu:
	w.Wake(ctx) // task becomes READY on the waker's worker

Outside a task, a Waiter blocks the calling goroutine instead, so the same
primitives work from plain code.

Shutdown:

Shutdown lets each worker finish the task it is running, then stops.
Tasks still queued or parked are abandoned; their carriers are unwound and
the count is reported in Stats().Abandoned.

Misuse:

Invalid state transitions (a task resumed twice, a carrier released twice)
panic with an errors.MisuseError. Task bodies that panic with a MisuseError
are not recovered; other panics are logged and passed to Config.PanicHandler.
*/
package fabric
