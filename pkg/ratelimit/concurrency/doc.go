/*
Package concurrency provides a counting semaphore for fabric tasks.

A Limiter bounds how many operations hold a permit at once. Acquire and
AcquireN never block. Wait and WaitN suspend the caller until permits are
free: inside a fabric task the task parks and its worker runs other tasks,
outside a task the calling goroutine blocks.

	limiter, err := concurrency.NewSafe(4)
	if err != nil {
		log.Fatal(err)
	}

	f.Go(ctx, func(ctx context.Context) {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		defer limiter.Release()
		// at most four tasks run this section at a time
	})

Releasing more permits than are held panics with an errors.MisuseError.
Cancelling the context passed to Wait removes the caller from the wait list
and returns the context's error.
*/
package concurrency
