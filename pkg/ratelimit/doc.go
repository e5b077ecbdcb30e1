/*
Package ratelimit groups limiters that cooperate with the fabric scheduler.

  - bucket: token bucket rate limiter allowing bursts
  - concurrency: counting semaphore bounding simultaneous holders

Blocking calls on either limiter park the calling fabric task instead of
holding its worker, and block the goroutine when called outside a task.
Both accept a context: cancelling it abandons the wait and returns any
tokens or permits that were set aside.

	limiter := bucket.New(100, 10)
	sem := concurrency.New(4)

	f.Go(ctx, func(ctx context.Context) {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := sem.Wait(ctx); err != nil {
			return
		}
		defer sem.Release()
		// call the downstream service
	})
*/
package ratelimit
