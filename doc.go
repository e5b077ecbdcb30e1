/*
Package gofabric provides an M:N cooperative task runtime for Go: many
lightweight tasks multiplexed over a fixed set of worker goroutines with
work-stealing, plus blocking primitives that suspend a task without
holding its worker.

Runtime (pkg/fabric):
  - fabric: workers, per-worker deques, stealing, task contexts, Yield

Scheduling (pkg/scheduling):
  - waitgroup: completion barrier
  - compute: tiled 3-D dispatch
  - timer: delayed, interval and cron submission; Sleep; retry with backoff

Streaming (pkg/streaming):
  - channel: bounded FIFO channel with timed operations

Rate Limiting (pkg/ratelimit):
  - bucket: token bucket whose waits park tasks
  - concurrency: counting semaphore for tasks

Example usage:

	import (
		"github.com/vnykmshr/gofabric/pkg/fabric"
		"github.com/vnykmshr/gofabric/pkg/scheduling/waitgroup"
	)

	f := fabric.MustNew(fabric.Config{WorkerCount: 4})
	defer f.Shutdown()

	var wg waitgroup.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Go(ctx, f, func(ctx context.Context) { work(i) })
	}
	wg.Wait(ctx)

The fabricctl command under cmd/ runs compute, pipeline and metrics-serving
workloads configured through flags, environment or a config file.
*/
package gofabric
