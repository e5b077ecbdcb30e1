package concurrency_test

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/gofabric/pkg/scheduling/waitgroup"
)

func Example() {
	f := fabric.MustNew(fabric.Config{WorkerCount: 4})
	defer f.Shutdown()

	limiter := concurrency.New(2)
	var active, peak atomic.Int32
	var wg waitgroup.WaitGroup

	for i := 0; i < 10; i++ {
		_ = wg.Go(context.Background(), f, func(ctx context.Context) {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			defer limiter.Release()

			n := active.Add(1)
			for p := peak.Load(); n > p && !peak.CompareAndSwap(p, n); p = peak.Load() {
			}
			fabric.Yield(ctx)
			active.Add(-1)
		})
	}
	wg.Wait(context.Background())

	fmt.Println("peak within limit:", peak.Load() <= 2)

	// Output:
	// peak within limit: true
}
