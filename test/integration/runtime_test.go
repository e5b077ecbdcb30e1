package integration

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/gofabric/internal/testutil"
	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/scheduling/compute"
	"github.com/vnykmshr/gofabric/pkg/scheduling/timer"
	"github.com/vnykmshr/gofabric/pkg/scheduling/waitgroup"
	"github.com/vnykmshr/gofabric/pkg/streaming/channel"
)

// TestFanOutFanIn runs a producer, a pool of stage tasks and a collector,
// all as tasks on a small fabric, and checks nothing is lost or duplicated.
func TestFanOutFanIn(t *testing.T) {
	f := fabric.MustNew(fabric.Config{Name: "fan", WorkerCount: 3})
	defer f.Shutdown()

	const items = 5000
	const stages = 8

	in := channel.New[int](4)
	out := channel.New[int](0)
	seen := make([]atomic.Int32, items)
	finished := make(chan struct{})

	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		for i := 0; i < items; i++ {
			in.Send(ctx, i)
		}
		_ = in.Close()
	}))

	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		var wg waitgroup.WaitGroup
		for s := 0; s < stages; s++ {
			if err := wg.Go(ctx, f, func(ctx context.Context) {
				for v := range in.All(ctx) {
					out.Send(ctx, v)
				}
			}); err != nil {
				panic(err)
			}
		}
		wg.Wait(ctx)
		_ = out.Close()
	}))

	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		for v := range out.All(ctx) {
			seen[v].Add(1)
		}
		close(finished)
	}))

	testutil.WaitDone(t, finished, "pipeline did not drain")
	for i := range seen {
		if got := seen[i].Load(); got != 1 {
			t.Fatalf("item %d seen %d times", i, got)
		}
	}
}

// TestNestedDispatch dispatches from inside tiles of an outer dispatch.
func TestNestedDispatch(t *testing.T) {
	f := fabric.MustNew(fabric.Config{Name: "nested", WorkerCount: 2})
	defer f.Shutdown()

	var cells atomic.Int64
	err := compute.Dispatch(context.Background(), f, [3]int{4, 4, 1}, [3]int{2, 2, 1},
		func(ctx context.Context, _, size [3]int) {
			err := compute.Dispatch(ctx, f, [3]int{size[0] * 10, size[1] * 10, 1}, [3]int{5, 5, 1},
				func(_ context.Context, _, inner [3]int) {
					cells.Add(int64(inner[0] * inner[1]))
				})
			if err != nil {
				panic(err)
			}
		})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cells.Load(), int64(1600))
}

// TestTimerFeedsChannel has scheduled jobs produce into a channel read by a task.
func TestTimerFeedsChannel(t *testing.T) {
	f := fabric.MustNew(fabric.Config{Name: "timed", WorkerCount: 2})
	defer f.Shutdown()

	ticks := channel.New[int](16)
	sched, err := timer.New(timer.Config{Fabric: f, TickInterval: 2 * time.Millisecond})
	testutil.AssertNoError(t, err)

	var n atomic.Int32
	_, err = sched.ScheduleRepeating("producer", fabric.TaskFunc(func(ctx context.Context) error {
		ticks.TrySend(int(n.Add(1)))
		return nil
	}), time.Millisecond)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, sched.Start())
	defer sched.Stop()

	got := make(chan int, 1)
	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		count := 0
		for count < 5 {
			if _, st := ticks.RecvTimeout(ctx, time.Second); st == channel.OK {
				count++
			}
		}
		got <- count
	}))

	select {
	case c := <-got:
		testutil.AssertEqual(t, c, 5)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("timer jobs never reached the consumer")
	}
}

// TestShutdownWithBlockedTasks leaves tasks parked on a channel and a
// waitgroup; Shutdown must unwind them without leaking goroutines.
func TestShutdownWithBlockedTasks(t *testing.T) {
	f := fabric.MustNew(fabric.Config{Name: "stuck", WorkerCount: 2})

	ch := channel.New[int](0)
	var wg waitgroup.WaitGroup
	wg.Add(1)

	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		ch.Recv(ctx)
	}))
	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		wg.Wait(ctx)
	}))
	testutil.Eventually(t, func() bool { return f.Stats().Parked == 2 }, "both tasks parked")

	f.Shutdown()
	testutil.AssertEqual(t, f.Stats().Abandoned, int64(2))
}
