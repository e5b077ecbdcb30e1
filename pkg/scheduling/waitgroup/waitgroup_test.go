package waitgroup

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/gofabric/internal/testutil"
	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/fabric"
)

func newFabric(t *testing.T, workers int) *fabric.Fabric {
	t.Helper()
	f, err := fabric.New(fabric.Config{Name: t.Name(), WorkerCount: workers})
	testutil.AssertNoError(t, err)
	return f
}

func TestWaitZero(t *testing.T) {
	var wg WaitGroup
	wg.Wait(context.Background())
	testutil.AssertEqual(t, wg.WaitTimeout(context.Background(), time.Millisecond), true)
}

func TestAddDoneUnblocksWait(t *testing.T) {
	var wg WaitGroup
	wg.Add(5)
	testutil.AssertEqual(t, wg.Count(), 5)

	released := make(chan struct{})
	go func() {
		wg.Wait(context.Background())
		close(released)
	}()

	for i := 0; i < 4; i++ {
		wg.Done()
	}
	select {
	case <-released:
		t.Fatal("Wait returned with counter at 1")
	case <-time.After(20 * time.Millisecond):
	}

	wg.Done()
	testutil.WaitDone(t, released, "Wait not released")
	testutil.AssertEqual(t, wg.Count(), 0)
}

func TestSixthDoneIsMisuse(t *testing.T) {
	var wg WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		wg.Done()
	}

	r := testutil.CapturePanic(wg.Done)
	if !gferrors.IsMisuse(r) {
		t.Fatalf("expected misuse panic, got %v", r)
	}
	if !errors.Is(r.(error), ErrNegativeCounter) {
		t.Fatalf("expected negative counter cause, got %v", r)
	}
}

func TestReleasesAllWaiters(t *testing.T) {
	var wg WaitGroup
	wg.Add(1)

	var released atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		go func() {
			wg.Wait(context.Background())
			if released.Add(1) == 3 {
				close(done)
			}
		}()
	}

	testutil.Eventually(t, func() bool {
		wg.mu.Lock()
		defer wg.mu.Unlock()
		return wg.waiters != nil && wg.waiters.Length() == 3
	}, "waiters queued")
	wg.Done()
	testutil.WaitDone(t, done, "waiters not released")
}

func TestWaitInsideTaskParks(t *testing.T) {
	// One worker: the task calling Done can only run if the waiting task
	// gave up the worker.
	f := newFabric(t, 1)
	defer f.Shutdown()

	var wg WaitGroup
	wg.Add(1)
	finished := make(chan struct{})

	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		wg.Wait(ctx)
		close(finished)
	}))
	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		wg.Done()
	}))

	testutil.WaitDone(t, finished, "waiting task never resumed")
	if f.Stats().Parks < 1 {
		t.Error("waiting task should have parked")
	}
}

func TestDoneContextWakesLocally(t *testing.T) {
	tests := []struct {
		name  string
		done  func(ctx context.Context, wg *WaitGroup)
		order string
	}{
		// A waiter released from a task's context is queued on that worker
		// and runs before work already in the injection queue.
		{"task context", func(ctx context.Context, wg *WaitGroup) { wg.DoneContext(ctx) }, "waiter,injected"},
		{"no context", func(_ context.Context, wg *WaitGroup) { wg.Done() }, "injected,waiter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFabric(t, 1)
			defer f.Shutdown()

			var wg WaitGroup
			wg.Add(1)
			order := make(chan string, 2)

			testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
				wg.Wait(ctx)
				order <- "waiter"
			}))
			testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
				_ = f.Go(context.Background(), func(context.Context) {
					order <- "injected"
				})
				tt.done(ctx, &wg)
			}))

			var got []string
			for len(got) < 2 {
				select {
				case s := <-order:
					got = append(got, s)
				case <-time.After(5 * time.Second):
					t.Fatalf("tasks did not run, got %v", got)
				}
			}
			testutil.AssertEqual(t, strings.Join(got, ","), tt.order)
		})
	}
}

func TestWaitTimeout(t *testing.T) {
	var wg WaitGroup
	wg.Add(1)

	start := time.Now()
	testutil.AssertEqual(t, wg.WaitTimeout(context.Background(), 20*time.Millisecond), false)
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("WaitTimeout returned early")
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		wg.Done()
	}()
	testutil.AssertEqual(t, wg.WaitTimeout(context.Background(), testutil.TestTimeout), true)
}

func TestWaitTimeoutInsideTask(t *testing.T) {
	f := newFabric(t, 1)
	defer f.Shutdown()

	var wg WaitGroup
	wg.Add(1)
	defer wg.Done()

	result := make(chan bool, 1)
	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		result <- wg.WaitTimeout(ctx, 10*time.Millisecond)
	}))

	select {
	case ok := <-result:
		testutil.AssertEqual(t, ok, false)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("timed wait never returned")
	}
}

func TestGo(t *testing.T) {
	f := newFabric(t, 4)
	defer f.Shutdown()

	var wg WaitGroup
	var sum atomic.Int64
	for i := 1; i <= 100; i++ {
		i := i
		testutil.AssertNoError(t, wg.Go(context.Background(), f, func(context.Context) {
			sum.Add(int64(i))
		}))
	}
	testutil.AssertEqual(t, wg.WaitTimeout(context.Background(), testutil.TestTimeout), true)
	testutil.AssertEqual(t, sum.Load(), int64(5050))
}

func TestGoAfterShutdown(t *testing.T) {
	f := newFabric(t, 1)
	f.Shutdown()

	var wg WaitGroup
	err := wg.Go(context.Background(), f, func(context.Context) {})
	testutil.AssertErrorIs(t, err, gferrors.ErrShutdown)
	testutil.AssertEqual(t, wg.Count(), 0)
}

func TestNestedFanOut(t *testing.T) {
	f := newFabric(t, 2)
	defer f.Shutdown()

	var outer WaitGroup
	var leaves atomic.Int32
	for i := 0; i < 10; i++ {
		testutil.AssertNoError(t, outer.Go(context.Background(), f, func(ctx context.Context) {
			var inner WaitGroup
			for j := 0; j < 10; j++ {
				if err := inner.Go(ctx, f, func(context.Context) { leaves.Add(1) }); err != nil {
					panic(err)
				}
			}
			inner.Wait(ctx)
		}))
	}
	testutil.AssertEqual(t, outer.WaitTimeout(context.Background(), testutil.TestTimeout), true)
	testutil.AssertEqual(t, leaves.Load(), int32(100))
}
