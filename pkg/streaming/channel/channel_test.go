package channel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/gofabric/internal/testutil"
	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/metrics"
)

func newFabric(t *testing.T, workers int) *fabric.Fabric {
	t.Helper()
	f, err := fabric.New(fabric.Config{Name: t.Name(), WorkerCount: workers})
	testutil.AssertNoError(t, err)
	return f
}

func TestNew(t *testing.T) {
	ch := New[int](10)
	testutil.AssertEqual(t, ch.Cap(), 10)
	testutil.AssertEqual(t, ch.Len(), 0)
	testutil.AssertEqual(t, ch.IsClosed(), false)
	testutil.AssertEqual(t, ch.Name(), "channel")
}

func TestNewNegativeCapacity(t *testing.T) {
	if testutil.CapturePanic(func() { New[int](-1) }) == nil {
		t.Fatal("expected panic for negative capacity")
	}
}

func TestBufferedFIFO(t *testing.T) {
	ch := New[int](5)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		ch.Send(ctx, i)
	}
	testutil.AssertEqual(t, ch.Len(), 5)

	for i := 1; i <= 5; i++ {
		v, ok := ch.Recv(ctx)
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, v, i)
	}
	testutil.AssertEqual(t, ch.Len(), 0)
}

func TestTrySendTryRecv(t *testing.T) {
	ch := New[string](2)

	v, ok := ch.TryRecv()
	testutil.AssertEqual(t, ok, false)
	testutil.AssertEqual(t, v, "")

	testutil.AssertEqual(t, ch.TrySend("a"), true)
	testutil.AssertEqual(t, ch.TrySend("b"), true)
	testutil.AssertEqual(t, ch.TrySend("c"), false)

	v, ok = ch.TryRecv()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, v, "a")
}

func TestRendezvous(t *testing.T) {
	ch := New[int](0)
	ctx := context.Background()

	// Nothing to pair with: a rendezvous channel buffers nothing.
	testutil.AssertEqual(t, ch.TrySend(1), false)

	var sent atomic.Bool
	go func() {
		ch.Send(ctx, 42)
		sent.Store(true)
	}()

	testutil.Eventually(t, func() bool { return ch.Stats().WaitingSenders == 1 }, "sender parked")
	testutil.AssertEqual(t, sent.Load(), false)

	v, ok := ch.Recv(ctx)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, v, 42)
	testutil.Eventually(t, sent.Load, "sender released")
}

func TestSendParksTaskWhenFull(t *testing.T) {
	f := newFabric(t, 1)
	defer f.Shutdown()

	ch := New[int](3)
	var got []int
	done := make(chan struct{})

	// One worker: the consumer can only run if the blocked producer parks.
	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		for i := 0; i < 4; i++ {
			ch.Send(ctx, i)
		}
		ch.Close()
	}))
	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		for v := range ch.All(ctx) {
			got = append(got, v)
		}
		close(done)
	}))

	testutil.WaitDone(t, done, "consumer did not finish")
	testutil.AssertEqual(t, len(got), 4)
	for i, v := range got {
		testutil.AssertEqual(t, v, i)
	}
	testutil.AssertEqual(t, ch.Stats().BlockedSends, int64(1))
}

func TestRecvParksTaskWhenEmpty(t *testing.T) {
	f := newFabric(t, 1)
	defer f.Shutdown()

	ch := New[int](0)
	result := make(chan int, 1)

	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		v, _ := ch.Recv(ctx)
		result <- v
	}))
	testutil.Eventually(t, func() bool { return ch.Stats().WaitingReceivers == 1 }, "receiver parked")

	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		ch.Send(ctx, 7)
	}))

	select {
	case v := <-result:
		testutil.AssertEqual(t, v, 7)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("receiver never resumed")
	}
}

func TestCloseDrainsBuffer(t *testing.T) {
	ch := New[int](5)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ch.Send(ctx, i)
	}
	testutil.AssertNoError(t, ch.Close())
	testutil.AssertEqual(t, ch.IsClosed(), true)

	for i := 0; i < 3; i++ {
		v, ok := ch.Recv(ctx)
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, v, i)
	}
	_, ok := ch.Recv(ctx)
	testutil.AssertEqual(t, ok, false)

	_, status := ch.RecvTimeout(ctx, time.Second)
	testutil.AssertEqual(t, status, Closed)
}

func TestCloseReleasesReceivers(t *testing.T) {
	f := newFabric(t, 2)
	defer f.Shutdown()

	ch := New[int](0)
	var wg sync.WaitGroup
	var closedSeen atomic.Int32
	wg.Add(3)
	for i := 0; i < 3; i++ {
		testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
			defer wg.Done()
			if _, ok := ch.Recv(ctx); !ok {
				closedSeen.Add(1)
			}
		}))
	}
	testutil.Eventually(t, func() bool { return ch.Stats().WaitingReceivers == 3 }, "receivers parked")

	testutil.AssertNoError(t, ch.Close())
	wg.Wait()
	testutil.AssertEqual(t, closedSeen.Load(), int32(3))
}

func TestCloseTwice(t *testing.T) {
	ch := New[int](1)
	testutil.AssertNoError(t, ch.Close())
	testutil.AssertErrorIs(t, ch.Close(), ErrChannelClosed)
}

func TestSendOnClosedPanics(t *testing.T) {
	ch := New[int](1)
	testutil.AssertNoError(t, ch.Close())
	testutil.AssertMisuse(t, func() { ch.Send(context.Background(), 1) })
	testutil.AssertMisuse(t, func() { ch.TrySend(1) })
}

func TestCloseFailsParkedSenders(t *testing.T) {
	ch := New[int](0)
	recovered := make(chan interface{}, 1)
	go func() {
		recovered <- testutil.CapturePanic(func() {
			ch.Send(context.Background(), 1)
		})
	}()
	testutil.Eventually(t, func() bool { return ch.Stats().WaitingSenders == 1 }, "sender parked")

	testutil.AssertNoError(t, ch.Close())
	r := <-recovered
	if r == nil {
		t.Fatal("parked sender should panic on close")
	}
}

func TestFree(t *testing.T) {
	ch := New[int](2)
	ch.Send(context.Background(), 1)
	ch.Free()

	testutil.AssertEqual(t, ch.IsClosed(), true)
	testutil.AssertMisuse(t, func() { ch.Recv(context.Background()) })
	testutil.AssertMisuse(t, func() { ch.Send(context.Background(), 1) })
	testutil.AssertMisuse(t, func() { _ = ch.Close() })
	testutil.AssertMisuse(t, ch.Free)
}

func TestRecvTimeout(t *testing.T) {
	ch := New[int](0)
	start := time.Now()
	_, status := ch.RecvTimeout(context.Background(), 20*time.Millisecond)
	testutil.AssertEqual(t, status, Timeout)
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("returned after %v", elapsed)
	}

	// The expired receiver must not be paired with a later sender.
	testutil.AssertEqual(t, ch.TrySend(1), false)
	testutil.AssertEqual(t, ch.Stats().TimedOut, int64(1))
}

func TestSendTimeout(t *testing.T) {
	ch := New[int](0)
	status := ch.SendTimeout(context.Background(), 5, 20*time.Millisecond)
	testutil.AssertEqual(t, status, Timeout)

	// A timed-out value is never delivered.
	_, ok := ch.TryRecv()
	testutil.AssertEqual(t, ok, false)

	go ch.Send(context.Background(), 6)
	testutil.Eventually(t, func() bool { return ch.Stats().WaitingSenders == 1 }, "sender parked")
	v, status2 := ch.RecvTimeout(context.Background(), time.Second)
	testutil.AssertEqual(t, status2, OK)
	testutil.AssertEqual(t, v, 6)
}

func TestTimeoutInsideTask(t *testing.T) {
	f := newFabric(t, 1)
	defer f.Shutdown()

	ch := New[int](0)
	statuses := make(chan Status, 1)
	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		_, st := ch.RecvTimeout(ctx, 10*time.Millisecond)
		statuses <- st
	}))

	select {
	case st := <-statuses:
		testutil.AssertEqual(t, st, Timeout)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("timed receive never returned")
	}
}

func TestProducerOrderPreserved(t *testing.T) {
	f := newFabric(t, 4)
	defer f.Shutdown()

	const producers = 4
	const perProducer = 500

	type msg struct{ producer, seq int }
	ch := New[msg](0)

	var remaining atomic.Int32
	remaining.Store(producers)
	for p := 0; p < producers; p++ {
		p := p
		testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
			for i := 0; i < perProducer; i++ {
				ch.Send(ctx, msg{p, i})
			}
			if remaining.Add(-1) == 0 {
				_ = ch.Close()
			}
		}))
	}

	next := make([]int, producers)
	total := 0
	for m := range ch.All(context.Background()) {
		if m.seq != next[m.producer] {
			t.Fatalf("producer %d: got seq %d, want %d", m.producer, m.seq, next[m.producer])
		}
		next[m.producer]++
		total++
	}
	testutil.AssertEqual(t, total, producers*perProducer)
}

func TestManyTasksPipeline(t *testing.T) {
	f := newFabric(t, 2)
	defer f.Shutdown()

	const n = 2000
	src := New[int](8)
	dst := New[int](8)

	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		for i := 1; i <= n; i++ {
			src.Send(ctx, i)
		}
		_ = src.Close()
	}))
	testutil.AssertNoError(t, f.Go(context.Background(), func(ctx context.Context) {
		for v := range src.All(ctx) {
			dst.Send(ctx, v*2)
		}
		_ = dst.Close()
	}))

	sum := 0
	for v := range dst.All(context.Background()) {
		sum += v
	}
	testutil.AssertEqual(t, sum, n*(n+1))
}

func TestAllStopsEarly(t *testing.T) {
	ch := New[int](4)
	for i := 0; i < 4; i++ {
		ch.Send(context.Background(), i)
	}
	count := 0
	for range ch.All(context.Background()) {
		count++
		if count == 2 {
			break
		}
	}
	testutil.AssertEqual(t, count, 2)
	testutil.AssertEqual(t, ch.Len(), 2)
}

func TestStats(t *testing.T) {
	ch := New[int](4)
	ctx := context.Background()
	ch.Send(ctx, 1)
	ch.Send(ctx, 2)
	ch.Recv(ctx)

	stats := ch.Stats()
	testutil.AssertEqual(t, stats.SendCount, int64(2))
	testutil.AssertEqual(t, stats.ReceiveCount, int64(1))
	testutil.AssertEqual(t, stats.BufferUtilization, 0.25)
}

func TestMetrics(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	ch := NewWithConfig[int](Config{Capacity: 2, Name: "jobs", Metrics: reg})
	ctx := context.Background()

	ch.Send(ctx, 1)
	ch.Send(ctx, 2)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.ChannelBufferUsage.WithLabelValues("jobs")), 2.0)
	ch.Recv(ctx)

	testutil.AssertEqual(t, promtest.ToFloat64(reg.ChannelSends.WithLabelValues("jobs")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.ChannelReceives.WithLabelValues("jobs")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.ChannelBufferUsage.WithLabelValues("jobs")), 1.0)
}

func TestStatusString(t *testing.T) {
	testutil.AssertEqual(t, OK.String(), "ok")
	testutil.AssertEqual(t, Closed.String(), "closed")
	testutil.AssertEqual(t, Timeout.String(), "timeout")
	testutil.AssertEqual(t, Status(7).String(), "Status(7)")
}
