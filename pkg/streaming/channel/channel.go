package channel

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/metrics"
)

// Status is the outcome of a channel operation.
type Status int

const (
	// OK means the value was delivered or received.
	OK Status = iota

	// Closed means the channel is closed and, for receives, drained.
	Closed

	// Timeout means the operation gave up: the deadline passed, or a
	// non-blocking operation found no partner.
	Timeout
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Closed:
		return "closed"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ErrChannelClosed is the cause carried by the misuse panic of a send on a
// closed channel, and is returned by a second Close.
var ErrChannelClosed = fmt.Errorf("channel: %w", gferrors.ErrClosed)

// ErrChannelFreed is the cause carried by the misuse panic of any operation
// on a freed channel.
var ErrChannelFreed = fmt.Errorf("channel: %w", gferrors.ErrFreed)

// Stats holds statistics about channel activity.
type Stats struct {
	// SendCount is the total number of completed sends.
	SendCount int64

	// ReceiveCount is the total number of successful receives.
	ReceiveCount int64

	// BlockedSends is the number of sends that had to wait.
	BlockedSends int64

	// BlockedReceives is the number of receives that had to wait.
	BlockedReceives int64

	// TimedOut is the number of timed operations that expired.
	TimedOut int64

	// BufferUtilization is the current buffer utilization (0.0 to 1.0).
	BufferUtilization float64

	// WaitingSenders and WaitingReceivers count parked operations.
	WaitingSenders   int
	WaitingReceivers int
}

// Config holds configuration for a Channel.
type Config struct {
	// Capacity is the buffer size. Zero makes a rendezvous channel.
	Capacity int

	// Name labels metrics.
	Name string

	// Metrics receives Prometheus updates. Nil disables metrics.
	Metrics *metrics.Registry
}

// Channel is a bounded FIFO whose blocking operations park the calling task
// instead of blocking a worker. Waiting senders and receivers are each
// served in arrival order.
type Channel[T any] struct {
	config Config
	mu     sync.Mutex

	// Ring buffer state
	buffer []T
	head   int
	tail   int
	count  int

	senders   *queue.Queue // *waiter[T]
	receivers *queue.Queue // *waiter[T]
	closed    bool
	freed     bool

	sendCount       atomic.Int64
	receiveCount    atomic.Int64
	blockedSends    atomic.Int64
	blockedReceives atomic.Int64
	timedOut        atomic.Int64

	metrics channelMetrics
}

// waiter is one parked operation. done and status are guarded by the
// channel mutex; whoever sets done owns the single Wake.
type waiter[T any] struct {
	*fabric.Waiter
	value   T
	status  Status
	done    bool
	sending bool
}

// New creates a channel with the given capacity.
func New[T any](capacity int) *Channel[T] {
	return NewWithConfig[T](Config{Capacity: capacity})
}

// NewWithConfig creates a channel from config.
// It panics if the capacity is negative.
func NewWithConfig[T any](config Config) *Channel[T] {
	if config.Capacity < 0 {
		panic("channel capacity must be >= 0")
	}
	if config.Name == "" {
		config.Name = "channel"
	}

	return &Channel[T]{
		config:    config,
		buffer:    make([]T, config.Capacity),
		senders:   queue.New(),
		receivers: queue.New(),
		metrics:   newChannelMetrics(config.Metrics, config.Name),
	}
}

// Send delivers value, blocking while the buffer is full or, for a
// rendezvous channel, until a receiver takes it. Sending on a closed or
// freed channel panics with an errors.MisuseError.
func (ch *Channel[T]) Send(ctx context.Context, value T) {
	ch.send(ctx, value, true, 0)
}

// SendTimeout is like Send but gives up after d, returning Timeout. A
// timed-out value is never delivered.
func (ch *Channel[T]) SendTimeout(ctx context.Context, value T, d time.Duration) Status {
	return ch.send(ctx, value, true, d)
}

// TrySend delivers value only if that needs no waiting.
func (ch *Channel[T]) TrySend(value T) bool {
	return ch.send(nil, value, false, 0) == OK
}

// Recv receives the next value. ok is false once the channel is closed and
// drained.
func (ch *Channel[T]) Recv(ctx context.Context) (value T, ok bool) {
	value, status := ch.recv(ctx, true, 0)
	return value, status == OK
}

// RecvTimeout is like Recv but gives up after d, returning Timeout.
func (ch *Channel[T]) RecvTimeout(ctx context.Context, d time.Duration) (T, Status) {
	return ch.recv(ctx, true, d)
}

// TryRecv receives a value only if one is available right now.
func (ch *Channel[T]) TryRecv() (value T, ok bool) {
	value, status := ch.recv(nil, false, 0)
	return value, status == OK
}

// All yields received values until the channel is closed and drained.
func (ch *Channel[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := ch.Recv(ctx)
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Close disallows further sends. Buffered values stay receivable; parked
// receivers are released with Closed and parked senders panic. Closing an
// already closed channel returns ErrChannelClosed.
func (ch *Channel[T]) Close() error {
	ch.mu.Lock()
	if ch.freed {
		ch.mu.Unlock()
		gferrors.Misuse("channel", "Close", ErrChannelFreed)
	}
	if ch.closed {
		ch.mu.Unlock()
		return ErrChannelClosed
	}
	ch.closed = true
	woken := ch.releaseAllLocked()
	ch.mu.Unlock()

	for _, w := range woken {
		w.Wake(nil)
	}
	return nil
}

// Free closes the channel if needed and destroys it. Any later operation
// panics with an errors.MisuseError.
func (ch *Channel[T]) Free() {
	ch.mu.Lock()
	if ch.freed {
		ch.mu.Unlock()
		gferrors.Misuse("channel", "Free", ErrChannelFreed)
	}
	ch.closed = true
	ch.freed = true
	woken := ch.releaseAllLocked()
	ch.buffer = nil
	ch.count = 0
	ch.mu.Unlock()

	for _, w := range woken {
		w.Wake(nil)
	}
}

// IsClosed returns true if the channel is closed.
func (ch *Channel[T]) IsClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

// Len returns the current number of buffered elements.
func (ch *Channel[T]) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.count
}

// Cap returns the buffer capacity.
func (ch *Channel[T]) Cap() int {
	return ch.config.Capacity
}

// Name returns the channel's metrics label.
func (ch *Channel[T]) Name() string {
	return ch.config.Name
}

// Stats returns channel statistics.
func (ch *Channel[T]) Stats() Stats {
	stats := Stats{
		SendCount:       ch.sendCount.Load(),
		ReceiveCount:    ch.receiveCount.Load(),
		BlockedSends:    ch.blockedSends.Load(),
		BlockedReceives: ch.blockedReceives.Load(),
		TimedOut:        ch.timedOut.Load(),
	}

	ch.mu.Lock()
	if ch.config.Capacity > 0 {
		stats.BufferUtilization = float64(ch.count) / float64(ch.config.Capacity)
	}
	stats.WaitingSenders = countLive[T](ch.senders)
	stats.WaitingReceivers = countLive[T](ch.receivers)
	ch.mu.Unlock()

	return stats
}

func (ch *Channel[T]) send(ctx context.Context, value T, block bool, timeout time.Duration) Status {
	ch.mu.Lock()
	if ch.freed {
		ch.mu.Unlock()
		gferrors.Misuse("channel", "Send", ErrChannelFreed)
	}
	if ch.closed {
		ch.mu.Unlock()
		gferrors.Misuse("channel", "Send", ErrChannelClosed)
	}

	// A parked receiver implies an empty buffer: hand the value over.
	if r := popLive[T](ch.receivers); r != nil {
		r.value = value
		r.status = OK
		r.done = true
		ch.mu.Unlock()
		ch.sent()
		ch.received()
		r.Wake(ctx)
		return OK
	}

	if ch.count < ch.config.Capacity {
		ch.addToBufferLocked(value)
		usage := ch.count
		ch.mu.Unlock()
		ch.sent()
		ch.metrics.usage(usage)
		return OK
	}

	if !block {
		ch.mu.Unlock()
		return Timeout
	}

	w := &waiter[T]{Waiter: fabric.NewWaiter(ctx), value: value, sending: true}
	ch.senders.Add(w)
	ch.blockedSends.Add(1)
	ch.metrics.blocked("send")
	ch.park(w, timeout)

	switch w.status {
	case Closed:
		if ch.isFreed() {
			gferrors.Misuse("channel", "Send", ErrChannelFreed)
		}
		gferrors.Misuse("channel", "Send", ErrChannelClosed)
	case OK:
		ch.sent()
	}
	return w.status
}

func (ch *Channel[T]) recv(ctx context.Context, block bool, timeout time.Duration) (T, Status) {
	var zero T

	ch.mu.Lock()
	if ch.freed {
		ch.mu.Unlock()
		gferrors.Misuse("channel", "Recv", ErrChannelFreed)
	}

	if ch.count > 0 {
		value := ch.removeFromBufferLocked()
		// Refill from the oldest parked sender to keep FIFO order.
		s := popLive[T](ch.senders)
		if s != nil {
			ch.addToBufferLocked(s.value)
			s.status = OK
			s.done = true
		}
		usage := ch.count
		ch.mu.Unlock()
		ch.received()
		ch.metrics.usage(usage)
		if s != nil {
			s.Wake(ctx)
		}
		return value, OK
	}

	// Rendezvous, or a buffered channel whose sender parked on a full
	// buffer that was drained in the meantime.
	if s := popLive[T](ch.senders); s != nil {
		value := s.value
		s.value = zero
		s.status = OK
		s.done = true
		ch.mu.Unlock()
		ch.received()
		s.Wake(ctx)
		return value, OK
	}

	if ch.closed {
		ch.mu.Unlock()
		return zero, Closed
	}

	if !block {
		ch.mu.Unlock()
		return zero, Timeout
	}

	w := &waiter[T]{Waiter: fabric.NewWaiter(ctx)}
	ch.receivers.Add(w)
	ch.blockedReceives.Add(1)
	ch.metrics.blocked("recv")
	ch.park(w, timeout)

	if w.status != OK {
		return zero, w.status
	}
	return w.value, OK
}

// park suspends w, which the caller has queued while holding ch.mu. With a
// timeout, a timer races the partner operation; whichever marks w done
// first wakes it.
func (ch *Channel[T]) park(w *waiter[T], timeout time.Duration) {
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() { ch.expire(w) })
	}
	w.Park(ch.mu.Unlock)
	if timer != nil {
		timer.Stop()
	}
}

func (ch *Channel[T]) expire(w *waiter[T]) {
	ch.mu.Lock()
	if w.done {
		ch.mu.Unlock()
		return
	}
	w.done = true
	w.status = Timeout
	if w.sending {
		trimDone[T](ch.senders)
	} else {
		trimDone[T](ch.receivers)
	}
	ch.mu.Unlock()

	ch.timedOut.Add(1)
	w.Wake(nil)
}

// releaseAllLocked marks every live waiter Closed and returns them for
// waking once the lock is dropped.
func (ch *Channel[T]) releaseAllLocked() []*waiter[T] {
	var woken []*waiter[T]
	for _, q := range []*queue.Queue{ch.receivers, ch.senders} {
		for q.Length() > 0 {
			w := q.Remove().(*waiter[T])
			if w.done {
				continue
			}
			w.done = true
			w.status = Closed
			woken = append(woken, w)
		}
	}
	return woken
}

func (ch *Channel[T]) isFreed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.freed
}

func (ch *Channel[T]) sent() {
	ch.sendCount.Add(1)
	ch.metrics.sent()
}

func (ch *Channel[T]) received() {
	ch.receiveCount.Add(1)
	ch.metrics.received()
}

// addToBufferLocked adds a value to the buffer (must hold lock).
func (ch *Channel[T]) addToBufferLocked(value T) {
	ch.buffer[ch.tail] = value
	ch.tail = (ch.tail + 1) % len(ch.buffer)
	ch.count++
}

// removeFromBufferLocked removes a value from the buffer (must hold lock).
func (ch *Channel[T]) removeFromBufferLocked() T {
	value := ch.buffer[ch.head]
	var zero T
	ch.buffer[ch.head] = zero // Clear reference
	ch.head = (ch.head + 1) % len(ch.buffer)
	ch.count--
	return value
}

// popLive removes and returns the oldest waiter that has not timed out.
func popLive[T any](q *queue.Queue) *waiter[T] {
	for q.Length() > 0 {
		w := q.Remove().(*waiter[T])
		if !w.done {
			return w
		}
	}
	return nil
}

// trimDone drops expired waiters from the head of q.
func trimDone[T any](q *queue.Queue) {
	for q.Length() > 0 && q.Peek().(*waiter[T]).done {
		q.Remove()
	}
}

func countLive[T any](q *queue.Queue) int {
	n := 0
	for i := 0; i < q.Length(); i++ {
		if !q.Get(i).(*waiter[T]).done {
			n++
		}
	}
	return n
}
