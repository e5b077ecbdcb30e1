package concurrency

import (
	"context"
	"fmt"
	"sync"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/metrics"
)

// Config holds configuration options for creating a Limiter.
type Config struct {
	// Capacity is the maximum number of permits held at once.
	Capacity int

	// InitialAvailable is the initial number of free permits.
	// If negative or greater than Capacity, defaults to Capacity.
	InitialAvailable int

	// Name labels metrics. Defaults to "limiter".
	Name string

	// Metrics receives permit gauges. Nil disables metrics.
	Metrics *metrics.Registry
}

// Limiter is a counting semaphore whose blocking operations park fabric
// tasks.
type Limiter struct {
	mu        sync.Mutex
	capacity  int
	available int
	inUse     int
	waiters   []*waiter

	metrics limiterMetrics
}

// waiter is one parked WaitN call. done is guarded by the limiter mutex;
// whoever sets it owns the single Wake.
type waiter struct {
	*fabric.Waiter
	n        int
	done     bool
	canceled bool
}

// New creates a limiter with the given capacity. It panics on a
// non-positive capacity; use NewSafe to get an error instead.
func New(capacity int) *Limiter {
	l, err := NewSafe(capacity)
	if err != nil {
		panic(err)
	}
	return l
}

// NewSafe creates a limiter with the given capacity.
func NewSafe(capacity int) (*Limiter, error) {
	return NewWithConfigSafe(Config{Capacity: capacity, InitialAvailable: -1})
}

// NewWithConfigSafe creates a limiter from config.
func NewWithConfigSafe(config Config) (*Limiter, error) {
	if config.Capacity <= 0 {
		return nil, gferrors.NewValidationError("concurrency", "Capacity", config.Capacity, "capacity must be positive").
			WithHint("capacity determines how many permits can be held at once")
	}

	initial := config.InitialAvailable
	if initial < 0 || initial > config.Capacity {
		initial = config.Capacity
	}
	if config.Name == "" {
		config.Name = "limiter"
	}

	l := &Limiter{
		capacity:  config.Capacity,
		available: initial,
		inUse:     config.Capacity - initial,
		metrics:   newLimiterMetrics(config.Metrics, config.Name),
	}
	l.metrics.active(l.inUse)
	return l, nil
}

// Acquire takes one permit if one is free.
func (l *Limiter) Acquire() bool {
	return l.AcquireN(1)
}

// AcquireN takes n permits if all are free. It never blocks.
func (l *Limiter) AcquireN(n int) bool {
	if n <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Parked callers are served first.
	if len(l.waiters) > 0 || l.available < n {
		return false
	}
	l.takeLocked(n)
	return true
}

// Wait suspends the caller until one permit is free.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN suspends the caller until n permits are free. Inside a fabric task
// the task parks. It returns ctx.Err() if ctx is done first, in which case
// no permits are held.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if n > l.capacity {
		capacity := l.capacity
		l.mu.Unlock()
		return gferrors.NewValidationError("concurrency", "n", n,
			fmt.Sprintf("exceeds capacity %d", capacity))
	}
	if len(l.waiters) == 0 && l.available >= n {
		l.takeLocked(n)
		l.mu.Unlock()
		return nil
	}

	w := &waiter{Waiter: fabric.NewWaiter(ctx), n: n}
	l.waiters = append(l.waiters, w)
	l.metrics.waiting(len(l.waiters))

	stop := context.AfterFunc(ctx, func() { l.cancel(w) })
	w.Park(l.mu.Unlock)
	stop()

	if w.canceled {
		return ctx.Err()
	}
	return nil
}

// Release returns one permit.
func (l *Limiter) Release() {
	l.ReleaseN(1)
}

// ReleaseN returns n permits and grants them to parked callers that fit.
// Releasing more than is held panics with an errors.MisuseError.
func (l *Limiter) ReleaseN(n int) {
	if n <= 0 {
		return
	}

	l.mu.Lock()
	if l.inUse < n {
		inUse := l.inUse
		l.mu.Unlock()
		gferrors.Misuse("concurrency", "Release", fmt.Errorf("releasing %d permits with %d held", n, inUse))
	}
	l.inUse -= n
	l.available += n
	l.metrics.active(l.inUse)
	woken := l.grantLocked()
	l.mu.Unlock()

	wakeAll(woken)
}

// SetCapacity changes the number of permits. A shrink below current usage
// takes effect as permits are released.
func (l *Limiter) SetCapacity(capacity int) {
	if capacity <= 0 {
		gferrors.Misuse("concurrency", "SetCapacity",
			gferrors.NewValidationError("concurrency", "Capacity", capacity, "capacity must be positive"))
	}

	l.mu.Lock()
	delta := capacity - l.capacity
	l.capacity = capacity
	l.available += delta
	var woken []*waiter
	if delta > 0 {
		woken = l.grantLocked()
	}
	l.mu.Unlock()

	wakeAll(woken)
}

// Capacity returns the maximum number of permits.
func (l *Limiter) Capacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity
}

// Available returns the number of free permits. It is negative while a
// capacity shrink is still being absorbed.
func (l *Limiter) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// InUse returns the number of permits held.
func (l *Limiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}

// Waiting returns the number of parked callers.
func (l *Limiter) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

func (l *Limiter) takeLocked(n int) {
	l.available -= n
	l.inUse += n
	l.metrics.active(l.inUse)
}

// grantLocked hands free permits to parked callers in arrival order,
// skipping requests that do not fit yet.
func (l *Limiter) grantLocked() []*waiter {
	if len(l.waiters) == 0 {
		return nil
	}
	var woken []*waiter
	remaining := l.waiters[:0]
	for _, w := range l.waiters {
		if l.available >= w.n {
			l.takeLocked(w.n)
			w.done = true
			woken = append(woken, w)
			continue
		}
		remaining = append(remaining, w)
	}
	for i := len(remaining); i < len(l.waiters); i++ {
		l.waiters[i] = nil
	}
	l.waiters = remaining
	l.metrics.waiting(len(l.waiters))
	return woken
}

func (l *Limiter) cancel(w *waiter) {
	l.mu.Lock()
	if w.done {
		l.mu.Unlock()
		return
	}
	w.done = true
	w.canceled = true
	for i, other := range l.waiters {
		if other == w {
			copy(l.waiters[i:], l.waiters[i+1:])
			l.waiters[len(l.waiters)-1] = nil
			l.waiters = l.waiters[:len(l.waiters)-1]
			break
		}
	}
	l.metrics.waiting(len(l.waiters))
	// A large request leaving may let smaller ones behind it through.
	woken := l.grantLocked()
	l.mu.Unlock()

	w.Wake(nil)
	wakeAll(woken)
}

// wakeAll wakes granted waiters through the injector; permits are released
// from arbitrary goroutines.
func wakeAll(woken []*waiter) {
	for _, w := range woken {
		w.Wake(nil)
	}
}
