package fabric

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
)

// Fabric is a pool of workers that cooperatively multiplexes tasks.
// It is created by New and must be released with Shutdown.
type Fabric struct {
	config  Config
	logger  *zap.Logger
	metrics fabricMetrics

	workers  []*worker
	injector *injector
	idle     *idler

	// ctx is the parent of every task context; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	// released is closed after all workers exit; it unwinds the carriers of
	// abandoned tasks and retires cached carriers.
	released chan struct{}

	// queueMu orders Submit and unpark against the abandonment count taken
	// by Shutdown, so no task is between parked and queued while it runs.
	queueMu sync.RWMutex

	stopping     atomic.Bool
	shutdownOnce sync.Once
	workerWg     sync.WaitGroup
	carrierWg    sync.WaitGroup

	nextID   atomic.Uint64
	parked   atomic.Int64
	carriers atomic.Int64
	stats    counters
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	failed    atomic.Int64
	steals    atomic.Int64
	parks     atomic.Int64
	abandoned atomic.Int64
}

// Stats is a point-in-time snapshot of fabric activity.
type Stats struct {
	Name      string
	Workers   int
	StackSize int
	Submitted int64
	Completed int64
	Panicked  int64
	Failed    int64
	Steals    int64
	Parks     int64
	Abandoned int64

	// Parked is the number of tasks currently BLOCKED.
	Parked int64

	// Queued is the number of READY tasks across deques and the injector.
	Queued int

	// Carriers is the number of live carrier goroutines, cached or busy.
	Carriers int64

	// Executed is the number of tasks each worker ran to completion.
	Executed []int64
}

// New creates a fabric and starts its workers.
func New(config Config) (*Fabric, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Fabric{
		config:   config,
		logger:   config.Logger.Named("fabric").With(zap.String("fabric", config.Name)),
		metrics:  newFabricMetrics(config.Metrics, config.Name),
		injector: newInjector(),
		idle:     newIdler(),
		ctx:      ctx,
		cancel:   cancel,
		released: make(chan struct{}),
	}

	f.workers = make([]*worker, config.WorkerCount)
	for i := range f.workers {
		f.workers[i] = newWorker(f, i)
	}
	f.metrics.workers(config.WorkerCount)

	f.workerWg.Add(len(f.workers))
	for _, w := range f.workers {
		go w.run()
	}

	f.logger.Info("fabric started",
		zap.Int("workers", config.WorkerCount),
		zap.Int("stack_size", config.StackSize),
	)
	return f, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(config Config) *Fabric {
	f, err := New(config)
	if err != nil {
		panic(err)
	}
	return f
}

// Submit queues a task on the injection queue.
func (f *Fabric) Submit(task Task) error {
	return f.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext queues a task. When ctx belongs to a task running on
// this fabric, the new task goes to the calling worker's own deque;
// otherwise it goes to the injection queue.
func (f *Fabric) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return gferrors.NewValidationError("fabric", "task", nil, "cannot be nil")
	}
	f.queueMu.RLock()
	defer f.queueMu.RUnlock()
	if f.stopping.Load() {
		return gferrors.NewOperationError("fabric", "Submit", gferrors.ErrShutdown).
			WithContext(f.config.Name)
	}

	t := f.newTask(task)
	f.stats.submitted.Add(1)
	f.metrics.submitted()
	f.enqueue(ctx, t)
	return nil
}

// Go submits fn as a fire-and-forget task.
func (f *Fabric) Go(ctx context.Context, fn func(ctx context.Context)) error {
	return f.SubmitWithContext(ctx, TaskFunc(func(ctx context.Context) error {
		fn(ctx)
		return nil
	}))
}

// enqueue places a READY task on the local deque of the worker running the
// task carried by ctx, or on the injector.
func (f *Fabric) enqueue(ctx context.Context, t *task) {
	if src := current(ctx); src != nil && src.fabric == f && src.worker != nil {
		src.worker.deque.pushBottom(t)
	} else {
		f.injector.push(t)
	}
	f.idle.notify()
}

// unpark makes a BLOCKED task READY and queues it near the unblocker.
func (f *Fabric) unpark(ctx context.Context, t *task) {
	f.queueMu.RLock()
	defer f.queueMu.RUnlock()
	t.transition(StateBlocked, StateReady)
	f.parked.Add(-1)
	f.enqueue(ctx, t)
}

// WorkerCount returns the number of workers in the fabric.
func (f *Fabric) WorkerCount() int {
	return len(f.workers)
}

// Name returns the configured fabric name.
func (f *Fabric) Name() string {
	return f.config.Name
}

// Queued returns the number of READY tasks waiting for a worker.
func (f *Fabric) Queued() int {
	n := f.injector.len()
	for _, w := range f.workers {
		n += w.deque.len()
	}
	return n
}

// Stats returns a snapshot of the fabric counters.
func (f *Fabric) Stats() Stats {
	s := Stats{
		Name:      f.config.Name,
		Workers:   len(f.workers),
		StackSize: f.config.StackSize,
		Submitted: f.stats.submitted.Load(),
		Completed: f.stats.completed.Load(),
		Panicked:  f.stats.panicked.Load(),
		Failed:    f.stats.failed.Load(),
		Steals:    f.stats.steals.Load(),
		Parks:     f.stats.parks.Load(),
		Abandoned: f.stats.abandoned.Load(),
		Parked:    f.parked.Load(),
		Queued:    f.Queued(),
		Carriers:  f.carriers.Load(),
		Executed:  make([]int64, len(f.workers)),
	}
	for i, w := range f.workers {
		s.Executed[i] = w.executed.Load()
	}
	return s
}

// Shutdown stops every worker once its current task parks or returns, then
// releases carriers. Tasks still queued or parked are abandoned: their
// bodies never resume. Shutdown is idempotent and blocks until all workers
// and carriers have exited. It must not be called from inside a task.
func (f *Fabric) Shutdown() {
	f.shutdownOnce.Do(func() {
		f.stopping.Store(true)
		f.cancel()
		f.idle.stop()
		f.workerWg.Wait()

		// Wakers fired by the cancel above may still be moving tasks from
		// parked to queued; the write lock waits them out.
		f.queueMu.Lock()
		abandoned := int64(f.Queued()) + f.parked.Load()
		f.queueMu.Unlock()
		f.stats.abandoned.Store(abandoned)
		f.metrics.abandoned(abandoned)

		close(f.released)
		f.carrierWg.Wait()

		f.logger.Info("fabric stopped",
			zap.Int64("completed", f.stats.completed.Load()),
			zap.Int64("abandoned", abandoned),
		)
	})
}
