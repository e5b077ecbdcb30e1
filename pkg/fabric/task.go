package fabric

import (
	"context"
	"sync/atomic"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
)

// Task represents a unit of work that can be executed by the fabric.
type Task interface {
	// Execute runs the task. ctx identifies the running task to the
	// blocking primitives (channel, waitgroup) so they can park it instead
	// of blocking a worker. It must not be shared with other goroutines;
	// use Detach for that.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// State is the scheduling state of a task.
type State int32

const (
	// StateReady means the task sits in a deque or the injection queue.
	StateReady State = iota
	// StateRunning means a worker has resumed the task.
	StateRunning
	// StateBlocked means the task is parked on a channel, waitgroup or yield.
	StateBlocked
	// StateDone means the task body returned.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// task is the schedulable record behind a submitted Task. It is owned by
// exactly one of: a deque, the injector, a wait-list, or a worker.
type task struct {
	id     uint64
	body   Task
	fabric *Fabric
	ctx    context.Context
	state  atomic.Int32

	// worker and carrier are written by the resuming worker before the
	// hand-off over carrier.resume, which orders them for the task body.
	worker  *worker
	carrier *carrier
}

func (f *Fabric) newTask(body Task) *task {
	t := &task{
		id:     f.nextID.Add(1),
		body:   body,
		fabric: f,
	}
	t.ctx = context.WithValue(f.ctx, taskKey{}, t)
	t.state.Store(int32(StateReady))
	return t
}

func (t *task) State() State {
	return State(t.state.Load())
}

// transition moves the task between states or panics: any other transition
// means the task is owned by two containers at once.
func (t *task) transition(from, to State) {
	if !t.state.CompareAndSwap(int32(from), int32(to)) {
		gferrors.Misuse("fabric", "transition", &transitionError{
			taskID: t.id,
			from:   from,
			to:     to,
			actual: t.State(),
		})
	}
}

// park suspends the running task. unlock runs on the worker after the task
// has stopped, so whoever will wake the task cannot see it half-suspended.
func (t *task) park(unlock func()) {
	t.transition(StateRunning, StateBlocked)
	t.fabric.parked.Add(1)
	t.fabric.stats.parks.Add(1)
	t.fabric.metrics.park()
	t.carrier.suspend(unlock)
}
