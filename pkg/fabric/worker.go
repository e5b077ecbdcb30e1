package fabric

import (
	"math/rand/v2"
	"sync/atomic"

	"go.uber.org/zap"
)

// worker runs the scheduling loop over its own deque, the injector and its
// peers' deques.
type worker struct {
	id       int
	fabric   *Fabric
	deque    *deque
	carriers carrierCache
	rng      *rand.Rand
	executed atomic.Int64
}

func newWorker(f *Fabric, id int) *worker {
	return &worker{
		id:     id,
		fabric: f,
		deque:  newDeque(),
		carriers: carrierCache{
			fabric: f,
			max:    f.config.CarrierCacheSize,
		},
		rng: rand.New(rand.NewPCG(rand.Uint64(), uint64(id))),
	}
}

// run is the main loop for a worker.
func (w *worker) run() {
	f := w.fabric
	defer f.workerWg.Done()

	if f.config.OnWorkerStart != nil {
		f.config.OnWorkerStart(w.id)
	}
	f.logger.Debug("worker started", zap.Int("worker", w.id))

	for !f.stopping.Load() {
		seen := f.idle.snapshot()
		t := w.next()
		if t == nil {
			if !f.idle.wait(seen, f.metrics.idle) {
				break
			}
			continue
		}
		w.resume(t)
	}

	f.logger.Debug("worker stopped", zap.Int("worker", w.id), zap.Int64("executed", w.executed.Load()))
	if f.config.OnWorkerStop != nil {
		f.config.OnWorkerStop(w.id)
	}
}

// next pops local work first, then injected work, then steals.
func (w *worker) next() *task {
	if t := w.deque.popBottom(); t != nil {
		return t
	}
	if t := w.fabric.injector.pop(); t != nil {
		return t
	}
	return w.steal()
}

// steal starts at a uniformly random peer and walks the ring once.
func (w *worker) steal() *task {
	peers := w.fabric.workers
	n := len(peers)
	if n < 2 {
		return nil
	}
	start := w.rng.IntN(n)
	for i := 0; i < n; i++ {
		victim := peers[(start+i)%n]
		if victim == w {
			continue
		}
		if t := victim.deque.stealTop(); t != nil {
			w.fabric.stats.steals.Add(1)
			w.fabric.metrics.steal()
			return t
		}
	}
	return nil
}

// resume switches into the task and blocks until it parks or finishes.
func (w *worker) resume(t *task) {
	f := w.fabric
	t.transition(StateReady, StateRunning)
	if t.carrier == nil {
		t.carrier = w.carriers.get()
	}
	t.worker = w
	c := t.carrier

	c.resume <- t
	msg := <-c.yield

	switch msg.kind {
	case yieldParked:
		if msg.unlock != nil {
			msg.unlock()
		}
	case yieldDone, yieldExited:
		t.transition(StateRunning, StateDone)
		t.carrier = nil
		if msg.kind == yieldDone {
			w.carriers.put(c)
		} else {
			f.logger.Warn("task exited its carrier", zap.Uint64("task", t.id))
		}
		w.executed.Add(1)
		f.stats.completed.Add(1)
		f.metrics.completed()
	}
}
