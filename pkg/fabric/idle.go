package fabric

import (
	"sync"
	"sync/atomic"
)

// idler parks workers that found no work. Every push bumps epoch; a worker
// sleeps only if epoch is unchanged since it started scanning, so a push
// that races with the scan is never missed.
type idler struct {
	mu       sync.Mutex
	cond     *sync.Cond
	epoch    atomic.Uint64
	sleeping atomic.Int32
	stopped  bool
}

func newIdler() *idler {
	i := &idler{}
	i.cond = sync.NewCond(&i.mu)
	return i
}

func (i *idler) snapshot() uint64 {
	return i.epoch.Load()
}

func (i *idler) notify() {
	i.epoch.Add(1)
	if i.sleeping.Load() > 0 {
		i.mu.Lock()
		i.cond.Signal()
		i.mu.Unlock()
	}
}

// wait blocks until notify or stop. It reports false once stopped.
func (i *idler) wait(seen uint64, onSleep func(delta int)) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.sleeping.Add(1)
	onSleep(1)
	for !i.stopped && i.epoch.Load() == seen {
		i.cond.Wait()
	}
	i.sleeping.Add(-1)
	onSleep(-1)
	return !i.stopped
}

func (i *idler) stop() {
	i.mu.Lock()
	i.stopped = true
	i.cond.Broadcast()
	i.mu.Unlock()
}
