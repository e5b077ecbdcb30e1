package fabric

import (
	"sync"

	"github.com/eapache/queue"
)

// injector is the shared FIFO for tasks submitted from outside any task.
type injector struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newInjector() *injector {
	return &injector{q: queue.New()}
}

func (in *injector) push(t *task) {
	in.mu.Lock()
	in.q.Add(t)
	in.mu.Unlock()
}

func (in *injector) pop() *task {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.q.Length() == 0 {
		return nil
	}
	return in.q.Remove().(*task)
}

func (in *injector) len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.q.Length()
}
