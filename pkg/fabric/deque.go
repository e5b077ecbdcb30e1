package fabric

import (
	"sync"

	"golang.org/x/sys/cpu"
)

const initialDequeSize = 64

// deque is a worker's ready queue. The owner pushes and pops at the bottom
// (LIFO); thieves take from the top (FIFO). Padding keeps each worker's lock
// on its own cache line.
type deque struct {
	_    cpu.CacheLinePad
	mu   sync.Mutex
	buf  []*task
	head int
	n    int
	_    cpu.CacheLinePad
}

func newDeque() *deque {
	return &deque{buf: make([]*task, initialDequeSize)}
}

func (d *deque) pushBottom(t *task) {
	d.mu.Lock()
	if d.n == len(d.buf) {
		d.growLocked()
	}
	d.buf[(d.head+d.n)%len(d.buf)] = t
	d.n++
	d.mu.Unlock()
}

func (d *deque) popBottom() *task {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.n == 0 {
		return nil
	}
	d.n--
	i := (d.head + d.n) % len(d.buf)
	t := d.buf[i]
	d.buf[i] = nil
	return t
}

func (d *deque) stealTop() *task {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.n == 0 {
		return nil
	}
	t := d.buf[d.head]
	d.buf[d.head] = nil
	d.head = (d.head + 1) % len(d.buf)
	d.n--
	return t
}

func (d *deque) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

// growLocked doubles the ring, unrolling it so head becomes 0.
func (d *deque) growLocked() {
	buf := make([]*task, len(d.buf)*2)
	for i := 0; i < d.n; i++ {
		buf[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = buf
	d.head = 0
}
