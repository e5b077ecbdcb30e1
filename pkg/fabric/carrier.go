package fabric

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
)

type yieldKind int

const (
	yieldParked yieldKind = iota
	yieldDone
	// yieldExited reports a body that called runtime.Goexit; the carrier
	// goroutine is gone and must not be reused.
	yieldExited
)

type yieldMsg struct {
	kind   yieldKind
	unlock func()
}

// carrier is the execution context of a task: a goroutine whose stack holds
// the task's frames while it is suspended. Control passes between the worker
// and the carrier over two unbuffered channels, so exactly one of them runs
// at a time.
type carrier struct {
	resume   chan *task
	yield    chan yieldMsg
	released <-chan struct{}
	cached   bool
}

func (f *Fabric) newCarrier() *carrier {
	c := &carrier{
		resume:   make(chan *task),
		yield:    make(chan yieldMsg),
		released: f.released,
	}
	f.carriers.Add(1)
	f.carrierWg.Add(1)
	go func() {
		defer f.carrierWg.Done()
		defer f.carriers.Add(-1)
		c.loop()
	}()
	return c
}

func (c *carrier) loop() {
	for {
		select {
		case t := <-c.resume:
			if t == nil {
				return
			}
			if !c.run(t) {
				return
			}
		case <-c.released:
			return
		}
	}
}

// run executes one task body and reports completion. It returns false when
// the carrier must exit because its task was abandoned or left through
// runtime.Goexit.
func (c *carrier) run(t *task) (ok bool) {
	f := t.fabric
	normalReturn := false
	defer func() {
		kind := yieldDone
		if !normalReturn {
			// recover returns nil only while runtime.Goexit unwinds.
			r := recover()
			switch {
			case r == nil:
				kind = yieldExited
			case r == errAbandoned:
				ok = false
				return
			case gferrors.IsMisuse(r):
				panic(r)
			default:
				f.taskPanicked(t, r)
			}
		}
		select {
		case c.yield <- yieldMsg{kind: kind}:
			ok = kind == yieldDone
		case <-c.released:
			ok = false
		}
	}()

	if err := t.body.Execute(t.ctx); err != nil {
		f.taskFailed(t, err)
	}
	normalReturn = true
	return true
}

// suspend hands control back to the worker and waits to be resumed.
func (c *carrier) suspend(unlock func()) {
	select {
	case c.yield <- yieldMsg{kind: yieldParked, unlock: unlock}:
	case <-c.released:
		if unlock != nil {
			unlock()
		}
		panic(errAbandoned)
	}

	select {
	case <-c.resume:
	case <-c.released:
		panic(errAbandoned)
	}
}

func (f *Fabric) taskPanicked(t *task, r interface{}) {
	f.stats.panicked.Add(1)
	f.metrics.panicked()
	f.logger.Error("task panicked",
		zap.Uint64("task", t.id),
		zap.String("panic", fmt.Sprint(r)),
		zap.ByteString("stack", debug.Stack()),
	)
	if f.config.PanicHandler != nil {
		f.config.PanicHandler(t.id, r)
	}
}

func (f *Fabric) taskFailed(t *task, err error) {
	f.stats.failed.Add(1)
	f.metrics.failed()
	f.logger.Warn("task returned error", zap.Uint64("task", t.id), zap.Error(err))
	if f.config.ErrorHandler != nil {
		f.config.ErrorHandler(t.id, err)
	}
}

// carrierCache is a worker-private free list of idle carriers.
type carrierCache struct {
	fabric *Fabric
	free   []*carrier
	max    int
}

func (cc *carrierCache) get() *carrier {
	if n := len(cc.free); n > 0 {
		c := cc.free[n-1]
		cc.free[n-1] = nil
		cc.free = cc.free[:n-1]
		c.cached = false
		return c
	}
	return cc.fabric.newCarrier()
}

func (cc *carrierCache) put(c *carrier) {
	if c.cached {
		gferrors.Misuse("fabric", "releaseCarrier", errDoubleRelease)
	}
	if len(cc.free) >= cc.max {
		c.resume <- nil
		return
	}
	c.cached = true
	cc.free = append(cc.free, c)
}
