package device

import (
	"sync"
)

// engine is a simulated device with one copy stream per direction, so that
// uploads and downloads share no link time. Copies touching the device
// memory still move their data in issue order.
type engine struct {
	sync.Mutex
	h2d *stream
	d2h *stream
	// ready channel of the last issued copy
	last chan struct{}
}

func newEngine(id int, linkGBps float64, depth int) *engine {
	return &engine{
		h2d: newStream(id, "h2d", linkGBps, depth),
		d2h: newStream(id, "d2h", linkGBps, depth),
	}
}

func (e *engine) streams() []*stream {
	return []*stream{e.h2d, e.d2h}
}

// issue queues op on the stream of its direction when async is true,
// otherwise it drains both streams and runs op on the calling goroutine.
func (e *engine) issue(op copyOp, toDevice bool, async bool) {
	e.Lock()
	defer e.Unlock()

	s := e.d2h
	if toDevice {
		s = e.h2d
	}

	op.after = e.last
	op.ready = make(chan struct{})
	e.last = op.ready

	if async {
		s.enqueue(op)
		return
	}

	e.h2d.pending.Wait()
	e.d2h.pending.Wait()
	s.execute(op)
}

func (e *engine) stop() {
	e.h2d.stop()
	e.d2h.stop()
}
