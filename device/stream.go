package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/evilsocket/xfer/buffer"
	"github.com/sirupsen/logrus"
)

type copyOp struct {
	dst []float32
	src []float32
	// the data of the previous copy touching the same device, if any
	after <-chan struct{}
	// closed as soon as the data of this copy has been moved
	ready chan struct{}
}

// stream is one direction of the copy engine of a device: operations are
// executed in the order they have been enqueued.
type stream struct {
	sync.Mutex
	id      int
	dir     string
	rate    float64
	queue   chan copyOp
	pending sync.WaitGroup
	done    chan struct{}
	err     error
	log     *logrus.Entry
}

func newStream(id int, dir string, linkGBps float64, depth int) *stream {
	s := &stream{
		id:    id,
		dir:   dir,
		rate:  linkGBps * 1e9,
		queue: make(chan copyOp, depth),
		done:  make(chan struct{}),
		log: logrus.WithFields(logrus.Fields{
			"device":    id,
			"direction": dir,
			"link_gbps": linkGBps,
		}),
	}

	go s.run()

	return s
}

func (s *stream) run() {
	defer close(s.done)

	s.log.Debug("copy stream started")
	for op := range s.queue {
		s.execute(op)
		s.pending.Done()
	}
	s.log.Debug("copy stream stopped")
}

// execute moves the data once the previous copy of the device did, then
// keeps the link busy for as long as the transfer takes.
func (s *stream) execute(op copyOp) {
	defer func() {
		if e := recover(); e != nil {
			s.fail(fmt.Errorf("copy engine exception: %v", e))
		}
	}()

	if op.after != nil {
		<-op.after
	}

	start := time.Now()
	s.transfer(op)
	s.throttle(start, len(op.src)*buffer.ByteWidth)
}

func (s *stream) transfer(op copyOp) {
	if op.ready != nil {
		defer close(op.ready)
	}
	copy(op.dst, op.src)
}

// throttle stretches a copy to the time it would take on the device link.
func (s *stream) throttle(start time.Time, size int) {
	if s.rate <= 0 {
		return
	}

	expected := time.Duration(float64(size) / s.rate * float64(time.Second))
	if left := expected - time.Since(start); left > 0 {
		time.Sleep(left)
	}
}

func (s *stream) enqueue(op copyOp) {
	s.pending.Add(1)
	s.queue <- op
}

func (s *stream) fail(err error) {
	s.Lock()
	defer s.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// wait blocks until the stream is idle and returns (and clears) the
// first error since the previous wait.
func (s *stream) wait() error {
	s.pending.Wait()

	s.Lock()
	defer s.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *stream) stop() {
	close(s.queue)
	<-s.done
}
