package harness

import (
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/log"
	"github.com/evilsocket/xfer/backend"
	"github.com/evilsocket/xfer/buffer"
	"github.com/evilsocket/xfer/device"
	"github.com/pkg/errors"
)

// workload is the unit the timing loop drives: issue starts the work of
// `trials` consecutive trials, barrier waits until everything issued so
// far is complete. The loop calls barrier exactly once per timed region.
type workload interface {
	issue(first, trials int) error
	barrier() error
}

// Harness runs throughput measurements.
type Harness struct {
	cfg  Config
	rt   device.Runtime
	rand *rand.Rand
}

// New creates a harness, rt is the device runtime handle used by transfer
// measurements (it can be nil if only host workloads are measured) and it
// is closed together with the harness.
func New(cfg Config, rt device.Runtime) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	} else if err = backend.Use(cfg.Backend); err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	log.Debug("harness: backend:%s (%s addressable) timing:%s threads:%d seed:%d",
		backend.Name(), humanize.Bytes(backend.Space()), cfg.Timing, cfg.Threads, seed)

	return &Harness{
		cfg:  cfg,
		rt:   rt,
		rand: rand.New(rand.NewSource(seed)),
	}, nil
}

// Close releases the device runtime.
func (h *Harness) Close() error {
	if h.rt == nil {
		return nil
	}
	err := h.rt.Close()
	h.rt = nil
	return err
}

func (h *Harness) unit(def Unit) Unit {
	if h.cfg.Unit != "" {
		return h.cfg.Unit
	}
	return def
}

func validTrials(trials int) error {
	if trials < 1 {
		return errors.Wrapf(ErrInvalidArgument, "trials must be at least 1, got %d", trials)
	}
	return nil
}

// run drives the timed loop and fills the timing fields of the result.
func (h *Harness) run(trials int, w workload, res *Result) error {
	res.Timing = h.cfg.Timing
	res.Trials = trials

	if h.cfg.Timing == PerTrial {
		res.TrialElapsed = make([]time.Duration, 0, trials)
		for i := 0; i < trials; i++ {
			start := time.Now()
			if err := w.issue(i, 1); err != nil {
				return err
			} else if err = w.barrier(); err != nil {
				return err
			}
			elapsed := time.Since(start)

			res.TrialElapsed = append(res.TrialElapsed, elapsed)
			res.Elapsed += elapsed
		}
		return nil
	}

	start := time.Now()
	if err := w.issue(0, trials); err != nil {
		return err
	} else if err = w.barrier(); err != nil {
		return err
	}
	res.Elapsed = time.Since(start)

	return nil
}

// releaser frees buffers allocated by a measurement.
type releaser struct {
	rt   device.Runtime
	bufs []*buffer.Buffer
}

func (r *releaser) add(b *buffer.Buffer) *buffer.Buffer {
	r.bufs = append(r.bufs, b)
	return b
}

func (r *releaser) release() {
	for _, b := range r.bufs {
		var err error
		if b.Residency() == buffer.Device && r.rt != nil {
			err = r.rt.Free(b)
		} else {
			err = b.Release()
		}
		if err != nil {
			log.Warning("can't release %s: %v", b, err)
		}
	}
	r.bufs = nil
}

func (h *Harness) fill(b *buffer.Buffer) {
	data := b.Data()
	for i := range data {
		data[i] = h.rand.Float32()
	}
}
