package device

import (
	"strings"
	"sync"

	"github.com/evilsocket/islazy/log"
	"github.com/evilsocket/xfer/buffer"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
)

const (
	// DefaultQueueDepth is the number of copies a device stream can hold
	// before issuing a new one blocks.
	DefaultQueueDepth = 1024
)

// Config describes the simulated devices.
type Config struct {
	// Number of simulated devices.
	Devices int `json:"devices" yaml:"devices"`
	// Link bandwidth of every device in GB/s, 0 means host memory speed.
	LinkGBps float64 `json:"link_gbps" yaml:"link_gbps"`
	// Memory of every device in bytes, 0 means the total host memory.
	Memory uint64 `json:"memory" yaml:"memory"`
	// Copies a stream can hold before issuing blocks, 0 means DefaultQueueDepth.
	QueueDepth int `json:"queue_depth" yaml:"queue_depth"`
}

// Sim is a runtime emulating Devices accelerators with host memory: each
// device has one copy stream per direction, copies involving pinned host
// buffers are asynchronous while copies involving pageable ones are executed
// by the issuing goroutine once the device streams are drained.
type Sim struct {
	sync.Mutex
	cfg     Config
	engines []*engine
	used    []uint64
	closed  bool
}

// Open creates a simulated runtime, the caller must Close it.
func Open(cfg Config) (*Sim, error) {
	if cfg.Devices <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "runtime needs at least one device, %d requested", cfg.Devices)
	} else if cfg.LinkGBps < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative link bandwidth %f", cfg.LinkGBps)
	}

	if cfg.Memory == 0 {
		cfg.Memory = memory.TotalMemory()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}

	sim := &Sim{
		cfg:     cfg,
		engines: make([]*engine, cfg.Devices),
		used:    make([]uint64, cfg.Devices),
	}

	for id := range sim.engines {
		sim.engines[id] = newEngine(id, cfg.LinkGBps, cfg.QueueDepth)
	}

	log.Debug("sim runtime opened with %d devices (link:%.2f GB/s)", cfg.Devices, cfg.LinkGBps)

	return sim, nil
}

// Name returns the runtime name.
func (sim *Sim) Name() string {
	return "sim"
}

// Count returns the number of simulated devices.
func (sim *Sim) Count() int {
	return sim.cfg.Devices
}

// Used returns the number of bytes currently allocated on a device.
func (sim *Sim) Used(dev int) uint64 {
	sim.Lock()
	defer sim.Unlock()
	if dev < 0 || dev >= len(sim.used) {
		return 0
	}
	return sim.used[dev]
}

// assumes sim is locked
func (sim *Sim) check(dev int) error {
	if sim.closed {
		return errors.Wrap(ErrDeviceUnavailable, "runtime closed")
	} else if dev < 0 || dev >= sim.cfg.Devices {
		return errors.Wrapf(ErrDeviceUnavailable, "device %d not found (sim runtime has %d devices)", dev, sim.cfg.Devices)
	}
	return nil
}

// Alloc reserves n elements on a device.
func (sim *Sim) Alloc(dev int, n int) (*buffer.Buffer, error) {
	sim.Lock()
	defer sim.Unlock()

	if err := sim.check(dev); err != nil {
		return nil, err
	} else if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "invalid element count %d", n)
	}

	size := uint64(n) * buffer.ByteWidth
	if sim.used[dev]+size > sim.cfg.Memory {
		return nil, errors.Wrapf(buffer.ErrAllocation, "device %d: %d bytes requested, %d of %d in use",
			dev, size, sim.used[dev], sim.cfg.Memory)
	}

	sim.used[dev] += size

	return buffer.NewDevice(dev, n), nil
}

// Free releases a device buffer.
func (sim *Sim) Free(b *buffer.Buffer) error {
	if b == nil || b.Residency() != buffer.Device {
		return errors.Wrap(ErrInvalidArgument, "not a device buffer")
	} else if b.Released() {
		return nil
	}

	sim.Lock()
	dev, size := b.Device(), b.Size()
	if dev >= 0 && dev < len(sim.used) && sim.used[dev] >= size {
		sim.used[dev] -= size
	}
	sim.Unlock()

	return b.Release()
}

// CopyAsync issues a copy between a host buffer and a device buffer.
func (sim *Sim) CopyAsync(dst, src *buffer.Buffer) error {
	if dst == nil || src == nil {
		return errors.Wrap(ErrInvalidArgument, "nil buffer")
	} else if dst.Len() != src.Len() {
		return errors.Wrapf(ErrInvalidArgument, "size mismatch %s <- %s", dst, src)
	} else if dst.Released() || src.Released() {
		return errors.Wrapf(ErrInvalidArgument, "released buffer %s <- %s", dst, src)
	}

	var host, dev *buffer.Buffer
	if src.Residency().IsHost() && dst.Residency() == buffer.Device {
		host, dev = src, dst
	} else if src.Residency() == buffer.Device && dst.Residency().IsHost() {
		host, dev = dst, src
	} else {
		return errors.Wrapf(ErrInvalidArgument, "unsupported copy %s <- %s", dst, src)
	}

	sim.Lock()
	if err := sim.check(dev.Device()); err != nil {
		sim.Unlock()
		return err
	}
	e := sim.engines[dev.Device()]
	sim.Unlock()

	e.issue(copyOp{dst: dst.Data(), src: src.Data()}, dev == dst, host.Residency() == buffer.Pinned)

	return nil
}

// Synchronize waits for every stream to complete its pending copies.
func (sim *Sim) Synchronize() error {
	sim.Lock()
	if sim.closed {
		sim.Unlock()
		return errors.Wrap(ErrDeviceUnavailable, "runtime closed")
	}
	streams := make([]*stream, 0, 2*len(sim.engines))
	for _, e := range sim.engines {
		streams = append(streams, e.streams()...)
	}
	sim.Unlock()

	if errs := doParallel(streams, func(s *stream) error { return s.wait() }); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return errors.Wrap(ErrRuntime, strings.Join(msgs, "; "))
	}

	return nil
}

// Close stops every device stream and drops the memory accounting.
func (sim *Sim) Close() error {
	sim.Lock()
	defer sim.Unlock()

	if sim.closed {
		return nil
	}
	sim.closed = true

	for id, e := range sim.engines {
		e.stop()
		sim.used[id] = 0
	}

	log.Debug("sim runtime closed")

	return nil
}
