package harness

import (
	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/log"
	"github.com/evilsocket/xfer/buffer"
	"github.com/evilsocket/xfer/device"
	"github.com/pkg/errors"
)

type transferWorkload struct {
	rt        device.Runtime
	direction Direction
	src       *buffer.Buffer
	// one persistent buffer per device
	onDevice []*buffer.Buffer
	// one host buffer per device, only for round trips
	back []*buffer.Buffer
}

// issue never waits: every copy of every trial is queued on the device
// streams and only the barrier blocks.
func (w *transferWorkload) issue(first, trials int) error {
	for i := 0; i < trials; i++ {
		for d, dst := range w.onDevice {
			if err := w.rt.CopyAsync(dst, w.src); err != nil {
				return err
			}
			if w.direction == RoundTrip {
				if err := w.rt.CopyAsync(w.back[d], dst); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *transferWorkload) barrier() error {
	return w.rt.Synchronize()
}

// verify reads every device buffer back into a scratch host buffer (one
// extra round of copies and one barrier, outside of the timed region) and
// compares its checksum with the source.
func (w *transferWorkload) verify() error {
	expected := w.src.Checksum()

	scratch := make([]*buffer.Buffer, len(w.onDevice))
	defer func() {
		for _, b := range scratch {
			if b != nil {
				b.Release()
			}
		}
	}()

	for d, onDevice := range w.onDevice {
		b, err := buffer.NewHost(onDevice.Len(), false)
		if err != nil {
			return err
		}
		scratch[d] = b

		if err = w.rt.CopyAsync(b, onDevice); err != nil {
			return err
		}
	}

	if err := w.rt.Synchronize(); err != nil {
		return err
	}

	for d, b := range scratch {
		if b.Checksum() != expected {
			return errors.Wrapf(ErrRuntime, "buffer of device %d doesn't match the source", w.onDevice[d].Device())
		} else if w.direction == RoundTrip && w.back[d].Checksum() != expected {
			return errors.Wrapf(ErrRuntime, "buffer copied back from device %d doesn't match the source", w.onDevice[d].Device())
		}
	}

	return nil
}

func checkDevices(ids []int) error {
	if len(ids) == 0 {
		return errors.Wrap(ErrInvalidArgument, "empty device set")
	}

	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return errors.Wrapf(ErrInvalidArgument, "device %d listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

func checkShape(shape []int) error {
	if len(shape) == 0 {
		return errors.Wrap(ErrInvalidArgument, "empty shape")
	}
	for _, dim := range shape {
		if dim <= 0 {
			return errors.Wrapf(ErrInvalidArgument, "invalid shape %v", shape)
		}
	}
	return nil
}

// MeasureDeviceTransfer measures the aggregate throughput of copying a host
// buffer of the given shape to every device in t.Devices (and back for round
// trips). All the copies of a timed region are issued asynchronously and
// followed by a single global synchronization.
func (h *Harness) MeasureDeviceTransfer(t Transfer) (*Result, error) {
	if err := checkDevices(t.Devices); err != nil {
		return nil, errors.Wrap(err, "device transfer")
	} else if err = checkShape(t.Shape); err != nil {
		return nil, errors.Wrap(err, "device transfer")
	} else if err = validTrials(t.Trials); err != nil {
		return nil, errors.Wrap(err, "device transfer")
	} else if t.Direction != HostToDevice && t.Direction != RoundTrip {
		return nil, errors.Wrapf(ErrInvalidArgument, "device transfer: direction must be '%s' or '%s', got '%s'",
			HostToDevice, RoundTrip, t.Direction)
	} else if h.rt == nil {
		return nil, errors.Wrap(ErrDeviceUnavailable, "device transfer: no device runtime")
	} else if err = device.Check(h.rt, t.Devices); err != nil {
		return nil, errors.Wrap(err, "device transfer")
	}

	n := t.Elements()
	w := &transferWorkload{
		rt:        h.rt,
		direction: t.Direction,
	}

	rel := &releaser{rt: h.rt}
	defer rel.release()

	src, err := buffer.NewHost(n, t.Pinned)
	if err != nil {
		return nil, errors.Wrapf(err, "device transfer: host source of shape %v", t.Shape)
	}
	w.src = rel.add(src)

	h.fill(src)

	for _, dev := range t.Devices {
		onDevice, err := h.rt.Alloc(dev, n)
		if err != nil {
			return nil, errors.Wrapf(err, "device transfer: buffer of shape %v on device %d", t.Shape, dev)
		}
		w.onDevice = append(w.onDevice, rel.add(onDevice))

		if t.Direction == RoundTrip {
			back, err := buffer.NewHost(n, t.Pinned)
			if err != nil {
				return nil, errors.Wrapf(err, "device transfer: host destination of shape %v for device %d", t.Shape, dev)
			}
			w.back = append(w.back, rel.add(back))
		}
	}

	res := &Result{
		Label:         transferLabel(t.Direction),
		Unit:          h.unit(GB),
		Devices:       len(t.Devices),
		Residency:     src.Residency().String(),
		BytesPerTrial: uint64(len(t.Devices)) * src.Size() * uint64(t.Direction.Factor()),
	}

	log.Debug("device transfer: %s %s buffer to %d devices, %d trials",
		humanize.Bytes(src.Size()), src.Residency(), len(t.Devices), t.Trials)

	if err = h.run(t.Trials, w, res); err != nil {
		// copies still in flight must not outlive their buffers
		if serr := h.rt.Synchronize(); serr != nil {
			log.Debug("device transfer: draining after failure: %v", serr)
		}
		return nil, errors.Wrapf(err, "device transfer (devices:%v shape:%v direction:%s pinned:%v trials:%d)",
			t.Devices, t.Shape, t.Direction, t.Pinned, t.Trials)
	}

	if h.cfg.Verify {
		if err = w.verify(); err != nil {
			return nil, errors.Wrap(err, "device transfer: verification")
		}
	}

	return res, nil
}

func transferLabel(d Direction) string {
	switch d {
	case HostToDevice:
		return "host to device"
	case RoundTrip:
		return "round trip"
	}
	return string(d)
}
