package device

import (
	"fmt"
	"testing"
	"time"

	"github.com/evilsocket/xfer/buffer"
	"github.com/pkg/errors"
	. "github.com/stretchr/testify/require"
)

func openSim(t *testing.T, cfg Config) *Sim {
	sim, err := Open(cfg)
	NoError(t, err)
	return sim
}

func hostBuffer(t *testing.T, n int) *buffer.Buffer {
	b, err := buffer.NewHost(n, false)
	NoError(t, err)
	for i := range b.Data() {
		b.Data()[i] = float32(i) + 0.25
	}
	return b
}

func TestOpenInvalid(t *testing.T) {
	_, err := Open(Config{Devices: 0})
	True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Open(Config{Devices: 1, LinkGBps: -1})
	True(t, errors.Is(err, ErrInvalidArgument))
}

func TestSimCount(t *testing.T) {
	sim := openSim(t, Config{Devices: 4})
	defer sim.Close()

	Equal(t, "sim", sim.Name())
	Equal(t, 4, sim.Count())
	NoError(t, Check(sim, []int{0, 1, 2, 3}))
}

func TestCheckUnknownDevice(t *testing.T) {
	sim := openSim(t, Config{Devices: 2})
	defer sim.Close()

	for _, id := range []int{2, 8, -1} {
		err := Check(sim, []int{0, id})
		True(t, errors.Is(err, ErrDeviceUnavailable), "device %d should be unavailable", id)
	}
}

func TestAllocAccounting(t *testing.T) {
	sim := openSim(t, Config{Devices: 2, Memory: 1024})
	defer sim.Close()

	a, err := sim.Alloc(1, 128)
	NoError(t, err)
	Equal(t, buffer.Device, a.Residency())
	Equal(t, 1, a.Device())
	Equal(t, uint64(512), sim.Used(1))
	Equal(t, uint64(0), sim.Used(0))

	_, err = sim.Alloc(1, 129)
	True(t, errors.Is(err, buffer.ErrAllocation))

	NoError(t, sim.Free(a))
	Equal(t, uint64(0), sim.Used(1))

	_, err = sim.Alloc(1, 256)
	NoError(t, err)
}

func TestAllocUnknownDevice(t *testing.T) {
	sim := openSim(t, Config{Devices: 1})
	defer sim.Close()

	_, err := sim.Alloc(1, 16)
	True(t, errors.Is(err, ErrDeviceUnavailable))

	_, err = sim.Alloc(0, 0)
	True(t, errors.Is(err, ErrInvalidArgument))
}

func TestRoundTripPageable(t *testing.T) {
	sim := openSim(t, Config{Devices: 2})
	defer sim.Close()

	src := hostBuffer(t, 1000)
	back, _ := buffer.NewHost(1000, false)

	for dev := 0; dev < 2; dev++ {
		dst, err := sim.Alloc(dev, 1000)
		NoError(t, err)
		NoError(t, sim.CopyAsync(dst, src))
		NoError(t, sim.CopyAsync(back, dst))
	}
	NoError(t, sim.Synchronize())

	Equal(t, src.Checksum(), back.Checksum())
}

func TestRoundTripPinned(t *testing.T) {
	src, err := buffer.NewHost(1000, true)
	if err != nil {
		t.Skipf("pinned memory not available: %v", err)
	}
	defer src.Release()

	back, err := buffer.NewHost(1000, true)
	if err != nil {
		t.Skipf("pinned memory not available: %v", err)
	}
	defer back.Release()

	for i := range src.Data() {
		src.Data()[i] = float32(i)
	}

	sim := openSim(t, Config{Devices: 1})
	defer sim.Close()

	dst, err := sim.Alloc(0, 1000)
	NoError(t, err)
	NoError(t, sim.CopyAsync(dst, src))
	NoError(t, sim.CopyAsync(back, dst))
	NoError(t, sim.Synchronize())

	Equal(t, src.Checksum(), dst.Checksum())
	Equal(t, src.Checksum(), back.Checksum())
}

func TestCopyInvalid(t *testing.T) {
	sim := openSim(t, Config{Devices: 1})
	defer sim.Close()

	a := hostBuffer(t, 10)
	b := hostBuffer(t, 10)
	d, _ := sim.Alloc(0, 10)
	e, _ := sim.Alloc(0, 10)
	short, _ := sim.Alloc(0, 5)

	tests := []struct {
		name     string
		dst, src *buffer.Buffer
	}{
		{"host to host", a, b},
		{"device to device", d, e},
		{"size mismatch", short, a},
		{"nil", nil, a},
	}

	for _, test := range tests {
		err := sim.CopyAsync(test.dst, test.src)
		True(t, errors.Is(err, ErrInvalidArgument), test.name)
	}
}

func TestLinkThrottle(t *testing.T) {
	// 4MB at 0.1 GB/s takes at least 40ms
	sim := openSim(t, Config{Devices: 1, LinkGBps: 0.1})
	defer sim.Close()

	src := hostBuffer(t, 1024*1024)
	dst, err := sim.Alloc(0, src.Len())
	NoError(t, err)

	start := time.Now()
	NoError(t, sim.CopyAsync(dst, src))
	NoError(t, sim.Synchronize())

	GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSynchronizeReportsStreamErrors(t *testing.T) {
	sim := openSim(t, Config{Devices: 3})
	defer sim.Close()

	sim.engines[2].d2h.fail(fmt.Errorf("link down"))

	err := sim.Synchronize()
	True(t, errors.Is(err, ErrRuntime))
	Contains(t, err.Error(), "device 2 d2h: link down")

	// errors are reported once
	NoError(t, sim.Synchronize())
}

func TestClosed(t *testing.T) {
	sim := openSim(t, Config{Devices: 1})
	d, err := sim.Alloc(0, 10)
	NoError(t, err)

	NoError(t, sim.Close())
	NoError(t, sim.Close())

	True(t, errors.Is(sim.Synchronize(), ErrDeviceUnavailable))
	True(t, errors.Is(sim.CopyAsync(d, hostBuffer(t, 10)), ErrDeviceUnavailable))

	_, err = sim.Alloc(0, 10)
	True(t, errors.Is(err, ErrDeviceUnavailable))
}

func TestDuplexLink(t *testing.T) {
	// 1MB at 0.5 GB/s takes 2ms per direction
	const n, rounds = 256 * 1024, 10

	src, err := buffer.NewHost(n, true)
	if err != nil {
		t.Skipf("pinned memory not available: %v", err)
	}
	defer src.Release()

	back, err := buffer.NewHost(n, true)
	if err != nil {
		t.Skipf("pinned memory not available: %v", err)
	}
	defer back.Release()

	for i := range src.Data() {
		src.Data()[i] = float32(i)
	}

	sim := openSim(t, Config{Devices: 1, LinkGBps: 0.5})
	defer sim.Close()

	dst, err := sim.Alloc(0, n)
	NoError(t, err)

	start := time.Now()
	for i := 0; i < rounds; i++ {
		NoError(t, sim.CopyAsync(dst, src))
		NoError(t, sim.CopyAsync(back, dst))
	}
	NoError(t, sim.Synchronize())
	elapsed := time.Since(start)

	Equal(t, src.Checksum(), back.Checksum())
	// at least one direction worth of link time, well below both of them in a row
	GreaterOrEqual(t, elapsed, rounds*2*time.Millisecond)
	Less(t, elapsed, rounds*2*2*time.Millisecond*85/100)
}

func TestPageableCopiesAfterPinned(t *testing.T) {
	pinned, err := buffer.NewHost(1000, true)
	if err != nil {
		t.Skipf("pinned memory not available: %v", err)
	}
	defer pinned.Release()

	for i := range pinned.Data() {
		pinned.Data()[i] = float32(i) * 2
	}

	sim := openSim(t, Config{Devices: 1})
	defer sim.Close()

	dst, err := sim.Alloc(0, 1000)
	NoError(t, err)

	back := hostBuffer(t, 1000)
	// the pageable read back drains the queued upload first
	NoError(t, sim.CopyAsync(dst, pinned))
	NoError(t, sim.CopyAsync(back, dst))
	Equal(t, pinned.Checksum(), back.Checksum())
	NoError(t, sim.Synchronize())
}
