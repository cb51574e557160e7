/*
Package device defines the contract of an accelerator runtime as seen by the
throughput harness, and provides a simulated one:

	- sim (one FIFO copy stream per device, optional link bandwidth)

Runtimes own device memory, issue asynchronous host/device copies and expose a
single global synchronization barrier.
*/
package device

import (
	"github.com/evilsocket/xfer/buffer"
	"github.com/pkg/errors"
)

var (
	// ErrDeviceUnavailable is returned for unknown device identifiers or closed runtimes.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrRuntime wraps failures surfaced by a transfer or by the barrier.
	ErrRuntime = errors.New("runtime failure")
	// ErrInvalidArgument is returned for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Runtime is an accelerator runtime handle, acquired once and closed at teardown.
type Runtime interface {
	// Name returns the runtime name.
	Name() string
	// Count returns the number of devices, valid identifiers are 0 .. Count()-1.
	Count() int
	// Alloc reserves n elements of memory on the given device.
	Alloc(dev int, n int) (*buffer.Buffer, error)
	// Free releases a buffer returned by Alloc.
	Free(b *buffer.Buffer) error
	// CopyAsync issues a host to device or device to host copy and returns
	// without waiting for it to complete.
	CopyAsync(dst, src *buffer.Buffer) error
	// Synchronize blocks until every copy issued so far, on every device, completed.
	Synchronize() error
	// Close releases the runtime and all of its device memory.
	Close() error
}

// Check returns ErrDeviceUnavailable if any of the identifiers has no
// corresponding device in the runtime.
func Check(rt Runtime, ids []int) error {
	count := rt.Count()
	for _, id := range ids {
		if id < 0 || id >= count {
			return errors.Wrapf(ErrDeviceUnavailable, "device %d not found (%s runtime has %d devices)", id, rt.Name(), count)
		}
	}
	return nil
}
