package harness

import (
	"github.com/evilsocket/xfer/buffer"
	"github.com/evilsocket/xfer/device"
)

// Every failure returned by the harness wraps one of these, match them with errors.Is.
var (
	// ErrInvalidArgument is returned for bad shapes, trial counts or fractions.
	ErrInvalidArgument = device.ErrInvalidArgument
	// ErrDeviceUnavailable is returned when a requested device doesn't exist.
	ErrDeviceUnavailable = device.ErrDeviceUnavailable
	// ErrAllocation is returned when host, pinned or device memory is exhausted.
	ErrAllocation = buffer.ErrAllocation
	// ErrRuntime is returned when a transfer, the barrier or a verification fails.
	ErrRuntime = device.ErrRuntime
)
